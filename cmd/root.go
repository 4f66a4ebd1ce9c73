package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idlesim/idlesim/sim"
	"github.com/idlesim/idlesim/sim/sink"
)

var (
	// CLI flags for the generator
	configPath string   // Path to the base YAML config
	overrides  []string // Additional YAML files merged over the base config
	outputDir  string   // Directory run output folders are created under
	seed       int64    // Seed override; -1 keeps the configured seed
	format     string   // Output format override (jsonl, sqlite, both)
	logLevel   string   // Log verbosity level
	dryRun     bool     // Simulate without writing event files
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "idlesim",
	Short: "Synthetic event generator for idle RPG analytics",
}

// discardSink counts records without writing them. Used by --dry-run.
type discardSink struct{}

func (discardSink) WriteRecords([]*sim.Record) error { return nil }
func (discardSink) RecordInstall(source, pt string)  {}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the event simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := sim.LoadConfig(configPath, overrides...)
		if err != nil {
			logrus.Fatalf("Could not load config: %v", err)
		}

		if seed >= 0 {
			cfg.Simulation.Seed = seed
		}
		if format != "" {
			cfg.Output.Format = format
		}

		if err := cfg.ValidateOrError(); err != nil {
			logrus.Fatalf("Invalid config: %v", err)
		}

		logrus.Infof("Starting simulation: seed=%d, start=%s, duration=%d days, installs=%d",
			cfg.Simulation.Seed, cfg.Simulation.StartDate,
			cfg.Simulation.DurationDays, cfg.Installs.Total)

		startTime := time.Now()

		var recordSink sim.RecordSink
		var mgr *sink.Manager
		if dryRun {
			recordSink = discardSink{}
		} else {
			runDir := filepath.Join(outputDir, "run_"+startTime.Format("20060102_150405"))
			mgr, err = sink.NewManager(cfg, runDir)
			if err != nil {
				logrus.Fatalf("Could not open output: %v", err)
			}
			recordSink = mgr
		}

		s := sim.NewSimulator(cfg, recordSink)
		if err := s.Run(); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		if mgr != nil {
			if err := mgr.Finalize(time.Now()); err != nil {
				logrus.Fatalf("Could not finalize output: %v", err)
			}
			logrus.Infof("Output written to %s", mgr.Dir())
		}

		summary := s.Stats().Summary()
		logrus.Infof("Simulation complete in %s: %d installs, %d events over %d days (DAU mean=%.1f stddev=%.1f)",
			time.Since(startTime).Round(time.Millisecond),
			summary.TotalInstalls, summary.TotalEvents, summary.Days,
			summary.MeanDailyActives, summary.StddevDailyActives)
	},
}

// validateCmd checks a config without running the simulation
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := sim.LoadConfig(configPath, overrides...)
		if err != nil {
			logrus.Fatalf("Could not load config: %v", err)
		}
		if violations := cfg.Validate(); len(violations) > 0 {
			for _, v := range violations {
				logrus.Errorf("config: %s", v)
			}
			logrus.Fatalf("Config invalid: %d violation(s)", len(violations))
		}
		logrus.Infof("Config valid: %s", configPath)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "configs/default.yaml", "Path to the base YAML config")
	runCmd.Flags().StringArrayVar(&overrides, "override", nil, "YAML file merged over the base config (repeatable)")
	runCmd.Flags().StringVar(&outputDir, "output", "output", "Directory run folders are created under")
	runCmd.Flags().Int64Var(&seed, "seed", -1, "Seed override (-1 keeps the configured seed)")
	runCmd.Flags().StringVar(&format, "format", "", "Output format override (jsonl, sqlite, both)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate without writing event files")

	validateCmd.Flags().StringVar(&configPath, "config", "configs/default.yaml", "Path to the base YAML config")
	validateCmd.Flags().StringArrayVar(&overrides, "override", nil, "YAML file merged over the base config (repeatable)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
