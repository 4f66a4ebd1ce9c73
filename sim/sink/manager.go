// Package sink writes simulation output: JSONL event files, a SQLite events
// database, and the run metadata manifest.
package sink

import (
	"fmt"
	"os"
	"time"

	"github.com/idlesim/idlesim/sim"
)

// recordWriter is one output format backend.
type recordWriter interface {
	Write(records []*sim.Record) error
	Close() error
}

// Manager buffers records up to the configured batch size, fans full batches
// out to the format backends and tallies the aggregate stats for the metadata
// manifest. It implements sim.RecordSink.
type Manager struct {
	cfg *sim.Config
	dir string

	writers   []recordWriter
	batchSize int
	pending   []*sim.Record

	totalEvents          int
	totalInstalls        int
	seenUsers            map[string]struct{}
	eventsByType         map[string]int
	installsBySource     map[string]int
	installsByPlayerType map[string]int
}

// NewManager creates the output directory and opens the writers the config
// asks for.
func NewManager(cfg *sim.Config, dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	m := &Manager{
		cfg:                  cfg,
		dir:                  dir,
		batchSize:            cfg.Output.BatchSize,
		seenUsers:            map[string]struct{}{},
		eventsByType:         map[string]int{},
		installsBySource:     map[string]int{},
		installsByPlayerType: map[string]int{},
	}
	if m.batchSize <= 0 {
		m.batchSize = 10000
	}

	format := cfg.Output.Format
	if format == "" {
		format = "jsonl"
	}
	compressed := cfg.Output.Compression == "gzip"

	if format == "jsonl" || format == "both" {
		w, err := NewJSONLWriter(dir, compressed)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.writers = append(m.writers, w)
	}
	if format == "sqlite" || format == "both" {
		w, err := NewSQLiteWriter(dir)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.writers = append(m.writers, w)
	}
	return m, nil
}

// WriteRecords updates the tallies and buffers the records, flushing to every
// backend each time the buffer reaches the batch size.
func (m *Manager) WriteRecords(records []*sim.Record) error {
	for _, r := range records {
		m.totalEvents++
		m.eventsByType[r.EventName]++
		m.seenUsers[r.UserID] = struct{}{}
	}
	m.pending = append(m.pending, records...)
	if len(m.pending) >= m.batchSize {
		return m.flushPending()
	}
	return nil
}

func (m *Manager) flushPending() error {
	if len(m.pending) == 0 {
		return nil
	}
	for _, w := range m.writers {
		if err := w.Write(m.pending); err != nil {
			return err
		}
	}
	m.pending = m.pending[:0]
	return nil
}

// RecordInstall tallies one install for the metadata manifest.
func (m *Manager) RecordInstall(source, playerType string) {
	m.totalInstalls++
	m.installsBySource[source]++
	m.installsByPlayerType[playerType]++
}

// Dir returns the output directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Finalize closes every backend and, when enabled, writes metadata.json.
func (m *Manager) Finalize(generatedAt time.Time) error {
	if err := m.Close(); err != nil {
		return err
	}
	if !m.cfg.Output.IncludeMetadata {
		return nil
	}
	stats := MetadataStats{
		TotalInstalls:        m.totalInstalls,
		TotalEvents:          m.totalEvents,
		UniqueUsers:          len(m.seenUsers),
		EventsByType:         m.eventsByType,
		InstallsBySource:     m.installsBySource,
		InstallsByPlayerType: m.installsByPlayerType,
	}
	return writeMetadata(m.dir, m.cfg, stats, generatedAt)
}

// Close flushes the remaining buffered records and closes all open backends.
// Safe to call more than once.
func (m *Manager) Close() error {
	firstErr := m.flushPending()
	for _, w := range m.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.writers = nil
	return firstErr
}
