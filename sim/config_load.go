package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads the base YAML configuration, applies override files in
// order, and decodes the merged result into the typed Config tree. Unknown
// keys are rejected so typos in configs fail loudly instead of silently
// falling back to defaults.
//
// Merge semantics follow the usual layered-config rules: nested mappings are
// merged recursively, everything else (scalars and arrays) is replaced by the
// override.
func LoadConfig(basePath string, overridePaths ...string) (*Config, error) {
	merged, err := loadYAMLMap(basePath)
	if err != nil {
		return nil, err
	}
	for _, p := range overridePaths {
		override, err := loadYAMLMap(p)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, override)
	}
	return decodeConfig(merged)
}

// decodeConfig turns a merged raw mapping into a typed Config.
func decodeConfig(merged map[string]any) (*Config, error) {
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling merged config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.raw = merged
	return &cfg, nil
}

func loadYAMLMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// deepMerge merges override into base without mutating either argument.
func deepMerge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if bm, ok := out[k].(map[string]any); ok {
			if om, ok := v.(map[string]any); ok {
				out[k] = deepMerge(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}
