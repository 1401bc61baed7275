package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clipflow/internal/spec"
)

const SupportedSchema = "v1"

// LoadTransformSpec parses the transformation-set YAML and validates its
// schema_version and name references.
func LoadTransformSpec(path string) (spec.File, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("transformations schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}

	names := map[string]bool{}
	for _, t := range cfg.Transformations {
		if t.Name == "" || t.Kind == "" {
			return cfg, fmt.Errorf("transformation needs name and kind (got name=%q kind=%q)", t.Name, t.Kind)
		}
		if names[t.Name] {
			return cfg, fmt.Errorf("duplicate transformation name %q", t.Name)
		}
		names[t.Name] = true
	}
	for _, p := range cfg.Pipeline {
		if !names[p] {
			return cfg, fmt.Errorf("pipeline references unknown transformation %q", p)
		}
	}
	return cfg, nil
}
