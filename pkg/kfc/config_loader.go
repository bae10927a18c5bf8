package kfc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfigFromFile reads and parses a YAML configuration file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML bytes into a Config, starting from defaults and
// overlaying whatever keys are present. The raw pass only checks that the
// input is valid YAML; defaults survive because the typed pass decodes onto
// DefaultConfig(), so a file providing only e.g. "wait:" leaves every other
// section's defaults intact.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("mapping config: %w", err)
	}

	return cfg, nil
}

// SaveConfigToFile writes cfg as YAML to path.
func SaveConfigToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches standard locations for a KFC config file.
func FindConfigFile() string {
	candidates := []string{
		"kfc.yaml",
		"kfc.yml",
		"config.yaml",
		"config.yml",
		"configs/kfc.yaml",
		"configs/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
