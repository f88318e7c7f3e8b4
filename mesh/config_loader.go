package mesh

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file. Keys missing from the
// file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault loads path, falling back to DefaultConfig when the file
// does not exist. Any other read, parse or validation error is returned.
func LoadConfigOrDefault(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return config, err
}

// Validate checks the alignment thresholds and output settings
func (c *Config) Validate() error {
	a := c.Alignment
	if a.MinSharedBeacons < 2 {
		return fmt.Errorf("alignment.minSharedBeacons must be at least 2, got %d", a.MinSharedBeacons)
	}
	pairs := a.MinSharedBeacons * (a.MinSharedBeacons - 1) / 2
	if a.MatchTolerance < 0 || a.MatchTolerance >= pairs {
		return fmt.Errorf("alignment.matchTolerance must be in [0, %d), got %d", pairs, a.MatchTolerance)
	}
	if a.MaxSweeps < 0 {
		return fmt.Errorf("alignment.maxSweeps must not be negative, got %d", a.MaxSweeps)
	}
	if a.Timeout < 0 {
		return fmt.Errorf("alignment.timeout must not be negative, got %s", a.Timeout)
	}
	if c.Output.Padding < 0 {
		return fmt.Errorf("output.padding must not be negative, got %g", c.Output.Padding)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
