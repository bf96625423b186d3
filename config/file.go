package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FilePath returns the default config file location, ~/.coinfeed/config.yaml.
func FilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".coinfeed", "config.yaml"), nil
}

// Load builds the configuration: defaults, then the file at path (or the
// default location when path is empty), then the environment. A missing
// file at the default location is not an error; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = FilePath(); err != nil {
			return nil, err
		}
	}

	if err := cfg.readFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.ApplyEnv()
		}
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile merges the YAML file at path over c. Keys absent from the file
// keep their current values.
func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// WriteDefaultFile writes the default configuration to path, or to the
// default location when path is empty. An existing file is left alone
// unless force is set. Returns the path and whether it was written.
func WriteDefaultFile(path string, force bool) (string, bool, error) {
	if path == "" {
		var err error
		if path, err = FilePath(); err != nil {
			return "", false, err
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return path, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return path, false, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return path, false, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return path, false, fmt.Errorf("failed to write config file: %w", err)
	}

	return path, true, nil
}
