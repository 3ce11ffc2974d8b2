package config

import (
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load reads path, applies ACC_* environment overrides, fills defaults and validates.
// When the file cannot be opened the environment alone is used and the open error is
// returned next to the config so callers can warn and continue.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		var cfg Config
		if envErr := env.Parse(&cfg); envErr != nil {
			return nil, fmt.Errorf("env: %w", envErr)
		}
		cfg.Defaults()
		return &cfg, err
	}
	defer f.Close()
	return FromReader(f)
}

func FromReader(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, err
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}
