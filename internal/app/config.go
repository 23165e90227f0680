package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ComputationPath string // manifest file
	ConfigPath      string // HCL process configuration, optional

	// Remote bootstraps the registries in remote mode.
	Remote bool
	// Participants, Iterations and Workers override the pool block of the
	// process configuration when positive.
	Participants int
	Iterations   int
	Workers      int
	Deduplicate  bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ComputationPath == "" {
		return nil, errors.New("ComputationPath is a required configuration field and cannot be empty")
	}
	if cfg.Participants < 0 || cfg.Iterations < 0 || cfg.Workers < 0 {
		return nil, errors.New("participants, iterations and workers must not be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d is out of range", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
