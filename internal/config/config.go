package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/computesim/internal/ctxlog"
)

// Defaults applied to any setting the file leaves out.
const (
	DefaultDBServerPort = 5984
	DefaultStoragePath  = ".tmp"
	DefaultAdapter      = "memory"
	DefaultConsortium   = "simulator"
	DefaultStepTimeout  = 30 * time.Second
)

// DBServer is the `pouch-db-server` block: the remote database service.
type DBServer struct {
	Port int `hcl:"port,optional"`
}

// Storage is the `storage` block.
type Storage struct {
	Path          string `hcl:"path,optional"`
	LocalAdapter  string `hcl:"local_adapter,optional"`
	RemoteAdapter string `hcl:"remote_adapter,optional"`
	LocalURL      string `hcl:"local_url,optional"`
	RemoteURL     string `hcl:"remote_url,optional"`
}

// Pool is the `pool` block.
type Pool struct {
	ConsortiumID string `hcl:"consortium,optional"`
	Participants int    `hcl:"participants,optional"`
	Iterations   int    `hcl:"iterations,optional"`
	Workers      int    `hcl:"workers,optional"`
	StepTimeout  string `hcl:"step_timeout,optional"`
}

// Config is the whole process configuration.
type Config struct {
	PouchDBServer *DBServer `hcl:"pouch-db-server,block"`
	Storage       *Storage  `hcl:"storage,block"`
	Pool          *Pool     `hcl:"pool,block"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.PouchDBServer == nil {
		c.PouchDBServer = &DBServer{}
	}
	if c.PouchDBServer.Port == 0 {
		c.PouchDBServer.Port = DefaultDBServerPort
	}

	if c.Storage == nil {
		c.Storage = &Storage{}
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Storage.LocalAdapter == "" {
		c.Storage.LocalAdapter = DefaultAdapter
	}
	if c.Storage.RemoteAdapter == "" {
		c.Storage.RemoteAdapter = DefaultAdapter
	}

	if c.Pool == nil {
		c.Pool = &Pool{}
	}
	if c.Pool.ConsortiumID == "" {
		c.Pool.ConsortiumID = DefaultConsortium
	}
	if c.Pool.Participants == 0 {
		c.Pool.Participants = 1
	}
	if c.Pool.Iterations == 0 {
		c.Pool.Iterations = 1
	}
	if c.Pool.StepTimeout == "" {
		c.Pool.StepTimeout = DefaultStepTimeout.String()
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if p := c.PouchDBServer.Port; p <= 0 || p > 65535 {
		return fmt.Errorf("pouch-db-server: port %d is out of range", p)
	}
	if c.Pool.Participants < 0 || c.Pool.Iterations < 0 || c.Pool.Workers < 0 {
		return fmt.Errorf("pool: participants, iterations and workers must not be negative")
	}
	if _, err := c.StepTimeout(); err != nil {
		return err
	}
	return nil
}

// StepTimeout parses the pool's step timeout.
func (c *Config) StepTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Pool.StepTimeout)
	if err != nil {
		return 0, fmt.Errorf("pool: invalid step_timeout %q: %w", c.Pool.StepTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("pool: step_timeout must not be negative")
	}
	return d, nil
}

// Loader reads a process configuration from a path.
type Loader interface {
	Load(ctx context.Context, path string) (*Config, error)
}

// HCLLoader loads configuration files written in HCL.
type HCLLoader struct{}

// NewLoader returns the HCL configuration loader.
func NewLoader() *HCLLoader {
	return &HCLLoader{}
}

// Load implements Loader. An empty path yields the defaults.
func (HCLLoader) Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		logger.Debug("No configuration file given, using defaults.")
		return Default(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Warn("Configuration file not found, using defaults.", "path", path)
		return Default(), nil
	}

	logger.Debug("Loading configuration.", "path", path)
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	cfg := &Config{}
	if diags := gohcl.DecodeBody(file.Body, nil, cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode configuration %s: %w", path, diags)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Debug("Configuration loaded.", "db_server_port", cfg.PouchDBServer.Port, "storage_path", cfg.Storage.Path)
	return cfg, nil
}
