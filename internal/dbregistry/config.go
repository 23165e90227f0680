package dbregistry

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/computesim/internal/docstore"
)

// ErrInvalidConfig is returned by New when the configuration is unusable.
var ErrInvalidConfig = errors.New("invalid database registry configuration")

// StoreConfig selects the document store adapter for one mode.
type StoreConfig struct {
	Adapter string
	// URL is the adapter connection string. When empty, adapters derive one
	// from the remote DB in remote mode.
	URL string
}

// LocalConfig configures local mode.
type LocalConfig struct {
	Store StoreConfig
}

// DBConfig addresses the remote database service.
type DBConfig struct {
	Hostname string
	Port     int
	Protocol string
}

// RemoteConfig configures remote mode.
type RemoteConfig struct {
	DB    DBConfig
	Store StoreConfig
}

// Config describes a database registry.
type Config struct {
	IsLocal  bool
	IsRemote bool
	Local    LocalConfig
	// NoURLPrefix disables the "up/" and "down/" database name prefixes.
	NoURLPrefix bool
	// Path is the local storage root.
	Path   string
	Remote RemoteConfig
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.IsLocal == c.IsRemote {
		return fmt.Errorf("%w: exactly one of local or remote mode must be set", ErrInvalidConfig)
	}

	store := c.activeStore()
	if store.Adapter == "" {
		return fmt.Errorf("%w: %s mode has no store adapter", ErrInvalidConfig, c.mode())
	}
	if !docstore.Known(store.Adapter) {
		return fmt.Errorf("%w: %s mode adapter %q is not registered (known: %v)", ErrInvalidConfig, c.mode(), store.Adapter, docstore.Adapters())
	}

	if c.IsRemote {
		db := c.Remote.DB
		if db.Hostname == "" {
			return fmt.Errorf("%w: remote hostname is required", ErrInvalidConfig)
		}
		if db.Port <= 0 || db.Port > 65535 {
			return fmt.Errorf("%w: remote port %d is out of range", ErrInvalidConfig, db.Port)
		}
		if db.Protocol == "" {
			return fmt.Errorf("%w: remote protocol is required", ErrInvalidConfig)
		}
	}
	return nil
}

func (c Config) activeStore() StoreConfig {
	if c.IsRemote {
		return c.Remote.Store
	}
	return c.Local.Store
}

func (c Config) mode() string {
	if c.IsRemote {
		return "remote"
	}
	return "local"
}
