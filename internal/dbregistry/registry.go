package dbregistry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/docstore"
)

const (
	upPrefix   = "up/"
	downPrefix = "down/"
)

// Registry opens and caches document stores by database name.
type Registry struct {
	cfg Config

	mu     sync.Mutex
	stores map[string]docstore.Store
	closed bool
}

// New validates the configuration and returns an empty registry. Stores are
// opened on first use.
func New(ctx context.Context, cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Database registry created.",
		"mode", cfg.mode(),
		"adapter", cfg.activeStore().Adapter,
		"path", cfg.Path,
		"no_url_prefix", cfg.NoURLPrefix,
	)
	return &Registry{cfg: cfg, stores: make(map[string]docstore.Store)}, nil
}

// Config returns the configuration the registry was created with.
func (r *Registry) Config() Config {
	return r.cfg
}

// IsLocal reports whether the registry runs in local mode.
func (r *Registry) IsLocal() bool {
	return r.cfg.IsLocal
}

// DatabaseName applies the direction prefix to a database name. Local
// participants push "local-*" databases up and pull "remote-*" databases
// down; the remote side sees the reverse.
func (r *Registry) DatabaseName(name string) string {
	if r.cfg.NoURLPrefix {
		return name
	}
	var up bool
	switch {
	case strings.HasPrefix(name, "local-"):
		up = true
	case strings.HasPrefix(name, "remote-"):
		up = false
	default:
		return name
	}
	if r.cfg.IsRemote {
		up = !up
	}
	if up {
		return upPrefix + name
	}
	return downPrefix + name
}

// URL returns the storage location of a database.
func (r *Registry) URL(name string) string {
	db := r.DatabaseName(name)
	if r.cfg.IsRemote {
		remote := r.cfg.Remote.DB
		return fmt.Sprintf("%s://%s:%d/%s", remote.Protocol, remote.Hostname, remote.Port, db)
	}
	return filepath.Join(r.cfg.Path, filepath.FromSlash(db))
}

// endpoint is the remote database service adapters connect to, nil in
// local mode.
func (r *Registry) endpoint() *docstore.Endpoint {
	if !r.cfg.IsRemote {
		return nil
	}
	db := r.cfg.Remote.DB
	return &docstore.Endpoint{Hostname: db.Hostname, Port: db.Port, Protocol: db.Protocol}
}

// Get returns the store for a database, opening it on first use.
func (r *Registry) Get(ctx context.Context, name string) (docstore.Store, error) {
	if name == "" {
		return nil, errors.New("database name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, docstore.ErrClosed
	}
	if s, ok := r.stores[name]; ok {
		return s, nil
	}

	adapter := r.cfg.activeStore().Adapter
	s, err := docstore.Open(ctx, adapter, docstore.Options{
		Name:     r.DatabaseName(name),
		URL:      r.cfg.activeStore().URL,
		Path:     r.cfg.Path,
		Endpoint: r.endpoint(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q with adapter %q: %w", name, adapter, err)
	}

	ctxlog.FromContext(ctx).Debug("Database opened.", "name", name, "url", r.URL(name), "adapter", adapter)
	r.stores[name] = s
	return s, nil
}

// Close closes every store the registry opened. It is safe to call more
// than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for name, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	r.stores = nil
	return errors.Join(errs...)
}
