package compregistry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/specialistvlad/computesim/internal/computation"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/dbregistry"
)

// ComputationsDB is the database definitions are persisted into.
const ComputationsDB = "computations"

// ErrNotRegistered is returned when a name/version pair has no entry.
var ErrNotRegistered = errors.New("computation not registered")

// Entry is a manifest summary in the registry's list.
type Entry struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	URL  string   `json:"url"`
}

func (e Entry) hasTag(version string) bool {
	return slices.Contains(e.Tags, version)
}

func (e Entry) equal(o Entry) bool {
	return e.Name == o.Name && e.URL == o.URL && slices.Equal(e.Tags, o.Tags)
}

// Definition is what DoAdd persists for one computation version.
type Definition struct {
	Definition *computation.Computation `json:"definition"`
	Name       string                   `json:"name"`
	URL        string                   `json:"url"`
	Version    string                   `json:"version"`
}

// PathResolver maps a computation name and version to its directory.
type PathResolver func(name, version string) string

// Option configures a Registry.
type Option func(*Registry)

// WithPath sets the root directory computations are resolved under.
func WithPath(path string) Option {
	return func(r *Registry) { r.path = path }
}

// WithEntries seeds the registry list.
func WithEntries(entries ...Entry) Option {
	return func(r *Registry) { r.entries = append(r.entries, entries...) }
}

// WithPathResolver replaces the "<root>/<name>@<version>" convention.
func WithPathResolver(resolve PathResolver) Option {
	return func(r *Registry) { r.resolve = resolve }
}

// WithDeduplication makes Register skip entries already in the list.
func WithDeduplication() Option {
	return func(r *Registry) { r.dedupe = true }
}

// WithLoader sets the manifest loader used by Add and Discover.
func WithLoader(loader computation.Loader) Option {
	return func(r *Registry) { r.loader = loader }
}

// WithLocal overrides the mode inherited from the database registry.
func WithLocal(isLocal bool) Option {
	return func(r *Registry) { r.isLocal = &isLocal }
}

// Registry tracks known computations.
type Registry struct {
	db      *dbregistry.Registry
	isLocal *bool
	path    string
	resolve PathResolver
	dedupe  bool
	loader  computation.Loader

	mu      sync.RWMutex
	entries []Entry
}

// New creates a computation registry bound to a database registry.
func New(ctx context.Context, db *dbregistry.Registry, opts ...Option) (*Registry, error) {
	if db == nil {
		return nil, errors.New("computation registry requires a database registry")
	}
	r := &Registry{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.isLocal == nil {
		isLocal := db.IsLocal()
		r.isLocal = &isLocal
	}
	if r.resolve == nil {
		root := r.path
		r.resolve = func(name, version string) string {
			return filepath.Join(root, name+"@"+version)
		}
	}
	if r.loader == nil {
		r.loader = computation.NewLoader()
	}

	ctxlog.FromContext(ctx).Debug("Computation registry created.",
		"path", r.path, "local", *r.isLocal, "entries", len(r.entries), "dedupe", r.dedupe)
	return r, nil
}

// DB returns the database registry the computation registry persists into.
func (r *Registry) DB() *dbregistry.Registry {
	return r.db
}

// IsLocal reports the registry's mode.
func (r *Registry) IsLocal() bool {
	return *r.isLocal
}

// Path returns the root directory.
func (r *Registry) Path() string {
	return r.path
}

// Deduplicates reports whether Register skips duplicate entries.
func (r *Registry) Deduplicates() bool {
	return r.dedupe
}

// Register appends an entry to the list and reports whether it was added.
// Without deduplication every call appends.
func (r *Registry) Register(e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dedupe {
		for _, existing := range r.entries {
			if existing.equal(e) {
				return false
			}
		}
	}
	e.Tags = slices.Clone(e.Tags)
	r.entries = append(r.entries, e)
	return true
}

// Entries returns a copy of the registry list.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		e.Tags = slices.Clone(e.Tags)
		out[i] = e
	}
	return out
}

// Lookup finds the entry for a name carrying the version tag.
func (r *Registry) Lookup(name, version string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Name == name && e.hasTag(version) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s@%s", ErrNotRegistered, name, version)
}

// ComputationPath returns the directory of a computation version.
func (r *Registry) ComputationPath(name, version string) string {
	return r.resolve(name, version)
}
