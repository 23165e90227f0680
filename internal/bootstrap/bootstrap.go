package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/computesim/internal/compregistry"
	"github.com/specialistvlad/computesim/internal/computation"
	"github.com/specialistvlad/computesim/internal/config"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/dbregistry"
	"github.com/specialistvlad/computesim/internal/docstore"
	"github.com/specialistvlad/computesim/internal/metrics"
)

const (
	// RemoteHostname and RemoteProtocol address the remote database service.
	RemoteHostname = "localhost"
	RemoteProtocol = "http"
)

// Params are the inputs of Build.
type Params struct {
	// ComputationPath is the manifest file of the computation to register.
	ComputationPath string
	// IsLocal selects local mode. Nil means local.
	IsLocal *bool
	// Server supplies the remote database port.
	Server config.DBServer
	// StoragePath is the local storage root. Defaults to config.DefaultStoragePath.
	StoragePath string

	// LocalAdapter and RemoteAdapter name the store adapter of each mode.
	// Both default to "memory".
	LocalAdapter  string
	RemoteAdapter string
	LocalURL      string
	RemoteURL     string

	// Loader reads the manifest. Defaults to computation.NewLoader().
	Loader computation.Loader
	// Deduplicate skips appending an entry the registry already holds.
	Deduplicate bool
	// Reuse bootstraps into an existing pair of registries instead of
	// constructing new ones.
	Reuse *Result
}

// Bool returns a pointer to b, for Params.IsLocal.
func Bool(b bool) *bool {
	return &b
}

func (p Params) isLocal() bool {
	if p.IsLocal == nil {
		return true
	}
	return *p.IsLocal
}

// Result is the registry pair a pipeline runner pool is built from.
type Result struct {
	ComputationRegistry *compregistry.Registry
	DBRegistry          *dbregistry.Registry
}

// Close releases the database registry's stores.
func (r *Result) Close() error {
	if r == nil || r.DBRegistry == nil {
		return nil
	}
	return r.DBRegistry.Close()
}

// DBConfig derives the database registry configuration for a bootstrap.
// Remote mode targets RemoteProtocol://RemoteHostname:<Server.Port>.
func DBConfig(p Params) dbregistry.Config {
	isLocal := p.isLocal()
	path := p.StoragePath
	if path == "" {
		path = config.DefaultStoragePath
	}
	localAdapter := p.LocalAdapter
	if localAdapter == "" {
		localAdapter = docstore.MemoryAdapter
	}
	remoteAdapter := p.RemoteAdapter
	if remoteAdapter == "" {
		remoteAdapter = docstore.MemoryAdapter
	}

	return dbregistry.Config{
		IsLocal:  isLocal,
		IsRemote: !isLocal,
		Local: dbregistry.LocalConfig{
			Store: dbregistry.StoreConfig{Adapter: localAdapter, URL: p.LocalURL},
		},
		NoURLPrefix: true,
		Path:        path,
		Remote: dbregistry.RemoteConfig{
			DB: dbregistry.DBConfig{
				Hostname: RemoteHostname,
				Port:     p.Server.Port,
				Protocol: RemoteProtocol,
			},
			Store: dbregistry.StoreConfig{Adapter: remoteAdapter, URL: p.RemoteURL},
		},
	}
}

// Build registers the computation at p.ComputationPath into a database
// registry and computation registry pair.
//
// Errors from constructing a registry or loading the manifest are returned
// as is. Registries Build constructed are closed on failure; nothing else is
// rolled back.
func Build(ctx context.Context, p Params) (res *Result, err error) {
	isLocal := p.isLocal()
	if p.Reuse != nil && p.Reuse.DBRegistry != nil {
		isLocal = p.Reuse.DBRegistry.IsLocal()
	}
	defer func() { metrics.ObserveBootstrap(isLocal, err) }()

	if p.ComputationPath == "" {
		return nil, errors.New("computation path must not be empty")
	}
	computationDir := filepath.Dir(p.ComputationPath)
	ctx, logger := ctxlog.With(ctx, "computation_path", p.ComputationPath)
	logger.Debug("Bootstrapping registries.", "computation_dir", computationDir, "local", isLocal)

	loader := p.Loader
	if loader == nil {
		loader = computation.NewLoader()
	}

	res, owned, err := p.registries(ctx, computationDir, loader)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Result, error) {
		if owned {
			res.Close()
		}
		return nil, err
	}

	comp, err := loader.Load(ctx, p.ComputationPath)
	if err != nil {
		return fail(fmt.Errorf("failed to load computation: %w", err))
	}

	url := comp.URL()
	added := res.ComputationRegistry.Register(compregistry.Entry{
		Name: comp.Name,
		Tags: []string{comp.Version},
		URL:  url,
	})
	if !added {
		logger.Debug("Computation entry already registered, skipping append.", "name", comp.Name, "version", comp.Version)
	}

	err = res.ComputationRegistry.DoAdd(ctx, compregistry.Definition{
		Definition: comp,
		Name:       comp.Name,
		URL:        url,
		Version:    comp.Version,
	})
	if err != nil {
		return fail(err)
	}

	logger.Info("Registries bootstrapped.", "name", comp.Name, "version", comp.Version, "entries", len(res.ComputationRegistry.Entries()))
	return res, nil
}

// registries returns the pair to register into and whether Build owns it.
func (p Params) registries(ctx context.Context, computationDir string, loader computation.Loader) (*Result, bool, error) {
	if p.Reuse != nil {
		if p.Reuse.ComputationRegistry == nil || p.Reuse.DBRegistry == nil {
			return nil, false, errors.New("reused result must carry both registries")
		}
		return p.Reuse, false, nil
	}

	db, err := dbregistry.New(ctx, DBConfig(p))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create database registry: %w", err)
	}

	opts := []compregistry.Option{
		compregistry.WithPath(computationDir),
		compregistry.WithLocal(p.isLocal()),
		compregistry.WithLoader(loader),
		compregistry.WithPathResolver(func(string, string) string { return computationDir }),
	}
	if p.Deduplicate {
		opts = append(opts, compregistry.WithDeduplication())
	}
	comps, err := compregistry.New(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, false, fmt.Errorf("failed to create computation registry: %w", err)
	}

	return &Result{ComputationRegistry: comps, DBRegistry: db}, true, nil
}
