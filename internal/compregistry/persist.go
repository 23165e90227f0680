package compregistry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/computesim/internal/computation"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/docstore"
	"github.com/specialistvlad/computesim/internal/fsutil"
	"github.com/specialistvlad/computesim/internal/metrics"
)

// manifestBaseName is the file name (without extension) Add and Discover
// look for.
const manifestBaseName = "compspec"

var defaultExtensions = []string{".hcl", ".json", ".yaml", ".yml"}

func documentID(name, version string) string {
	return name + "@" + version
}

// DoAdd persists a definition into the computations database. Persisting
// the same name and version again replaces the stored definition.
func (r *Registry) DoAdd(ctx context.Context, def Definition) error {
	if def.Definition == nil {
		return errors.New("definition must not be nil")
	}
	if def.Name == "" || def.Version == "" {
		return fmt.Errorf("%w: definition requires name and version", computation.ErrInvalidManifest)
	}

	store, err := r.db.Get(ctx, ComputationsDB)
	if err != nil {
		return err
	}

	id := documentID(def.Name, def.Version)
	doc, err := docstore.NewDocument(id, def)
	if err != nil {
		return err
	}
	current, err := store.Get(ctx, id)
	switch {
	case err == nil:
		doc.Rev = current.Rev
	case !errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("failed to read computation %s: %w", id, err)
	}

	rev, err := store.Put(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to persist computation %s: %w", id, err)
	}
	metrics.IncRegistrations()
	ctxlog.FromContext(ctx).Info("Computation persisted.", "id", id, "rev", rev, "url", def.URL)
	return nil
}

// Get reads a persisted definition.
func (r *Registry) Get(ctx context.Context, name, version string) (*Definition, error) {
	store, err := r.db.Get(ctx, ComputationsDB)
	if err != nil {
		return nil, err
	}
	doc, err := store.Get(ctx, documentID(name, version))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s@%s has no persisted definition", ErrNotRegistered, name, version)
		}
		return nil, err
	}
	var def Definition
	if err := doc.Decode(&def); err != nil {
		return nil, err
	}
	if def.Definition != nil {
		def.Definition.Dir = r.ComputationPath(name, version)
	}
	return &def, nil
}

// Add loads the manifest of a registered computation from its resolved path
// and persists it.
func (r *Registry) Add(ctx context.Context, name, version string) (*computation.Computation, error) {
	if _, err := r.Lookup(name, version); err != nil {
		return nil, err
	}

	dir := r.ComputationPath(name, version)
	path, err := r.findManifest(dir)
	if err != nil {
		return nil, err
	}
	comp, err := r.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if comp.Name != name || comp.Version != version {
		return nil, fmt.Errorf("%w: %s declares %s, expected %s@%s", computation.ErrInvalidManifest, path, comp.ID(), name, version)
	}

	err = r.DoAdd(ctx, Definition{Definition: comp, Name: name, URL: comp.URL(), Version: version})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// Discover walks the root path for manifests, registering and persisting
// each computation it finds.
func (r *Registry) Discover(ctx context.Context) ([]*computation.Computation, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Discovering computations.", "path", r.path)

	paths, err := fsutil.FindFilesByExtension(r.path, r.extensions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to walk computations directory %s: %w", r.path, err)
	}

	var found []*computation.Computation
	for _, path := range paths {
		if !isManifest(path) {
			continue
		}
		comp, err := r.loader.Load(ctx, path)
		if err != nil {
			return found, err
		}
		r.Register(Entry{Name: comp.Name, Tags: []string{comp.Version}, URL: comp.URL()})
		if err := r.DoAdd(ctx, Definition{Definition: comp, Name: comp.Name, URL: comp.URL(), Version: comp.Version}); err != nil {
			return found, err
		}
		found = append(found, comp)
	}

	if len(found) == 0 {
		logger.Warn("No computation manifests found in path", "path", r.path)
	}
	return found, nil
}

func (r *Registry) findManifest(dir string) (string, error) {
	for _, ext := range r.extensions() {
		path := filepath.Join(dir, manifestBaseName+ext)
		if fileExists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s manifest found in %s", manifestBaseName, dir)
}

func (r *Registry) extensions() []string {
	if l, ok := r.loader.(interface{ Extensions() []string }); ok {
		return l.Extensions()
	}
	return defaultExtensions
}

func isManifest(path string) bool {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) == manifestBaseName
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
