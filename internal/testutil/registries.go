package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/computesim/internal/compregistry"
	"github.com/specialistvlad/computesim/internal/computation"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/dbregistry"
	"github.com/specialistvlad/computesim/internal/docstore"
)

// Registries persists comp into a fresh pair of in-memory registries whose
// resolver points every computation at a temporary directory. The database
// registry is closed when the test ends.
func Registries(t *testing.T, comp *computation.Computation) (*compregistry.Registry, *dbregistry.Registry) {
	t.Helper()
	ctx := ctxlog.Discard(context.Background())

	db, err := dbregistry.New(ctx, dbregistry.Config{
		IsLocal: true,
		Local:   dbregistry.LocalConfig{Store: dbregistry.StoreConfig{Adapter: docstore.MemoryAdapter}},
		Path:    t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	comps, err := compregistry.New(ctx, db,
		compregistry.WithPath(dir),
		compregistry.WithPathResolver(func(string, string) string { return dir }),
	)
	require.NoError(t, err)
	require.NoError(t, comps.DoAdd(ctx, compregistry.Definition{
		Definition: comp, Name: comp.Name, URL: comp.URL(), Version: comp.Version,
	}))
	return comps, db
}
