package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/computesim/internal/compregistry"
	"github.com/specialistvlad/computesim/internal/computation"
	"github.com/specialistvlad/computesim/internal/config"
	"github.com/specialistvlad/computesim/internal/dbregistry"
	"github.com/specialistvlad/computesim/internal/docstore"
)

const fooManifest = `{
  "name": "foo",
  "version": "1.0.0",
  "local": {"type": "function", "handler": "sum.local"}
}`

// writeManifest writes a compspec.json into a fresh directory and returns its path.
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foo", "compspec.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func build(t *testing.T, p Params) *Result {
	t.Helper()
	if p.StoragePath == "" {
		p.StoragePath = t.TempDir()
	}
	res, err := Build(context.Background(), p)
	require.NoError(t, err)
	t.Cleanup(func() { res.Close() })
	return res
}

func TestBuild_RegistersSingleEntry(t *testing.T) {
	path := writeManifest(t, fooManifest)
	res := build(t, Params{ComputationPath: path})

	want := []compregistry.Entry{{
		Name: "foo",
		Tags: []string{"1.0.0"},
		URL:  "https://github.com/MRN-Code/foo",
	}}
	if diff := cmp.Diff(want, res.ComputationRegistry.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_PersistsDefinition(t *testing.T) {
	ctx := context.Background()
	path := writeManifest(t, fooManifest)
	res := build(t, Params{ComputationPath: path})

	def, err := res.ComputationRegistry.Get(ctx, "foo", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "foo", def.Name)
	assert.Equal(t, "1.0.0", def.Version)
	assert.Equal(t, "https://github.com/MRN-Code/foo", def.URL)
	require.NotNil(t, def.Definition)
	assert.Equal(t, computation.StepFunction, def.Definition.Local.Type)
	assert.Equal(t, filepath.Dir(path), def.Definition.Dir)
}

func TestBuild_OnlyNameAndVersionAreRequired(t *testing.T) {
	manifests := map[string]string{
		"extra field":         `{"name": "foo", "version": "1.0.0", "author": "mrn"}`,
		"unknown step type":   `{"name": "foo", "version": "1.0.0", "local": {"type": "docker"}}`,
		"cmd without command": `{"name": "foo", "version": "1.0.0", "local": {"type": "cmd"}}`,
	}

	for name, content := range manifests {
		t.Run(name, func(t *testing.T) {
			res := build(t, Params{ComputationPath: writeManifest(t, content)})

			entries := res.ComputationRegistry.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, "foo", entries[0].Name)
			assert.Equal(t, []string{"1.0.0"}, entries[0].Tags)

			def, err := res.ComputationRegistry.Get(context.Background(), "foo", "1.0.0")
			require.NoError(t, err)
			assert.Equal(t, "https://github.com/MRN-Code/foo", def.URL)
		})
	}
}

func TestBuild_ComputationPathIsManifestDir(t *testing.T) {
	path := writeManifest(t, fooManifest)
	res := build(t, Params{ComputationPath: path})

	dir := filepath.Dir(path)
	reg := res.ComputationRegistry
	assert.Equal(t, dir, reg.Path())
	for _, args := range [][2]string{{"foo", "1.0.0"}, {"bar", "9.9.9"}, {"", ""}} {
		assert.Equal(t, dir, reg.ComputationPath(args[0], args[1]))
	}
}

func TestBuild_DefaultsToLocalMode(t *testing.T) {
	path := writeManifest(t, fooManifest)
	res := build(t, Params{ComputationPath: path})

	cfg := res.DBRegistry.Config()
	assert.True(t, cfg.IsLocal)
	assert.False(t, cfg.IsRemote)
	assert.True(t, cfg.NoURLPrefix)
	assert.Equal(t, docstore.MemoryAdapter, cfg.Local.Store.Adapter)
	assert.Equal(t, docstore.MemoryAdapter, cfg.Remote.Store.Adapter)
	assert.True(t, res.ComputationRegistry.IsLocal())
}

func TestBuild_RemoteMode(t *testing.T) {
	path := writeManifest(t, fooManifest)
	res := build(t, Params{
		ComputationPath: path,
		IsLocal:         Bool(false),
		Server:          config.DBServer{Port: 6984},
	})

	cfg := res.DBRegistry.Config()
	assert.False(t, cfg.IsLocal)
	assert.True(t, cfg.IsRemote)
	assert.Equal(t, dbregistry.DBConfig{Hostname: "localhost", Port: 6984, Protocol: "http"}, cfg.Remote.DB)
	assert.False(t, res.ComputationRegistry.IsLocal())
	assert.Equal(t, "http://localhost:6984/computations", res.DBRegistry.URL(compregistry.ComputationsDB))
}

func TestBuild_StoragePath(t *testing.T) {
	path := writeManifest(t, fooManifest)

	cfg := DBConfig(Params{ComputationPath: path})
	assert.Equal(t, config.DefaultStoragePath, cfg.Path)

	storage := t.TempDir()
	res := build(t, Params{ComputationPath: path, StoragePath: storage})
	assert.Equal(t, storage, res.DBRegistry.Config().Path)
	assert.Equal(t, filepath.Join(storage, "computations"), res.DBRegistry.URL(compregistry.ComputationsDB))
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params func(t *testing.T) Params
		target error
	}{
		{
			name: "missing manifest",
			params: func(t *testing.T) Params {
				return Params{ComputationPath: filepath.Join(t.TempDir(), "missing", "compspec.json")}
			},
			target: os.ErrNotExist,
		},
		{
			name: "invalid manifest",
			params: func(t *testing.T) Params {
				return Params{ComputationPath: writeManifest(t, `{"version": "1.0.0"}`)}
			},
			target: computation.ErrInvalidManifest,
		},
		{
			name: "unknown adapter",
			params: func(t *testing.T) Params {
				return Params{ComputationPath: writeManifest(t, fooManifest), LocalAdapter: "leveldb"}
			},
			target: dbregistry.ErrInvalidConfig,
		},
		{
			name: "remote without port",
			params: func(t *testing.T) Params {
				return Params{ComputationPath: writeManifest(t, fooManifest), IsLocal: Bool(false)}
			},
			target: dbregistry.ErrInvalidConfig,
		},
		{
			name:   "empty path",
			params: func(t *testing.T) Params { return Params{} },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.params(t)
			p.StoragePath = t.TempDir()
			res, err := Build(context.Background(), p)
			require.Error(t, err)
			assert.Nil(t, res)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}
}

func TestBuild_FreshRegistriesPerCall(t *testing.T) {
	path := writeManifest(t, fooManifest)
	first := build(t, Params{ComputationPath: path})
	second := build(t, Params{ComputationPath: path})

	assert.NotSame(t, first.ComputationRegistry, second.ComputationRegistry)
	assert.NotSame(t, first.DBRegistry, second.DBRegistry)
	assert.Len(t, first.ComputationRegistry.Entries(), 1)
	assert.Len(t, second.ComputationRegistry.Entries(), 1)
}

func TestBuild_ReuseAppendsDuplicateEntries(t *testing.T) {
	path := writeManifest(t, fooManifest)
	first := build(t, Params{ComputationPath: path})

	again, err := Build(context.Background(), Params{ComputationPath: path, Reuse: first})
	require.NoError(t, err)
	assert.Same(t, first, again)

	entries := first.ComputationRegistry.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0], entries[1])
}

func TestBuild_ReuseWithDeduplication(t *testing.T) {
	path := writeManifest(t, fooManifest)
	first := build(t, Params{ComputationPath: path, Deduplicate: true})

	_, err := Build(context.Background(), Params{ComputationPath: path, Reuse: first})
	require.NoError(t, err)
	assert.Len(t, first.ComputationRegistry.Entries(), 1)
}

func TestBuild_ReuseRequiresBothRegistries(t *testing.T) {
	path := writeManifest(t, fooManifest)
	_, err := Build(context.Background(), Params{ComputationPath: path, Reuse: &Result{}})
	assert.Error(t, err)
}

func TestBuild_UsesInjectedLoader(t *testing.T) {
	var loaded []string
	loader := computation.LoaderFunc(func(_ context.Context, path string) (*computation.Computation, error) {
		loaded = append(loaded, path)
		return &computation.Computation{Name: "bar", Version: "0.1.0", Dir: filepath.Dir(path)}, nil
	})

	path := filepath.Join(t.TempDir(), "anywhere", "manifest.js")
	res := build(t, Params{ComputationPath: path, Loader: loader})

	assert.Equal(t, []string{path}, loaded)
	entries := res.ComputationRegistry.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://github.com/MRN-Code/bar", entries[0].URL)
}

func TestBuild_LoaderFailureIsReturned(t *testing.T) {
	boom := errors.New("boom")
	loader := computation.LoaderFunc(func(context.Context, string) (*computation.Computation, error) {
		return nil, boom
	})

	_, err := Build(context.Background(), Params{
		ComputationPath: "/nowhere/compspec.js",
		StoragePath:     t.TempDir(),
		Loader:          loader,
	})
	assert.ErrorIs(t, err, boom)
}

func TestResult_CloseNil(t *testing.T) {
	var r *Result
	assert.NoError(t, r.Close())
	assert.NoError(t, (&Result{}).Close())
}
