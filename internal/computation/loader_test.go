package computation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtensionLoader_Formats(t *testing.T) {
	t.Parallel()

	expected := &Computation{
		Name:       "decentralized-test",
		Version:    "1.0.0",
		Iterations: 3,
		Input:      map[string]any{"start": true},
		Local: &Step{
			Type:    StepCommand,
			Command: "python",
			Args:    []string{"./local.py"},
		},
	}

	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "hcl",
			file: "compspec.hcl",
			content: `
computation "decentralized-test" {
  version    = "1.0.0"
  iterations = 3
  input      = { start = true }

  local {
    type    = "cmd"
    command = "python"
    args    = ["./local.py"]
  }
}
`,
		},
		{
			name: "json",
			file: "compspec.json",
			content: `{
  "name": "decentralized-test",
  "version": "1.0.0",
  "iterations": 3,
  "input": {"start": true},
  "local": {"type": "cmd", "command": "python", "args": ["./local.py"]}
}`,
		},
		{
			name: "yaml",
			file: "compspec.yaml",
			content: `
name: decentralized-test
version: 1.0.0
iterations: 3
input:
  start: true
local:
  type: cmd
  command: python
  args: [./local.py]
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeManifest(t, tc.file, tc.content)

			got, err := NewLoader().Load(context.Background(), path)
			require.NoError(t, err)

			if diff := cmp.Diff(expected, got, cmpopts.IgnoreFields(Computation{}, "Dir")); diff != "" {
				t.Errorf("loaded computation mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, filepath.Dir(path), got.Dir)
		})
	}
}

func TestComputation_URL(t *testing.T) {
	c := &Computation{Name: "foo", Version: "1.0.0"}
	assert.Equal(t, "https://github.com/MRN-Code/foo", c.URL())
	assert.Equal(t, "foo@1.0.0", c.ID())
}

func TestLoader_DefaultsStepTypeToCommand(t *testing.T) {
	path := writeManifest(t, "compspec.hcl", `
computation "foo" {
  version = "1.0.0"
  local {
    command = "python"
  }
}
`)
	got, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, got.Local)
	assert.Equal(t, StepType(""), got.Local.Type)
	assert.Equal(t, StepCommand, got.Local.Kind())
	assert.Nil(t, got.Remote)
}

func TestLoader_IgnoresUnknownFieldsAndUncheckedSteps(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "extra json field",
			file:    "compspec.json",
			content: `{"name": "foo", "version": "1.0.0", "author": "mrn"}`,
		},
		{
			name:    "extra yaml field",
			file:    "compspec.yaml",
			content: "name: foo\nversion: 1.0.0\nauthor: mrn\n",
		},
		{
			name: "extra hcl attribute and block",
			file: "compspec.hcl",
			content: `
computation "foo" {
  version = "1.0.0"
  author  = "mrn"
  meta {
    license = "MIT"
  }
  local {
    command = "python"
    shell   = "bash"
  }
}
`,
		},
		{
			name:    "unknown step type",
			file:    "compspec.json",
			content: `{"name": "foo", "version": "1.0.0", "local": {"type": "docker"}}`,
		},
		{
			name:    "cmd step without command",
			file:    "compspec.json",
			content: `{"name": "foo", "version": "1.0.0", "local": {"type": "cmd"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeManifest(t, tc.file, tc.content)
			got, err := NewLoader().Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, "foo", got.Name)
			assert.Equal(t, "1.0.0", got.Version)
		})
	}
}

func TestStep_Check(t *testing.T) {
	testCases := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{name: "cmd", step: Step{Type: StepCommand, Command: "python"}},
		{name: "untyped defaults to cmd", step: Step{Command: "python"}},
		{name: "function", step: Step{Type: StepFunction, Handler: "OnRunLocalSum"}},
		{name: "cmd without command", step: Step{Type: StepCommand}, wantErr: "requires a command"},
		{name: "untyped without command", step: Step{}, wantErr: "requires a command"},
		{name: "function without handler", step: Step{Type: StepFunction}, wantErr: "requires a handler"},
		{name: "unknown type", step: Step{Type: "docker"}, wantErr: `unknown step type "docker"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.step.Check()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		file    string
		content string
		target  error
	}{
		{
			name:    "missing version in json",
			file:    "compspec.json",
			content: `{"name": "foo"}`,
			target:  ErrInvalidManifest,
		},
		{
			name:    "missing name in yaml",
			file:    "compspec.yml",
			content: "version: 1.0.0\n",
			target:  ErrInvalidManifest,
		},
		{
			name:    "hcl without version attribute",
			file:    "compspec.hcl",
			content: `computation "foo" {}`,
			target:  ErrInvalidManifest,
		},
		{
			name: "hcl with two computations",
			file: "compspec.hcl",
			content: `
computation "a" { version = "1" }
computation "b" { version = "1" }
`,
			target: ErrInvalidManifest,
		},
		{
			name:    "hcl syntax error",
			file:    "compspec.hcl",
			content: `computation "foo" {`,
			target:  ErrInvalidManifest,
		},
		{
			name:    "malformed json",
			file:    "compspec.json",
			content: `{"name": "foo", "version": }`,
			target:  ErrInvalidManifest,
		},
		{
			name:    "unsupported extension",
			file:    "compspec.js",
			content: `module.exports = {}`,
			target:  ErrUnsupportedFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeManifest(t, tc.file, tc.content)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtensionLoader_Register(t *testing.T) {
	l := NewLoader()
	called := false
	l.Register(".JS", LoaderFunc(func(ctx context.Context, path string) (*Computation, error) {
		called = true
		return &Computation{Name: "js", Version: "0"}, nil
	}))

	got, err := l.Load(context.Background(), "/any/compspec.js")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "js", got.Name)
	assert.Equal(t, []string{".hcl", ".js", ".json", ".yaml", ".yml"}, l.Extensions())
}
