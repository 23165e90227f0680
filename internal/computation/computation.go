package computation

import (
	"context"
	"errors"
	"fmt"
)

// URLTemplate is the canonical source location of a computation, keyed by name.
const URLTemplate = "https://github.com/MRN-Code/%s"

var (
	// ErrInvalidManifest is returned when a manifest lacks a required field or
	// cannot be decoded.
	ErrInvalidManifest = errors.New("invalid computation manifest")
	// ErrUnsupportedFormat is returned when no loader handles a file extension.
	ErrUnsupportedFormat = errors.New("unsupported manifest format")
)

// StepType selects how a pipeline step is executed.
type StepType string

const (
	// StepCommand runs an external process that speaks JSON over stdin/stdout.
	StepCommand StepType = "cmd"
	// StepFunction runs a Go handler registered in-process.
	StepFunction StepType = "function"
)

// Step describes one side (local or remote) of a computation.
type Step struct {
	Type    StepType `json:"type" yaml:"type"`
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Handler string   `json:"handler,omitempty" yaml:"handler,omitempty"`
}

// Computation is the in-memory form of a computation manifest.
type Computation struct {
	Name        string         `json:"name" yaml:"name"`
	Version     string         `json:"version" yaml:"version"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Iterations  int            `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Input       map[string]any `json:"input,omitempty" yaml:"input,omitempty"`
	Local       *Step          `json:"local,omitempty" yaml:"local,omitempty"`
	Remote      *Step          `json:"remote,omitempty" yaml:"remote,omitempty"`

	// Dir is the directory the manifest was loaded from. Command steps run
	// there. It is not part of the persisted definition.
	Dir string `json:"-" yaml:"-"`
}

// URL returns the canonical source location of the computation.
func (c *Computation) URL() string {
	return fmt.Sprintf(URLTemplate, c.Name)
}

// ID returns the "<name>@<version>" identifier used for storage and paths.
func (c *Computation) ID() string {
	return c.Name + "@" + c.Version
}

// Validate checks the fields the registries rely on: name and version.
// Steps are checked when a pool runs them.
func (c *Computation) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidManifest)
	}
	if c.Version == "" {
		return fmt.Errorf("%w: computation %q is missing version", ErrInvalidManifest, c.Name)
	}
	return nil
}

// Kind returns the step type, StepCommand when none is set.
func (s *Step) Kind() StepType {
	if s.Type == "" {
		return StepCommand
	}
	return s.Type
}

// Check reports whether the step can be executed.
func (s *Step) Check() error {
	switch s.Kind() {
	case StepCommand:
		if s.Command == "" {
			return errors.New("cmd step requires a command")
		}
	case StepFunction:
		if s.Handler == "" {
			return errors.New("function step requires a handler")
		}
	default:
		return fmt.Errorf("unknown step type %q", s.Type)
	}
	return nil
}

// Loader reads a computation manifest from a path at runtime.
type Loader interface {
	Load(ctx context.Context, path string) (*Computation, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (*Computation, error)

// Load calls f(ctx, path).
func (f LoaderFunc) Load(ctx context.Context, path string) (*Computation, error) {
	return f(ctx, path)
}
