package computation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/computesim/internal/ctxlog"
)

// decodeFunc turns raw manifest bytes into a Computation.
type decodeFunc func(ctx context.Context, src []byte, path string) (*Computation, error)

// fileLoader reads a file and hands its bytes to a format-specific decoder.
type fileLoader struct {
	format string
	decode decodeFunc
}

// Load implements Loader.
func (l *fileLoader) Load(ctx context.Context, path string) (*Computation, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading computation manifest.", "path", path, "format", l.format)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read computation manifest %s: %w", path, err)
	}

	comp, err := l.decode(ctx, src, path)
	if err != nil {
		return nil, err
	}
	if err := comp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	comp.Dir = filepath.Dir(path)

	logger.Debug("Computation manifest loaded.", "name", comp.Name, "version", comp.Version)
	return comp, nil
}

// ExtensionLoader dispatches to a format loader based on the file extension.
type ExtensionLoader struct {
	loaders map[string]Loader
}

// NewLoader returns an ExtensionLoader that understands .hcl, .json, .yaml
// and .yml manifests.
func NewLoader() *ExtensionLoader {
	l := &ExtensionLoader{loaders: make(map[string]Loader)}
	l.Register(".hcl", NewHCLLoader())
	l.Register(".json", NewJSONLoader())
	yaml := NewYAMLLoader()
	l.Register(".yaml", yaml)
	l.Register(".yml", yaml)
	return l
}

// Register binds a loader to a file extension, replacing any previous one.
func (l *ExtensionLoader) Register(ext string, loader Loader) {
	l.loaders[strings.ToLower(ext)] = loader
}

// Extensions lists the registered extensions in sorted order.
func (l *ExtensionLoader) Extensions() []string {
	exts := make([]string, 0, len(l.loaders))
	for ext := range l.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load implements Loader.
func (l *ExtensionLoader) Load(ctx context.Context, path string) (*Computation, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := l.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, ext, path)
	}
	return loader.Load(ctx, path)
}
