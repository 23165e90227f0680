// Package print provides a pass-through step that logs what it receives.
// It is handy as the local or remote side of a computation under
// construction.
package print

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/handlers"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// OnRunPrint logs every input key in sorted order and returns the input
// unchanged as its output.
func OnRunPrint(ctx context.Context, req handlers.Request) (handlers.Response, error) {
	logger := ctxlog.FromContext(ctx).With("site", req.State.Site, "iteration", req.State.Iteration)

	if req.Input == nil {
		logger.Info("Printing input", "value", "(null)")
		return handlers.Response{Output: map[string]any{}}, nil
	}

	keys := make([]string, 0, len(req.Input))
	for k := range req.Input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(req.Input))
	for _, k := range keys {
		logger.Info("Printing input", "key", k, "value", fmt.Sprintf("%v", req.Input[k]))
		out[k] = req.Input[k]
	}
	return handlers.Response{Output: out}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.RegisterHandler("OnRunPrint", OnRunPrint)
}
