// Package sum provides the decentralized counting computation used to
// exercise a pipeline end to end: every site increments a running sum and
// the remote averages the sites' sums.
package sum

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/handlers"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// OnRunLocalSum starts the count at 1 when the input carries "start" and
// otherwise adds one to the incoming sum.
func OnRunLocalSum(ctx context.Context, req handlers.Request) (handlers.Response, error) {
	if _, ok := req.Input["start"]; ok {
		return handlers.Response{Output: map[string]any{"sum": 1.0}}, nil
	}
	sum, err := number(req.Input["sum"])
	if err != nil {
		return handlers.Response{}, fmt.Errorf("site %s: %w", req.State.Site, err)
	}
	return handlers.Response{Output: map[string]any{"sum": sum + 1}}, nil
}

// OnRunRemoteSum averages the sites' sums and completes once the final
// iteration has been aggregated.
func OnRunRemoteSum(ctx context.Context, req handlers.Request) (handlers.Response, error) {
	logger := ctxlog.FromContext(ctx)
	if len(req.Input) == 0 {
		return handlers.Response{}, fmt.Errorf("remote received no site outputs")
	}

	sites := make([]string, 0, len(req.Input))
	for site := range req.Input {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	var total float64
	for _, site := range sites {
		out, ok := req.Input[site].(map[string]any)
		if !ok {
			return handlers.Response{}, fmt.Errorf("site %s sent %T, expected an object", site, req.Input[site])
		}
		n, err := number(out["sum"])
		if err != nil {
			return handlers.Response{}, fmt.Errorf("site %s: %w", site, err)
		}
		total += n
	}
	mean := total / float64(len(sites))
	logger.Debug("Aggregated site sums.", "sites", len(sites), "mean", mean, "iteration", req.State.Iteration)

	return handlers.Response{
		Output:   map[string]any{"sum": mean},
		Complete: req.State.Iterations > 0 && req.State.Iteration >= req.State.Iterations,
	}, nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("missing sum")
	default:
		return 0, fmt.Errorf("sum has type %T, expected a number", v)
	}
}

// Register registers the handlers with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.RegisterHandler("OnRunLocalSum", OnRunLocalSum)
	h.RegisterHandler("OnRunRemoteSum", OnRunRemoteSum)
}
