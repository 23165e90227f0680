package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/computesim/internal/handlers"
)

// SleeperModule is a shared, self-contained module for concurrency tests.
// Its step sleeps, records when each site ran, and echoes its input.
type SleeperModule struct {
	mu            sync.Mutex
	executions    map[string]ExecutionRecord
	sleepDuration time.Duration
}

// NewSleeperModule creates a new sleeper module for testing.
func NewSleeperModule(sleep time.Duration) *SleeperModule {
	return &SleeperModule{
		executions:    make(map[string]ExecutionRecord),
		sleepDuration: sleep,
	}
}

// Register registers the "OnRunSleeper" step handler.
func (m *SleeperModule) Register(h *handlers.Handlers) {
	h.RegisterHandler("OnRunSleeper", func(ctx context.Context, req handlers.Request) (handlers.Response, error) {
		start := time.Now()
		select {
		case <-time.After(m.sleepDuration):
		case <-ctx.Done():
			return handlers.Response{}, ctx.Err()
		}
		end := time.Now()

		key := fmt.Sprintf("%s/%d", req.State.Site, req.State.Iteration)
		m.mu.Lock()
		m.executions[key] = ExecutionRecord{Start: start, End: end}
		m.mu.Unlock()

		return handlers.Response{Output: req.Input}, nil
	})
}

// Executions returns the recorded executions keyed by "<site>/<iteration>".
func (m *SleeperModule) Executions() map[string]ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ExecutionRecord, len(m.executions))
	for k, v := range m.executions {
		out[k] = v
	}
	return out
}

// Records returns the recorded executions in no particular order.
func (m *SleeperModule) Records() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutionRecord, 0, len(m.executions))
	for _, v := range m.executions {
		out = append(out, v)
	}
	return out
}
