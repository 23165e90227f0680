// Package handlers holds the in-process step functions that computations
// with `type = "function"` steps run instead of spawning a process.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// State tells a step where it runs within a pipeline run.
type State struct {
	RunID      string `json:"runId"`
	Site       string `json:"clientId"`
	Iteration  int    `json:"iteration"`
	Iterations int    `json:"iterations"`
}

// Request is what a step receives. Command steps read it as JSON on stdin.
type Request struct {
	Input map[string]any `json:"input"`
	State State          `json:"state"`
}

// Response is what a step returns. Command steps write it as JSON on stdout.
type Response struct {
	Output   map[string]any `json:"output"`
	Complete bool           `json:"complete,omitempty"`
}

// Func is an in-process step implementation.
type Func func(ctx context.Context, req Request) (Response, error)

// Module is implemented by packages that contribute step handlers.
type Module interface {
	Register(h *Handlers)
}

// Handlers holds all the registered step functions.
type Handlers struct {
	mu  sync.RWMutex
	all map[string]Func
}

// New creates and initializes a new Handlers instance.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]Func),
	}
}

// RegisterHandler registers a step function under a name.
func (h *Handlers) RegisterHandler(name string, fn Func) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("step handler with name '%s' already registered", name))
	}
	slog.Debug("Registering step handler.", "name", name)
	h.all[name] = fn
}

// RegisterModules registers every module's handlers.
func (h *Handlers) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(h)
	}
}

// Handler returns the step function registered under name.
func (h *Handlers) Handler(name string) (Func, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.all[name]
	return fn, ok
}

// Names lists the registered handler names in sorted order.
func (h *Handlers) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.all))
	for name := range h.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
