package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/specialistvlad/computesim/internal/bootstrap"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/pool"
)

// Run bootstraps the registries for the configured computation, runs it and
// writes the result to the output writer as JSON.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	result, err := a.simulate(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) simulate(ctx context.Context) (*pool.Result, error) {
	settings, err := a.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	res, err := bootstrap.Build(ctx, a.bootstrapParams(settings))
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap registries: %w", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			a.logger.Warn("Failed to close database registry.", "error", err)
		}
	}()

	entries := res.ComputationRegistry.Entries()
	if len(entries) == 0 || len(entries[len(entries)-1].Tags) == 0 {
		return nil, errors.New("bootstrap registered no computation")
	}
	entry := entries[len(entries)-1]

	cfg, err := poolConfig(settings)
	if err != nil {
		return nil, err
	}
	p, err := pool.New(cfg, res.ComputationRegistry, res.DBRegistry, a.handlers)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Step handlers registered:", "count", len(a.handlers.Names()), "keys", a.handlers.Names())
	result, err := p.Run(ctx, entry.Name, entry.Tags[0])
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	return result, nil
}
