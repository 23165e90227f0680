package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/computesim/internal/bootstrap"
	"github.com/specialistvlad/computesim/internal/config"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/pool"
)

// loadSettings reads the process configuration and applies the CLI overrides.
func (a *App) loadSettings(ctx context.Context) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading process configuration...", "config_path", a.config.ConfigPath)

	settings, err := a.loader.Load(ctx, a.config.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if a.config.Participants > 0 {
		settings.Pool.Participants = a.config.Participants
	}
	if a.config.Iterations > 0 {
		settings.Pool.Iterations = a.config.Iterations
	}
	if a.config.Workers > 0 {
		settings.Pool.Workers = a.config.Workers
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("Process configuration loaded.",
		"db_port", settings.PouchDBServer.Port,
		"storage_path", settings.Storage.Path,
		"participants", settings.Pool.Participants,
		"iterations", settings.Pool.Iterations,
	)
	return settings, nil
}

func (a *App) bootstrapParams(settings *config.Config) bootstrap.Params {
	return bootstrap.Params{
		ComputationPath: a.config.ComputationPath,
		IsLocal:         bootstrap.Bool(!a.config.Remote),
		Server:          *settings.PouchDBServer,
		StoragePath:     settings.Storage.Path,
		LocalAdapter:    settings.Storage.LocalAdapter,
		RemoteAdapter:   settings.Storage.RemoteAdapter,
		LocalURL:        settings.Storage.LocalURL,
		RemoteURL:       settings.Storage.RemoteURL,
		Deduplicate:     a.config.Deduplicate,
	}
}

func poolConfig(settings *config.Config) (pool.Config, error) {
	timeout, err := settings.StepTimeout()
	if err != nil {
		return pool.Config{}, err
	}
	return pool.Config{
		ConsortiumID: settings.Pool.ConsortiumID,
		Participants: settings.Pool.Participants,
		Iterations:   settings.Pool.Iterations,
		Workers:      settings.Pool.Workers,
		StepTimeout:  timeout,
	}, nil
}
