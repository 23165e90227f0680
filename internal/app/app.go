package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/computesim/internal/config"
	"github.com/specialistvlad/computesim/internal/ctxlog"
	"github.com/specialistvlad/computesim/internal/handlers"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	handlers   *handlers.Handlers
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW. Without modules the core modules are registered.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...handlers.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if loader == nil {
		loader = config.NewLoader()
	}

	h := handlers.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	h.RegisterModules(modules...)
	logger.Debug("All step handler modules registered.", "count", len(modules), "handlers", h.Names())

	return &App{
		ctx:      ctxlog.WithLogger(context.Background(), logger),
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		handlers: h,
	}
}

// Handlers returns the application's step handlers. This is primarily for testing.
func (a *App) Handlers() *handlers.Handlers {
	return a.handlers
}
