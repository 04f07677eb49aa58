package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/pkgresolve/internal/cache"
	"github.com/vk/pkgresolve/internal/engine"
	"github.com/vk/pkgresolve/internal/hcl"
	"github.com/vk/pkgresolve/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	loader   *hcl.Loader
	store    *cache.FileStore
	metrics  *prometheus.Registry
	engine   *engine.Engine

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Resolved paths are
// written to outW and logs to logW. With no modules the core modules are
// registered. Startup failures panic.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg.RegisterModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Types())

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		panic(fmt.Errorf("failed to create work directory: %w", err))
	}
	store, err := cache.OpenFileStore(cfg.WorkDir)
	if err != nil {
		panic(fmt.Errorf("failed to open result cache: %w", err))
	}
	logger.Debug("Result cache opened.", "path", store.Path(), "entries", store.Len())

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := engine.New(engine.Options{
		Registry:    reg,
		Store:       store,
		BuildRoot:   cfg.BuildRoot,
		WorkDir:     cfg.WorkDir,
		WatchFiles:  cfg.WatchFiles,
		Parallelism: cfg.Workers,
		Metrics:     engine.NewMetrics(metrics),
	})
	if err != nil {
		panic(fmt.Errorf("failed to create engine: %w", err))
	}

	var excludes []string
	if ex, ok := cfg.workDirExclude(); ok {
		excludes = append(excludes, ex)
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		loader:   hcl.NewLoader(cfg.BuildRoot, cfg.BuildFiles, excludes),
		store:    store,
		metrics:  metrics,
		engine:   eng,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the registry the engine's collectors are registered on.
func (a *App) Metrics() *prometheus.Registry {
	return a.metrics
}

// Config returns the validated configuration.
func (a *App) Config() *Config {
	return a.config
}
