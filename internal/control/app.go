package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/routefleet/internal/core/config"
	"github.com/vietddude/routefleet/internal/core/domain"
	"github.com/vietddude/routefleet/internal/fleet"
	"github.com/vietddude/routefleet/internal/infra/loader"
	"github.com/vietddude/routefleet/internal/infra/registry"
	"github.com/vietddude/routefleet/internal/routing"
	"github.com/vietddude/routefleet/internal/telemetry"
)

// ErrInterrupted reports that the run's context ended before every source settled.
// The outcome is complete; the caller asked to stop while it was being produced.
var ErrInterrupted = errors.New("fleet run interrupted")

// App wires registry, loader, fleet runner and telemetry for one process.
type App struct {
	cfg       *config.AppConfig
	routes    domain.RouteSet
	registry  registry.Registry
	runner    *fleet.Runner
	telemetry *telemetry.Server
	log       *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	routes, err := cfg.RouteSet()
	if err != nil {
		return nil, err
	}

	// 1. Initialize Loader
	ld, err := NewLoader(cfg, routes)
	if err != nil {
		return nil, fmt.Errorf("failed to init loader: %w", err)
	}

	// 2. Initialize Registry
	reg, err := OpenRegistry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init registry: %w", err)
	}

	// 3. Initialize Runner
	runner, err := fleet.NewRunner(routes, ld, fleet.Config{
		MaxConcurrency: cfg.Fleet.MaxConcurrency,
		Overrides:      cfg.RoutingOverrides(),
	})
	if err != nil {
		_ = reg.Close()
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		routes:   routes,
		registry: reg,
		runner:   runner,
		log:      slog.Default(),
	}

	// 4. Initialize Telemetry
	if cfg.Server.Port > 0 {
		app.telemetry = telemetry.NewServer(runner.Progress(), cfg.Server.Port)
	}

	return app, nil
}

// Run lists the registry and loads every source once.
// The returned error is non-nil for registry failures, defects and
// interruption; the outcome accompanies the latter two.
func (a *App) Run(ctx context.Context) (*domain.FleetOutcome, error) {
	ids, err := a.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	if a.telemetry != nil {
		go func() {
			if err := a.telemetry.Start(); err != nil {
				a.log.Error("Telemetry server failed", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.telemetry.Stop(stopCtx)
		}()
	}

	a.log.Info("Sources listed",
		"backend", a.cfg.Registry.Backend,
		"count", len(ids),
		"routes", a.routes.Len(),
		"loader", a.cfg.Loader.Kind,
	)

	// Attempts are never canceled from above; each loader owns its timeout.
	outcome, err := a.runner.Run(context.WithoutCancel(ctx), ids)
	if err != nil {
		return outcome, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
	}
	return outcome, nil
}

// Close releases registry connections.
func (a *App) Close() error {
	return a.registry.Close()
}

// OpenRegistry connects the configured registry backend.
func OpenRegistry(ctx context.Context, cfg *config.AppConfig) (registry.Registry, error) {
	switch cfg.Registry.Backend {
	case registry.BackendStatic:
		return registry.NewStatic(cfg.Registry.Sources), nil
	case registry.BackendPostgres:
		pg, err := registry.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		slog.Info("Using PostgreSQL registry")
		return pg, nil
	case registry.BackendRedis:
		rdb, err := registry.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		slog.Info("Using Redis registry", "key", cfg.Redis.Key)
		return rdb, nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

// NewLoader builds the configured source loader for routes.
func NewLoader(cfg *config.AppConfig, routes domain.RouteSet) (routing.Loader, error) {
	switch cfg.Loader.Kind {
	case config.LoaderHTTP:
		l, err := loader.NewHTTPLoader(cfg.Loader.HTTP, routes, cfg.Loader.Timeout)
		if err != nil {
			return nil, err
		}
		return l, nil
	case config.LoaderGRPC:
		l, err := loader.NewGRPCLoader(cfg.Loader.GRPC, cfg.Loader.Timeout)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown loader kind %q", cfg.Loader.Kind)
	}
}
