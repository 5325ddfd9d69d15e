// Package routing drives a single source through its routes.
//
// This package contains:
//   - RouteRotator: cyclic cursor over the shared RouteSet
//   - ClassifyError: maps load errors onto the fixed kind taxonomy
//   - Orchestrator: the retry loop that tries routes until load or exhaustion
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// ErrNoLoader is returned when an orchestrator is built without a loader.
var ErrNoLoader = errors.New("no source loader configured")

// Loader attempts to load one source through one route.
type Loader interface {
	Load(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error) {
	return f(ctx, id, route)
}

// Overrides are per-source exceptions consulted once before the first attempt.
type Overrides struct {
	// StartRoute seeds the rotator cursor for a source.
	StartRoute map[domain.SourceID]int
	// MaxAttempts replaces the default budget of len(RouteSet).
	MaxAttempts map[domain.SourceID]int
}

// Start returns the starting route index for id.
func (o Overrides) Start(id domain.SourceID) int {
	return o.StartRoute[id]
}

// Budget returns the attempt budget for id, 0 meaning the default.
func (o Overrides) Budget(id domain.SourceID) int {
	return o.MaxAttempts[id]
}

// Validate checks the overrides against routes.
func (o Overrides) Validate(routes domain.RouteSet) error {
	for id, idx := range o.StartRoute {
		if !routes.Contains(idx) {
			return fmt.Errorf("start route for %s: index %d out of range [0, %d)", id, idx, routes.Len())
		}
	}
	for id, n := range o.MaxAttempts {
		if n < 1 {
			return fmt.Errorf("max attempts for %s: must be >= 1, got %d", id, n)
		}
	}
	return nil
}

// AttemptHook observes every attempt after it completes.
type AttemptHook func(id domain.SourceID, a domain.Attempt)

// Config configures an Orchestrator.
type Config struct {
	Classifier Classifier
	Overrides  Overrides
	Logger     *slog.Logger
	OnAttempt  AttemptHook
}

// Orchestrator runs the retry loop for sources sharing one RouteSet.
// It holds no per-source state and is safe for concurrent use.
type Orchestrator struct {
	routes     domain.RouteSet
	loader     Loader
	classifier Classifier
	overrides  Overrides
	log        *slog.Logger
	onAttempt  AttemptHook
}

// NewOrchestrator validates cfg against routes.
func NewOrchestrator(routes domain.RouteSet, loader Loader, cfg Config) (*Orchestrator, error) {
	if routes.Len() == 0 {
		return nil, domain.ErrEmptyRouteSet
	}
	if loader == nil {
		return nil, ErrNoLoader
	}
	if err := cfg.Overrides.Validate(routes); err != nil {
		return nil, err
	}

	if cfg.Classifier == nil {
		cfg.Classifier = DefaultClassifier
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Orchestrator{
		routes:     routes,
		loader:     loader,
		classifier: cfg.Classifier,
		overrides:  cfg.Overrides,
		log:        cfg.Logger,
		onAttempt:  cfg.OnAttempt,
	}, nil
}

// Run drives src to a terminal state.
// It returns true when the source loaded, otherwise false and the terminal
// *domain.ClassifiedError. Any other error type signals a defect.
func (o *Orchestrator) Run(ctx context.Context, src *domain.Source) (bool, error) {
	rotator, err := NewRouteRotator(o.routes, o.overrides.Start(src.ID), o.overrides.Budget(src.ID))
	if err != nil {
		return false, fmt.Errorf("source %s: %w", src.ID, err)
	}

	log := o.log.With("source", src.ID)

	for {
		route, index, ok := rotator.Next()
		if !ok {
			// Budget of zero cannot happen; NewRouteRotator enforces >= 1.
			return false, fmt.Errorf("source %s: rotator exhausted before first attempt", src.ID)
		}
		src.AssignRoute(route)

		start := time.Now()
		payload, loadErr := o.loader.Load(ctx, src.ID, route)
		attempt := domain.Attempt{
			Route:      route,
			RouteIndex: index,
			Duration:   time.Since(start),
		}

		if loadErr == nil {
			src.RecordAttempt(attempt)
			o.observe(src.ID, attempt)
			if payload == nil {
				payload = &domain.Payload{}
			}
			src.MarkLoaded(payload)

			log.Info("Source loaded",
				"items", len(payload.Items),
				"route", route.String(),
				"attempts", rotator.Attempts(),
			)
			return true, nil
		}

		classified := o.classifier.Classify(loadErr)
		attempt.Kind = classified.Kind
		attempt.Err = classified
		src.RecordAttempt(attempt)
		o.observe(src.ID, attempt)

		if !classified.Retryable() {
			src.MarkFailed(classified)
			log.Error("Fatal load error",
				"route", route.String(),
				"kind", classified.Kind,
				"error", classified.Message,
			)
			return false, classified
		}

		log.Warn("Load attempt failed",
			"route", route.String(),
			"kind", classified.Kind,
			"error", classified.Message,
			"attempt", rotator.Attempts(),
			"max_attempts", rotator.MaxAttempts(),
		)

		if rotator.Exhausted() {
			src.MarkFailed(classified)
			log.Warn("Routes exhausted",
				"attempts", rotator.Attempts(),
				"kind", classified.Kind,
			)
			return false, classified
		}
	}
}

func (o *Orchestrator) observe(id domain.SourceID, a domain.Attempt) {
	if o.onAttempt != nil {
		o.onAttempt(id, a)
	}
}
