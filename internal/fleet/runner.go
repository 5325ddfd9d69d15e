// Package fleet fans a set of sources out over concurrent orchestrations and
// aggregates their outcomes once every source settled.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/routefleet/internal/core/domain"
	"github.com/vietddude/routefleet/internal/metrics"
	"github.com/vietddude/routefleet/internal/routing"
)

var (
	// ErrEmptySourceID is returned when the registry yields an empty identity.
	ErrEmptySourceID = errors.New("empty source id")
	// ErrDuplicateSource is returned when the registry yields the same identity twice.
	ErrDuplicateSource = errors.New("duplicate source id")
)

// DefectError is a failure that escaped the classified-error channel of a source.
type DefectError struct {
	SourceID domain.SourceID
	Err      error
}

func (e *DefectError) Error() string {
	return fmt.Sprintf("defect in source %s: %v", e.SourceID, e.Err)
}

func (e *DefectError) Unwrap() error {
	return e.Err
}

// Config configures a Runner.
type Config struct {
	// MaxConcurrency caps simultaneous sources; 0 launches every source at once.
	MaxConcurrency int
	Classifier     routing.Classifier
	Overrides      routing.Overrides
	Logger         *slog.Logger
}

// Runner executes fleet runs against a fixed RouteSet and loader.
type Runner struct {
	orchestrator *routing.Orchestrator
	maxConc      int
	log          *slog.Logger
	progress     *Progress
}

// NewRunner validates the configuration and builds the shared orchestrator.
func NewRunner(routes domain.RouteSet, loader routing.Loader, cfg Config) (*Runner, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	orch, err := routing.NewOrchestrator(routes, loader, routing.Config{
		Classifier: cfg.Classifier,
		Overrides:  cfg.Overrides,
		Logger:     cfg.Logger,
		OnAttempt:  recordAttempt,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid fleet configuration: %w", err)
	}

	return &Runner{
		orchestrator: orch,
		maxConc:      cfg.MaxConcurrency,
		log:          cfg.Logger,
		progress:     &Progress{},
	}, nil
}

// Progress exposes live counters of the current run.
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run loads every source concurrently and waits for all of them to settle.
//
// Per-source failures never fail the run. The returned error is non-nil only
// for defects: invalid source ids, or a task that panicked or returned an
// unclassified error path. The outcome is still returned alongside a defect
// so callers can report what did settle.
func (r *Runner) Run(ctx context.Context, ids []domain.SourceID) (*domain.FleetOutcome, error) {
	if err := validateIDs(ids); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := r.log.With("run_id", runID)
	r.progress.reset(runID, len(ids))

	sources := make([]*domain.Source, len(ids))
	for i, id := range ids {
		sources[i] = domain.NewSource(id)
	}

	log.Info("Fleet run started", "sources", len(sources), "max_concurrency", r.maxConc)
	start := time.Now()

	// A plain Group: one source's failure must not cancel its siblings.
	var g errgroup.Group
	if r.maxConc > 0 {
		g.SetLimit(r.maxConc)
	}

	for _, src := range sources {
		g.Go(func() error {
			return r.runSource(ctx, src)
		})
	}

	defectErr := g.Wait()
	took := time.Since(start)

	outcome := domain.Summarize(runID, sources, took)
	metrics.FleetRunDuration.Observe(took.Seconds())

	log.Info("Fleet run finished",
		"succeeded", outcome.Succeeded,
		"failed", outcome.Failed,
		"total", outcome.Total,
		"duration", took.Round(time.Millisecond),
	)

	if defectErr != nil {
		return outcome, defectErr
	}
	return outcome, nil
}

func (r *Runner) runSource(ctx context.Context, src *domain.Source) (err error) {
	metrics.FleetInFlight.Inc()
	defer metrics.FleetInFlight.Dec()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Source task panicked", "source", src.ID, "panic", rec, "stack", string(debug.Stack()))
			err = &DefectError{SourceID: src.ID, Err: fmt.Errorf("panic: %v", rec)}
		}
		r.settle(src)
	}()

	_, runErr := r.orchestrator.Run(ctx, src)
	if runErr == nil {
		return nil
	}

	var classified *domain.ClassifiedError
	if errors.As(runErr, &classified) {
		return nil
	}
	return &DefectError{SourceID: src.ID, Err: runErr}
}

func (r *Runner) settle(src *domain.Source) {
	state := src.State
	if state != domain.StateLoaded {
		state = domain.StateFailed
	}
	metrics.SourcesSettledTotal.WithLabelValues(string(state)).Inc()
	metrics.SourceAttempts.Observe(float64(len(src.Attempts)))
	r.progress.settle(state == domain.StateLoaded)
}

func recordAttempt(_ domain.SourceID, a domain.Attempt) {
	kind := "ok"
	if a.Kind != "" {
		kind = string(a.Kind)
	}
	metrics.LoadAttemptsTotal.WithLabelValues(a.Route.String(), kind).Inc()
	metrics.LoadLatency.WithLabelValues(a.Route.String()).Observe(a.Duration.Seconds())
}

func validateIDs(ids []domain.SourceID) error {
	seen := make(map[domain.SourceID]struct{}, len(ids))
	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("source #%d: %w", i, ErrEmptySourceID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("source %s: %w", id, ErrDuplicateSource)
		}
		seen[id] = struct{}{}
	}
	return nil
}
