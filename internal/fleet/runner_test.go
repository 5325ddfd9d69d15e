package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/routefleet/internal/core/domain"
	"github.com/vietddude/routefleet/internal/routing"
)

func routes(t *testing.T, rs ...string) domain.RouteSet {
	t.Helper()
	set, err := domain.NewRouteSet(rs)
	require.NoError(t, err)
	return set
}

func ids(names ...string) []domain.SourceID {
	out := make([]domain.SourceID, len(names))
	for i, n := range names {
		out[i] = domain.SourceID(n)
	}
	return out
}

// countingLoader wraps a load function and counts invocations per source.
type countingLoader struct {
	mu    sync.Mutex
	calls map[domain.SourceID]int
	fn    func(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error)
}

func newCountingLoader(fn func(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error)) *countingLoader {
	return &countingLoader{calls: make(map[domain.SourceID]int), fn: fn}
}

func (l *countingLoader) Load(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error) {
	l.mu.Lock()
	l.calls[id]++
	l.mu.Unlock()
	return l.fn(ctx, id, route)
}

func (l *countingLoader) count(id domain.SourceID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[id]
}

func TestRunner_AggregatesOutcome(t *testing.T) {
	rs := routes(t, "", "proxyA", "proxyB")
	failing := map[domain.SourceID]bool{"b": true, "d": true}

	loader := newCountingLoader(func(_ context.Context, id domain.SourceID, _ domain.Route) (*domain.Payload, error) {
		if failing[id] {
			return nil, domain.Errorf(domain.KindTimeout, "no response")
		}
		return &domain.Payload{Items: []string{"x"}}, nil
	})

	r, err := NewRunner(rs, loader, Config{})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), ids("a", "b", "c", "d", "e"))
	require.NoError(t, err)

	assert.Equal(t, 3, out.Succeeded)
	assert.Equal(t, 2, out.Failed)
	assert.Equal(t, 5, out.Total)
	assert.NotEmpty(t, out.RunID)

	for _, res := range out.Results {
		if failing[res.ID] {
			assert.Equal(t, domain.StateFailed, res.State)
			assert.Equal(t, domain.KindTimeout, res.Kind)
			assert.Equal(t, rs.Len(), loader.count(res.ID))
		} else {
			assert.Equal(t, domain.StateLoaded, res.State)
			assert.Equal(t, 1, loader.count(res.ID))
		}
	}

	snap := r.Progress().Snapshot()
	assert.True(t, snap.Done)
	assert.Equal(t, int64(3), snap.Succeeded)
	assert.Equal(t, int64(2), snap.Failed)
	assert.Equal(t, out.RunID, snap.RunID)
}

func TestRunner_ResultsKeepRegistryOrder(t *testing.T) {
	loader := newCountingLoader(func(_ context.Context, id domain.SourceID, _ domain.Route) (*domain.Payload, error) {
		if id == "first" {
			time.Sleep(20 * time.Millisecond)
		}
		return nil, nil
	})

	r, err := NewRunner(routes(t, ""), loader, Config{})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), ids("first", "second", "third"))
	require.NoError(t, err)
	require.Len(t, out.Results, 3)
	assert.Equal(t, ids("first", "second", "third"), []domain.SourceID{out.Results[0].ID, out.Results[1].ID, out.Results[2].ID})
}

func TestRunner_LaunchesAllSourcesConcurrently(t *testing.T) {
	const n = 20
	var started atomic.Int32
	allStarted := make(chan struct{})

	loader := newCountingLoader(func(_ context.Context, _ domain.SourceID, _ domain.Route) (*domain.Payload, error) {
		if started.Add(1) == n {
			close(allStarted)
		}
		select {
		case <-allStarted:
			return &domain.Payload{}, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("sources were not launched concurrently")
		}
	})

	r, err := NewRunner(routes(t, ""), loader, Config{})
	require.NoError(t, err)

	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("src-%02d", i)
	}

	out, err := r.Run(context.Background(), ids(names...))
	require.NoError(t, err)
	assert.Equal(t, n, out.Succeeded)
}

func TestRunner_FatalDoesNotCancelSiblings(t *testing.T) {
	fatalDone := make(chan struct{})

	loader := newCountingLoader(func(ctx context.Context, id domain.SourceID, _ domain.Route) (*domain.Payload, error) {
		if id == "broken" {
			defer close(fatalDone)
			return nil, errors.New("unexpected response shape")
		}
		<-fatalDone
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &domain.Payload{}, nil
	})

	r, err := NewRunner(routes(t, "", "proxyA"), loader, Config{})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), ids("broken", "ok1", "ok2"))
	require.NoError(t, err, "a fatal source error is not a fleet error")

	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1, loader.count("broken"))
	assert.Equal(t, domain.KindUnclassified, out.Results[0].Kind)
}

func TestRunner_PanicIsDefect(t *testing.T) {
	loader := newCountingLoader(func(_ context.Context, id domain.SourceID, _ domain.Route) (*domain.Payload, error) {
		if id == "bad" {
			panic("nil map write")
		}
		return &domain.Payload{}, nil
	})

	r, err := NewRunner(routes(t, ""), loader, Config{})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), ids("good", "bad", "fine"))

	var defect *DefectError
	require.ErrorAs(t, err, &defect)
	assert.Equal(t, domain.SourceID("bad"), defect.SourceID)

	require.NotNil(t, out)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, out.Total, out.Succeeded+out.Failed)
}

func TestRunner_RejectsBadIDs(t *testing.T) {
	loader := newCountingLoader(func(context.Context, domain.SourceID, domain.Route) (*domain.Payload, error) {
		return nil, nil
	})
	r, err := NewRunner(routes(t, ""), loader, Config{})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), ids("a", "a"))
	assert.ErrorIs(t, err, ErrDuplicateSource)

	_, err = r.Run(context.Background(), ids("a", ""))
	assert.ErrorIs(t, err, ErrEmptySourceID)
}

func TestRunner_EmptyFleet(t *testing.T) {
	loader := newCountingLoader(func(context.Context, domain.SourceID, domain.Route) (*domain.Payload, error) {
		return nil, nil
	})
	r, err := NewRunner(routes(t, ""), loader, Config{})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Total)
	assert.Equal(t, 0, out.Succeeded+out.Failed)
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	loader := routing.LoaderFunc(func(context.Context, domain.SourceID, domain.Route) (*domain.Payload, error) {
		return nil, nil
	})

	_, err := NewRunner(routes(t, "", "proxyA"), loader, Config{
		Overrides: routing.Overrides{StartRoute: map[domain.SourceID]int{"ccex": 5}},
	})
	assert.Error(t, err)

	_, err = NewRunner(domain.RouteSet{}, loader, Config{})
	assert.ErrorIs(t, err, domain.ErrEmptyRouteSet)
}

func TestRunner_MaxConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	loader := newCountingLoader(func(context.Context, domain.SourceID, domain.Route) (*domain.Payload, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return &domain.Payload{}, nil
	})

	r, err := NewRunner(routes(t, ""), loader, Config{MaxConcurrency: 2})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), ids("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	assert.Equal(t, 6, out.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
