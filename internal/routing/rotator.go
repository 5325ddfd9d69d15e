package routing

import (
	"fmt"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// RouteRotator walks a RouteSet cyclically for one source.
//
// The first call to Next returns the seeded route. Each later call advances
// the cursor by one, wrapping at the end of the set. Once maxAttempts routes
// were handed out the rotator is exhausted, even though the cursor could keep
// cycling.
type RouteRotator struct {
	routes      domain.RouteSet
	cursor      int
	attempts    int
	maxAttempts int
}

// NewRouteRotator creates a rotator starting at index start.
// maxAttempts <= 0 means one attempt per route.
func NewRouteRotator(routes domain.RouteSet, start, maxAttempts int) (*RouteRotator, error) {
	if routes.Len() == 0 {
		return nil, domain.ErrEmptyRouteSet
	}
	if !routes.Contains(start) {
		return nil, fmt.Errorf("start route %d out of range [0, %d)", start, routes.Len())
	}
	if maxAttempts <= 0 {
		maxAttempts = routes.Len()
	}

	return &RouteRotator{
		routes:      routes,
		cursor:      start,
		maxAttempts: maxAttempts,
	}, nil
}

// Next returns the route for the next attempt and its index.
// ok is false once the attempt budget is spent.
func (r *RouteRotator) Next() (route domain.Route, index int, ok bool) {
	if r.Exhausted() {
		return "", r.cursor, false
	}

	if r.attempts > 0 {
		r.cursor = (r.cursor + 1) % r.routes.Len()
	}
	r.attempts++

	return r.routes.At(r.cursor), r.cursor, true
}

// Exhausted reports whether the attempt budget is spent.
func (r *RouteRotator) Exhausted() bool {
	return r.attempts >= r.maxAttempts
}

// Cursor returns the index of the route last handed out (or the seed before the first call).
func (r *RouteRotator) Cursor() int {
	return r.cursor
}

// Attempts returns the number of routes handed out so far.
func (r *RouteRotator) Attempts() int {
	return r.attempts
}

// MaxAttempts returns the attempt budget.
func (r *RouteRotator) MaxAttempts() int {
	return r.maxAttempts
}
