package domain

import (
	"errors"
	"strings"
)

// ErrEmptyRouteSet is returned when a route set has no routes at all.
var ErrEmptyRouteSet = errors.New("route set is empty")

// Route is an access path to a source. The empty route means direct.
type Route string

// DirectRoute reaches a source without an intermediary.
const DirectRoute Route = ""

// IsDirect reports whether the route is the direct route.
func (r Route) IsDirect() bool {
	return r == DirectRoute
}

// String renders the route for logs; the direct route prints as "_".
func (r Route) String() string {
	if r.IsDirect() {
		return "_"
	}
	return string(r)
}

// RouteSet is an ordered, immutable list of routes shared by every source in a run.
type RouteSet struct {
	routes []Route
}

// NewRouteSet copies routes into a RouteSet.
func NewRouteSet(routes []string) (RouteSet, error) {
	if len(routes) == 0 {
		return RouteSet{}, ErrEmptyRouteSet
	}

	rs := make([]Route, len(routes))
	for i, r := range routes {
		rs[i] = Route(strings.TrimSpace(r))
	}
	return RouteSet{routes: rs}, nil
}

// Len returns the number of routes.
func (s RouteSet) Len() int {
	return len(s.routes)
}

// At returns the route at index i. i must be in [0, Len()).
func (s RouteSet) At(i int) Route {
	return s.routes[i]
}

// Contains reports whether i is a valid index.
func (s RouteSet) Contains(i int) bool {
	return i >= 0 && i < len(s.routes)
}

// Routes returns a copy of the routes.
func (s RouteSet) Routes() []Route {
	out := make([]Route, len(s.routes))
	copy(out, s.routes)
	return out
}
