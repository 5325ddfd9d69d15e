package domain

import "time"

// SourceID identifies a remote resource, e.g. "binance".
type SourceID string

// LoadState is the lifecycle state of a source.
type LoadState string

const (
	StateUnloaded LoadState = "unloaded"
	StateLoaded   LoadState = "loaded"
	StateFailed   LoadState = "failed"
)

// Payload is what a successful load produces.
type Payload struct {
	// Items are the entries the source published (symbols, services, ...).
	Items []string
	// Raw is the undecoded body, if the loader keeps it.
	Raw []byte
}

// Attempt records one load attempt of a source.
type Attempt struct {
	Route      Route
	RouteIndex int
	Kind       ErrorKind // empty on success
	Err        error
	Duration   time.Duration
}

// Source is one remote resource and its load state.
// A Source is owned by a single orchestration and is not safe for concurrent use.
type Source struct {
	ID       SourceID
	State    LoadState
	Route    Route
	Payload  *Payload
	Err      *ClassifiedError
	Attempts []Attempt
}

// NewSource creates an unloaded source.
func NewSource(id SourceID) *Source {
	return &Source{ID: id, State: StateUnloaded}
}

// AssignRoute sets the route used by the next attempt.
func (s *Source) AssignRoute(r Route) {
	s.Route = r
}

// RecordAttempt appends an attempt to the source history.
func (s *Source) RecordAttempt(a Attempt) {
	s.Attempts = append(s.Attempts, a)
}

// MarkLoaded moves the source to the loaded state.
func (s *Source) MarkLoaded(p *Payload) {
	s.State = StateLoaded
	s.Payload = p
	s.Err = nil
}

// MarkFailed moves the source to the failed state.
func (s *Source) MarkFailed(err *ClassifiedError) {
	s.State = StateFailed
	s.Err = err
}

// Terminal reports whether the source reached loaded or failed.
func (s *Source) Terminal() bool {
	return s.State == StateLoaded || s.State == StateFailed
}
