package domain

import "time"

// SourceResult is the terminal view of one source after a run.
type SourceResult struct {
	ID       SourceID
	State    LoadState
	Route    Route
	Items    int
	Attempts int
	Kind     ErrorKind
	Err      error
}

// FleetOutcome summarizes a fleet run. It is computed once, after every source settled.
type FleetOutcome struct {
	RunID     string
	Succeeded int
	Failed    int
	Total     int
	Duration  time.Duration
	Results   []SourceResult
}

// Summarize builds an outcome from settled sources, in the given order.
// A source still unloaded counts as failed so that succeeded+failed == total.
func Summarize(runID string, sources []*Source, took time.Duration) *FleetOutcome {
	out := &FleetOutcome{
		RunID:    runID,
		Total:    len(sources),
		Duration: took,
		Results:  make([]SourceResult, 0, len(sources)),
	}

	for _, s := range sources {
		res := SourceResult{
			ID:       s.ID,
			State:    s.State,
			Route:    s.Route,
			Attempts: len(s.Attempts),
		}

		if s.State == StateLoaded {
			out.Succeeded++
			if s.Payload != nil {
				res.Items = len(s.Payload.Items)
			}
		} else {
			out.Failed++
			res.State = StateFailed
			if s.Err != nil {
				res.Kind = s.Err.Kind
				res.Err = s.Err
			}
		}

		out.Results = append(out.Results, res)
	}

	return out
}

// FailedResults returns results that did not load.
func (o *FleetOutcome) FailedResults() []SourceResult {
	var failed []SourceResult
	for _, r := range o.Results {
		if r.State != StateLoaded {
			failed = append(failed, r)
		}
	}
	return failed
}
