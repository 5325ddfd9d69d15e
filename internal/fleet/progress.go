package fleet

import (
	"sync"
	"sync/atomic"
)

// ProgressSnapshot is a point-in-time view of a run.
type ProgressSnapshot struct {
	RunID     string `json:"run_id"`
	Total     int64  `json:"total"`
	Settled   int64  `json:"settled"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
	Done      bool   `json:"done"`
}

// Progress counts settled sources while a run is in flight.
type Progress struct {
	mu        sync.RWMutex
	runID     string
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

func (p *Progress) reset(runID string, total int) {
	p.mu.Lock()
	p.runID = runID
	p.mu.Unlock()

	p.total.Store(int64(total))
	p.succeeded.Store(0)
	p.failed.Store(0)
}

func (p *Progress) settle(ok bool) {
	if ok {
		p.succeeded.Add(1)
		return
	}
	p.failed.Add(1)
}

// Snapshot returns the current counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	runID := p.runID
	p.mu.RUnlock()

	s := ProgressSnapshot{
		RunID:     runID,
		Total:     p.total.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
	s.Settled = s.Succeeded + s.Failed
	s.Done = runID != "" && s.Settled == s.Total
	return s
}
