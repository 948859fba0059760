package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/sampler"
)

// Run is the handle of one tracking run. The device it owns is released when
// Done is closed.
type Run struct {
	ID        string
	SessionID string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}

	// guarded by Tracker.mu
	stopping bool

	mu      sync.Mutex
	sampler *sampler.Sampler
	frames  int64
	last    *sampler.Sample
	err     error
}

// Status is a snapshot of the live run for the status route.
type Status struct {
	Tracking        bool            `json:"tracking"`
	Stopping        bool            `json:"stopping,omitempty"`
	RunID           string          `json:"run_id,omitempty"`
	SessionID       string          `json:"session_id,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	Frames          int64           `json:"frames"`
	TotalChecks     int             `json:"total_checks"`
	FocusedChecks   int             `json:"focused_checks"`
	FocusPercentage float64         `json:"focus_percentage"`
	LastSample      *sampler.Sample `json:"last_sample,omitempty"`
}

// Done is closed once the ingestion loop has exited.
func (r *Run) Done() <-chan struct{} { return r.done }

// Err reports why the loop ended early. Nil after a normal stop or EOF.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Status snapshots the run's counters.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	total, focused := r.sampler.Counts()
	started := r.StartedAt
	st := Status{
		Tracking:        true,
		RunID:           r.ID,
		SessionID:       r.SessionID,
		StartedAt:       &started,
		Frames:          r.frames,
		TotalChecks:     total,
		FocusedChecks:   focused,
		FocusPercentage: r.sampler.Percentage(),
	}
	if r.last != nil {
		last := *r.last
		st.LastSample = &last
	}
	return st
}

func (r *Run) observe(at time.Time, focused bool) (sampler.Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames++
	sample, ok := r.sampler.Observe(at, focused)
	if ok {
		r.last = &sample
	}
	return sample, ok
}

func (r *Run) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}
