// Package progress keeps node counters for one top-level workflow run,
// including the nodes its subgraph children run. The tracker travels in the
// context so every level of the engine updates the same counters.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/opsagent/internal/clock"
)

// Delta is an incremental counter change. Fields are signed.
type Delta struct {
	Completed int
	Failed    int
	Paused    int
	Rejected  int
}

// Progress aggregates node counters. It is safe for concurrent use.
type Progress struct {
	ExecutionID string
	Workflow    string
	StartedAt   time.Time

	// Counters; read them through Snapshot.
	Completed int
	Failed    int
	Paused    int
	Rejected  int

	mux      sync.Mutex
	onChange func(Snapshot)
}

// Snapshot is a read-only copy of the counters.
type Snapshot struct {
	ExecutionID string
	Workflow    string
	StartedAt   time.Time
	Completed   int
	Failed      int
	Paused      int
	Rejected    int
}

// Total returns the number of nodes recorded so far.
func (s Snapshot) Total() int {
	return s.Completed + s.Failed + s.Paused + s.Rejected
}

// Update applies d; the onChange callback runs outside the lock.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.Completed += d.Completed
	p.Failed += d.Failed
	p.Paused += d.Paused
	p.Rejected += d.Rejected
	snapshot := p.snapshot()
	cb := p.onChange
	p.mux.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.snapshot()
}

func (p *Progress) snapshot() Snapshot {
	return Snapshot{
		ExecutionID: p.ExecutionID,
		Workflow:    p.Workflow,
		StartedAt:   p.StartedAt,
		Completed:   p.Completed,
		Failed:      p.Failed,
		Paused:      p.Paused,
		Rejected:    p.Rejected,
	}
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker embeds a new tracker in a derived context.
func WithNewTracker(ctx context.Context, executionID, workflow string, onChange func(Snapshot)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tracker := &Progress{
		ExecutionID: executionID,
		Workflow:    workflow,
		StartedAt:   clock.Now(),
		onChange:    onChange,
	}
	return context.WithValue(ctx, trackerKey, tracker), tracker
}

// FromContext returns the tracker carried by ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tracker, ok := ctx.Value(trackerKey).(*Progress)
	return tracker, ok
}

// UpdateCtx applies d to the tracker in ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tracker, ok := FromContext(ctx); ok {
		tracker.Update(d)
	}
}
