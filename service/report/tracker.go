package report

import (
	"context"
	"sync"
	"time"

	"github.com/viant/smcluster/internal/clock"
)

// Tracker collects phase timings of one node-process run. It is safe for
// concurrent use.
type Tracker struct {
	StartedAt time.Time
	timings   []Timing
	onRecord  func(Timing)
	mux       sync.Mutex
}

// Record appends a phase timing and notifies the registered callback outside
// the lock.
func (t *Tracker) Record(phase string, elapsed time.Duration) {
	if t == nil {
		return
	}
	timing := Timing{Phase: phase, Seconds: elapsed.Seconds()}
	t.mux.Lock()
	t.timings = append(t.timings, timing)
	cb := t.onRecord
	t.mux.Unlock()
	if cb != nil {
		cb(timing)
	}
}

// Timings returns a copy of the recorded timings.
func (t *Tracker) Timings() []Timing {
	if t == nil {
		return nil
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	return append([]Timing(nil), t.timings...)
}

// Elapsed returns the time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return clock.Since(t.StartedAt)
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker embeds a new Tracker in a derived context. onRecord, when
// set, observes every recorded timing.
func WithNewTracker(ctx context.Context, onRecord func(Timing)) (context.Context, *Tracker) {
	if ctx == nil {
		ctx = context.Background()
	}
	tracker := &Tracker{StartedAt: clock.Now(), onRecord: onRecord}
	return context.WithValue(ctx, trackerKey, tracker), tracker
}

// FromContext extracts the Tracker from ctx.
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	tracker, ok := ctx.Value(trackerKey).(*Tracker)
	return tracker, ok
}

// Phase starts timing phase and returns the function that records it. It is
// a no-op when ctx carries no tracker.
func Phase(ctx context.Context, phase string) func() {
	tracker, ok := FromContext(ctx)
	if !ok {
		return func() {}
	}
	started := clock.Now()
	return func() {
		tracker.Record(phase, clock.Since(started))
	}
}
