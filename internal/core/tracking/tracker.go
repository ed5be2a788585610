package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/ports"
)

// Tracker consumes a SampleSource on its own goroutine, runs every sample
// through Accept and reports the outcome through the registered handlers.
// Handlers run serially on the tracker goroutine and must not call Stop.
type Tracker struct {
	source ports.SampleSource
	opts   domain.SourceOptions
	now    func() time.Time

	// life serializes Start and Stop; mu guards the fields below and is
	// never held while waiting on the goroutine.
	life       sync.Mutex
	mu         sync.Mutex
	cfg        domain.FilterConfig
	state      FilterState
	onStatus   func(domain.StatusEvent)
	onAccepted func(domain.Sample)
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewTracker creates a stopped tracker reading from source.
func NewTracker(source ports.SampleSource, cfg domain.FilterConfig, opts domain.SourceOptions) *Tracker {
	return &Tracker{
		source: source,
		opts:   opts,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetConfig replaces the thresholds; the next sample sees the new values.
func (t *Tracker) SetConfig(cfg domain.FilterConfig) {
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
}

// Config returns the thresholds currently in use.
func (t *Tracker) Config() domain.FilterConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// SetHandlers registers the callbacks. Either may be nil.
func (t *Tracker) SetHandlers(onStatus func(domain.StatusEvent), onAccepted func(domain.Sample)) {
	t.mu.Lock()
	t.onStatus = onStatus
	t.onAccepted = onAccepted
	t.mu.Unlock()
}

// Start subscribes to the source. Calling Start on a running tracker is a
// no-op. The subscription outlives ctx; only Stop ends it.
func (t *Tracker) Start(ctx context.Context) error {
	t.life.Lock()
	defer t.life.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	readings, err := t.source.Subscribe(runCtx, t.opts)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to sample source: %w", err)
	}

	t.state = FilterState{}
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go t.run(runCtx, readings, t.done)
	return nil
}

// Stop cancels the subscription and waits for the tracker goroutine to exit,
// so no handler fires after Stop returns. The filter state is cleared.
// Calling Stop on a stopped tracker is a no-op.
func (t *Tracker) Stop() {
	t.life.Lock()
	defer t.life.Unlock()

	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.running = false
	t.mu.Unlock()

	cancel()
	<-done

	t.mu.Lock()
	t.state = FilterState{}
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()
}

// IsRunning reports whether Start has been called without a matching Stop.
func (t *Tracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tracker) run(ctx context.Context, readings <-chan domain.Reading, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-readings:
			if !ok {
				return
			}
			t.handle(r)
		}
	}
}

func (t *Tracker) handle(r domain.Reading) {
	switch {
	case r.Failure != nil:
		t.mu.Lock()
		onStatus := t.onStatus
		t.mu.Unlock()

		if onStatus != nil {
			failure := *r.Failure
			onStatus(domain.StatusEvent{Kind: domain.StatusFailure, Failure: &failure, Time: t.now()})
		}

	case r.Sample != nil:
		sample := *r.Sample

		t.mu.Lock()
		next, decision := Accept(t.state, sample, t.cfg)
		t.state = next
		onStatus, onAccepted := t.onStatus, t.onAccepted
		t.mu.Unlock()

		if onStatus != nil {
			onStatus(domain.StatusEvent{Kind: domain.StatusSample, Sample: &sample, Decision: &decision, Time: t.now()})
		}
		if decision.Accepted && onAccepted != nil {
			onAccepted(sample)
		}
	}
}
