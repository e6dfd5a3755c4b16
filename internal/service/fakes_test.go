package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pixelrelay/vote-system/internal/model"
)

// scriptedBackend returns queued outcomes in order; once the queue is empty
// every call succeeds. A non-nil gate blocks each call until it is closed.
type scriptedBackend struct {
	mu          sync.Mutex
	submitErrs  []error
	fetchErrs   []error
	submitCalls int
	fetchCalls  int
	votes       map[string]int
	window      model.VotingWindow
	gate        chan struct{}
	started     chan struct{}
	panicSubmit bool
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{
		votes:   make(map[string]int),
		window:  openWindow(),
		started: make(chan struct{}, 16),
	}
}

func (b *scriptedBackend) FetchSnapshot(ctx context.Context) (*model.Snapshot, error) {
	b.mu.Lock()
	b.fetchCalls++
	gate := b.gate
	var err error
	if len(b.fetchErrs) > 0 {
		err, b.fetchErrs = b.fetchErrs[0], b.fetchErrs[1:]
	}
	calls := b.fetchCalls
	window := b.window
	b.mu.Unlock()

	select {
	case b.started <- struct{}{}:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{
		Contestants: []model.Contestant{
			{ID: "c1", Name: "One", VoteCount: calls, IsActive: true},
			{ID: "c2", Name: "Two", VoteCount: calls * 2, IsActive: true},
		},
		VotingWindow: window,
		FetchedAt:    time.Now(),
	}, nil
}

func (b *scriptedBackend) SubmitVote(ctx context.Context, contestantID string) error {
	b.mu.Lock()
	b.submitCalls++
	gate := b.gate
	doPanic := b.panicSubmit
	var err error
	if len(b.submitErrs) > 0 {
		err, b.submitErrs = b.submitErrs[0], b.submitErrs[1:]
	}
	b.mu.Unlock()

	select {
	case b.started <- struct{}{}:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if doPanic {
		panic("backend exploded")
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.votes[contestantID]++
	b.mu.Unlock()
	return nil
}

func (b *scriptedBackend) SubmitCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitCalls
}

func (b *scriptedBackend) FetchCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetchCalls
}

func networkErr() error {
	return fmt.Errorf("%w: scripted", ErrNetwork)
}

// staticWindow is a WindowSource with a fixed, live window.
type staticWindow struct {
	view WindowView
	ok   bool
}

func (s *staticWindow) CurrentWindow() (WindowView, bool) { return s.view, s.ok }

func openWindow() model.VotingWindow {
	now := time.Now()
	return model.VotingWindow{IsOpen: true, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)}
}

func liveWindow(w model.VotingWindow) *staticWindow {
	now := time.Now()
	return &staticWindow{ok: true, view: WindowView{Window: w, ServerTime: now, ReceivedAt: now, Live: true}}
}

// scriptedRand replays fixed values, falling back to defaults when exhausted.
type scriptedRand struct {
	mu     sync.Mutex
	floats []float64
	ints   []int64
}

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Int64N(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// eventually polls cond until it holds or the timeout elapses.
func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
