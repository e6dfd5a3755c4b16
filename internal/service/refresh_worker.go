package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/metrics"
	"github.com/pixelrelay/vote-system/internal/model"
)

// Refresh defaults.
const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
)

// WindowView is the voting window as last reported by the backend, with
// enough timing context to estimate the backend's current clock.
type WindowView struct {
	Window     model.VotingWindow
	ServerTime time.Time // backend clock when the snapshot was produced
	ReceivedAt time.Time // local clock when the snapshot was applied
	Live       bool      // false for a warm-start snapshot not yet confirmed by a fetch
}

// WindowSource provides the latest known voting window.
type WindowSource interface {
	CurrentWindow() (WindowView, bool)
}

// RefreshOptions tunes a RefreshWorker.
type RefreshOptions struct {
	FetchTimeout time.Duration
	ErrorTTL     time.Duration
	Cache        *SnapshotCache
	Now          func() time.Time
}

// RefreshWorker periodically polls the backend and publishes the latest
// successful snapshot. At most one fetch is in flight at any time.
type RefreshWorker struct {
	backend Backend
	cache   *SnapshotCache
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger

	inFlight atomic.Bool
	errs     *errorSlot

	mu         sync.Mutex
	snapshot   *model.Snapshot
	receivedAt time.Time
	live       bool
	loading    bool
	gen        uint64 // bumped by Start/Stop; results from an older generation are discarded
	active     *Subscription
	owed       uint64 // generation whose first fetch was skipped behind a stale one
}

var _ WindowSource = (*RefreshWorker)(nil)

// Subscription is the handle returned by Start.
type Subscription struct {
	w      *RefreshWorker
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels future cycles. An in-flight fetch finishes but its result is dropped.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.w.detach(s)
	})
}

// Done is closed once the polling loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// NewRefreshWorker creates a worker. It does not poll until Start or Refetch.
func NewRefreshWorker(backend Backend, opts RefreshOptions, logger zerolog.Logger) *RefreshWorker {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = DefaultErrorTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RefreshWorker{
		backend: backend,
		cache:   opts.Cache,
		timeout: opts.FetchTimeout,
		now:     opts.Now,
		log:     logger.With().Str("component", "refresh-worker").Logger(),
		errs:    newErrorSlot(opts.ErrorTTL),
		loading: true,
	}
}

// WarmStart seeds the published snapshot from the cache. The seeded snapshot
// is served to readers but never used to accept votes until a live fetch lands.
func (w *RefreshWorker) WarmStart(ctx context.Context) bool {
	snap, err := w.cache.Load(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("warm start: cache read failed")
		return false
	}
	if snap == nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snapshot != nil {
		return false
	}
	w.snapshot = snap
	w.receivedAt = w.now()
	w.live = false
	w.log.Info().Time("fetched_at", snap.FetchedAt).Msg("warm start: serving cached snapshot")
	return true
}

// Start begins polling every interval. The first fetch happens immediately.
// Starting again replaces the previous subscription.
func (w *RefreshWorker) Start(ctx context.Context, interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	loopCtx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	prev := w.active
	w.gen++
	sub := &Subscription{w: w, gen: w.gen, cancel: cancel, done: make(chan struct{})}
	w.active = sub
	w.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	go w.loop(loopCtx, sub, interval)
	return sub
}

// Stop is shorthand for sub.Stop().
func (w *RefreshWorker) Stop(sub *Subscription) {
	if sub != nil {
		sub.Stop()
	}
}

func (w *RefreshWorker) detach(sub *Subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == sub {
		w.active = nil
		w.gen++
	}
}

func (w *RefreshWorker) loop(ctx context.Context, sub *Subscription, interval time.Duration) {
	defer close(sub.done)
	if ctx.Err() != nil {
		return
	}
	w.log.Info().Dur("interval", interval).Msg("starting")

	// Run once immediately on startup. If a fetch from a previous
	// subscription is still out, run as soon as it lands.
	if !w.trigger(sub.gen) {
		w.mu.Lock()
		w.owed = sub.gen
		w.mu.Unlock()
		w.flushOwed()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.trigger(sub.gen)
		case <-ctx.Done():
			w.log.Info().Msg("stopping")
			return
		}
	}
}

// Refetch triggers an out-of-band fetch without touching the schedule.
// It returns false when skipped because a fetch is already in flight.
func (w *RefreshWorker) Refetch() bool {
	return w.trigger(w.currentGen())
}

// FetchNow runs one fetch synchronously and returns its error.
// It returns ErrFetchInFlight if another fetch is outstanding.
func (w *RefreshWorker) FetchNow(ctx context.Context) error {
	if !w.inFlight.CompareAndSwap(false, true) {
		metrics.SkippedTicks.Inc()
		return ErrFetchInFlight
	}
	defer w.release()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.fetch(ctx, w.currentGen())
}

func (w *RefreshWorker) trigger(gen uint64) bool {
	if !w.inFlight.CompareAndSwap(false, true) {
		metrics.SkippedTicks.Inc()
		w.log.Debug().Msg("fetch in flight, skipping tick")
		return false
	}

	go func() {
		defer w.release()

		// Not derived from the loop context: Stop lets an in-flight fetch finish.
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		_ = w.fetch(ctx, gen)
	}()
	return true
}

// release clears the in-flight flag and runs a first fetch that was owed
// while this one was outstanding.
func (w *RefreshWorker) release() {
	w.inFlight.Store(false)
	w.flushOwed()
}

func (w *RefreshWorker) flushOwed() {
	for {
		w.mu.Lock()
		gen := w.owed
		w.owed = 0
		if gen == 0 || gen != w.gen {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		if w.trigger(gen) {
			return
		}

		// Still busy: leave the mark for whichever fetch holds the flag.
		w.mu.Lock()
		if w.owed == 0 && w.gen == gen {
			w.owed = gen
		}
		w.mu.Unlock()
		if w.inFlight.Load() {
			return
		}
	}
}

// fetch performs one cycle and publishes its outcome if gen is still current.
func (w *RefreshWorker) fetch(ctx context.Context, gen uint64) (err error) {
	start := time.Now()
	var snap *model.Snapshot

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: fetch snapshot: %v", ErrUnexpected, r)
			snap = nil
		}
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
		w.apply(gen, snap, err)
	}()

	snap, err = w.backend.FetchSnapshot(ctx)
	if err == nil && snap == nil {
		err = fmt.Errorf("%w: empty snapshot", ErrUnexpected)
	}
	return err
}

func (w *RefreshWorker) apply(gen uint64, snap *model.Snapshot, err error) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		metrics.FetchesTotal.WithLabelValues("discarded").Inc()
		w.log.Debug().Msg("discarding result of stopped subscription")
		return
	}
	w.loading = false

	if err != nil {
		w.mu.Unlock()
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		w.log.Warn().Err(err).Msg("fetch failed, keeping previous snapshot")
		w.errs.Set(&model.ErrorState{
			HasError: true,
			Message:  err.Error(),
			Kind:     model.ErrorKindTransient,
			Code:     ErrorCode(err),
			SetAt:    w.now(),
			Retry:    w.FetchNow,
		})
		return
	}

	published := snap.Clone()
	w.snapshot = published
	w.receivedAt = w.now()
	w.live = true
	w.mu.Unlock()

	w.errs.Clear()
	metrics.FetchesTotal.WithLabelValues("success").Inc()
	metrics.SnapshotTimestamp.Set(float64(published.FetchedAt.Unix()))
	w.log.Debug().Int("contestants", len(published.Contestants)).Bool("window_open", published.VotingWindow.IsOpen).Msg("snapshot published")

	if w.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := w.cache.Save(ctx, published); err != nil {
			w.log.Warn().Err(err).Msg("snapshot cache save failed")
		}
	}
}

func (w *RefreshWorker) currentGen() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen
}

// Snapshot returns a copy of the latest published snapshot, or nil.
func (w *RefreshWorker) Snapshot() *model.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot.Clone()
}

// State returns the snapshot together with error and loading flags.
func (w *RefreshWorker) State() model.RefreshState {
	w.mu.Lock()
	snap := w.snapshot.Clone()
	loading := w.loading && w.snapshot == nil
	live := w.live
	w.mu.Unlock()

	return model.RefreshState{
		Snapshot: snap,
		Error:    w.errs.Get(),
		Loading:  loading,
		Fetching: w.inFlight.Load(),
		Live:     live,
	}
}

// CurrentWindow implements WindowSource.
func (w *RefreshWorker) CurrentWindow() (WindowView, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snapshot == nil {
		return WindowView{}, false
	}
	return WindowView{
		Window:     w.snapshot.VotingWindow,
		ServerTime: w.snapshot.FetchedAt,
		ReceivedAt: w.receivedAt,
		Live:       w.live,
	}, true
}
