package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/metrics"
	"github.com/pixelrelay/vote-system/internal/model"
)

// DefaultCloseGuard rejects votes this close to the reported window end.
const DefaultCloseGuard = 5 * time.Second

// VoteRecordStore is the durable vote store the engine depends on.
type VoteRecordStore interface {
	// Read degrades every failure to "not voted".
	Read(ctx context.Context) *model.VoteRecord
	// ReadStrict reports medium failures; corrupt data still reads as nil.
	ReadStrict(ctx context.Context) (*model.VoteRecord, error)
	Write(ctx context.Context, rec *model.VoteRecord) error
	Clear(ctx context.Context) error
}

// EngineOptions tunes a VotingEngine.
type EngineOptions struct {
	ErrorTTL   time.Duration
	CloseGuard time.Duration
	AllowReset bool
	Now        func() time.Time
}

// VotingEngine enforces one vote per client. All contestant views share the
// single persisted record; none keeps its own copy of vote state.
type VotingEngine struct {
	store   VoteRecordStore
	backend Backend
	window  WindowSource
	opts    EngineOptions
	log     zerolog.Logger

	mu         sync.Mutex
	submitting bool
	// pending holds a vote the backend accepted but the store failed to persist.
	pending *model.VoteRecord
	errs    map[string]*errorSlot
}

// NewVotingEngine wires the engine to its store, backend and window source.
func NewVotingEngine(store VoteRecordStore, backend Backend, window WindowSource, opts EngineOptions, logger zerolog.Logger) *VotingEngine {
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = DefaultErrorTTL
	}
	if opts.CloseGuard < 0 {
		opts.CloseGuard = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &VotingEngine{
		store:   store,
		backend: backend,
		window:  window,
		opts:    opts,
		log:     logger.With().Str("component", "voting-engine").Logger(),
		errs:    make(map[string]*errorSlot),
	}
}

// ContestantView is the engine observed from one contestant's perspective.
type ContestantView struct {
	e  *VotingEngine
	id string
}

// View returns a view scoped to contestantID.
func (e *VotingEngine) View(contestantID string) *ContestantView {
	return &ContestantView{e: e, id: contestantID}
}

func (v *ContestantView) ContestantID() string { return v.id }

func (v *ContestantView) GetStatus(ctx context.Context) model.VoteStatus {
	return v.e.Status(ctx, v.id)
}

func (v *ContestantView) SubmitVote(ctx context.Context) (*model.VoteRecord, error) {
	return v.e.SubmitVote(ctx, v.id)
}

func (v *ContestantView) Retry(ctx context.Context) (*model.VoteRecord, error) {
	return v.e.Retry(ctx, v.id)
}

// Status derives contestantID's view from the global record on every call.
func (e *VotingEngine) Status(ctx context.Context, contestantID string) model.VoteStatus {
	rec := e.store.Read(ctx)

	e.mu.Lock()
	submitting := e.submitting
	if rec == nil && e.pending != nil {
		p := *e.pending
		rec = &p
	}
	e.mu.Unlock()

	st := model.VoteStatus{
		ContestantID: contestantID,
		IsSubmitting: submitting,
		Error:        e.slot(contestantID).Get(),
	}
	if rec != nil {
		st.HasVoted = true
		st.VotedContestantID = rec.ContestantID
		st.VotedForThis = rec.ContestantID == contestantID
		st.HasVotedForOther = rec.ContestantID != contestantID
	}
	return st
}

// SubmitVote casts this client's one vote for contestantID.
func (e *VotingEngine) SubmitVote(ctx context.Context, contestantID string) (rec *model.VoteRecord, err error) {
	if contestantID == "" {
		return nil, fmt.Errorf("%w: empty contestant id", ErrUnknownContestant)
	}
	if !e.acquire() {
		metrics.VotesTotal.WithLabelValues("in_progress").Inc()
		return nil, ErrSubmitInProgress
	}
	defer e.release()

	attemptID := uuid.NewString()
	log := e.log.With().Str("contestant_id", contestantID).Str("attempt_id", attemptID).Logger()
	slot := e.slot(contestantID)

	// A new attempt is the user action that ends any previous error for this contestant.
	slot.Clear()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: submit vote: %v", ErrUnexpected, r)
			rec = nil
			log.Error().Interface("panic", r).Msg("submit vote panicked")
		}
		if err != nil {
			e.surface(slot, contestantID, attemptID, err)
			metrics.VotesTotal.WithLabelValues(outcomeLabel(err)).Inc()
		}
	}()

	existing, err := e.store.ReadStrict(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil || e.hasPending() {
		return nil, ErrAlreadyVoted
	}
	if !e.windowAccepts() {
		return nil, ErrWindowClosed
	}

	start := time.Now()
	err = e.backend.SubmitVote(ctx, contestantID)
	metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn().Err(err).Msg("backend rejected vote")
		return nil, err
	}

	rec = model.NewVoteRecord(contestantID, e.opts.Now())
	if err := e.store.Write(ctx, rec); err != nil {
		// The backend counted the vote; keep it so only the write is retried.
		e.mu.Lock()
		e.pending = rec
		e.mu.Unlock()
		log.Error().Err(err).Msg("vote accepted but not persisted")
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues("success").Inc()
	log.Info().Msg("vote recorded")
	return rec, nil
}

// Retry runs the retry bound to contestantID's current error.
func (e *VotingEngine) Retry(ctx context.Context, contestantID string) (*model.VoteRecord, error) {
	slot := e.slot(contestantID)
	state := slot.Get()
	if !state.Retryable() {
		return nil, ErrNothingToRetry
	}
	// Starting a retry ends the transient error state
	slot.Clear()
	if err := state.Retry(ctx); err != nil {
		return nil, err
	}
	return e.store.Read(ctx), nil
}

// ResetVote clears the vote record. Only available when AllowReset is set.
func (e *VotingEngine) ResetVote(ctx context.Context) error {
	if !e.opts.AllowReset {
		return ErrResetDisabled
	}
	if !e.acquire() {
		return ErrSubmitInProgress
	}
	defer e.release()

	if err := e.store.Clear(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.pending = nil
	slots := make([]*errorSlot, 0, len(e.errs))
	for _, s := range e.errs {
		slots = append(slots, s)
	}
	e.mu.Unlock()

	for _, s := range slots {
		s.Clear()
	}
	e.log.Warn().Msg("vote reset")
	return nil
}

// persistPending retries the store write for a vote the backend already accepted.
func (e *VotingEngine) persistPending(ctx context.Context) error {
	if !e.acquire() {
		return ErrSubmitInProgress
	}
	defer e.release()

	e.mu.Lock()
	rec := e.pending
	e.mu.Unlock()
	if rec == nil {
		return nil
	}

	slot := e.slot(rec.ContestantID)
	if err := e.store.Write(ctx, rec); err != nil {
		e.surface(slot, rec.ContestantID, "", err)
		return err
	}

	e.mu.Lock()
	e.pending = nil
	e.mu.Unlock()
	slot.Clear()
	metrics.VotesTotal.WithLabelValues("success").Inc()
	e.log.Info().Str("contestant_id", rec.ContestantID).Msg("pending vote persisted")
	return nil
}

// surface converts err into the contestant's ErrorState.
func (e *VotingEngine) surface(slot *errorSlot, contestantID, attemptID string, err error) {
	if errors.Is(err, ErrSubmitInProgress) {
		return
	}
	state := &model.ErrorState{
		HasError:  true,
		Message:   UserMessage(err),
		Kind:      ErrorKind(err),
		Code:      ErrorCode(err),
		AttemptID: attemptID,
		SetAt:     e.opts.Now(),
	}
	if state.Kind == model.ErrorKindTransient {
		if e.hasPending() {
			state.Retry = e.persistPending
		} else {
			state.Retry = func(ctx context.Context) error {
				_, err := e.SubmitVote(ctx, contestantID)
				return err
			}
		}
	}
	slot.Set(state)
}

// windowAccepts evaluates the latest window against the backend's estimated clock.
func (e *VotingEngine) windowAccepts() bool {
	if e.window == nil {
		return false
	}
	view, ok := e.window.CurrentWindow()
	if !ok {
		return false
	}
	return AcceptsVotes(view, e.opts.Now(), e.opts.CloseGuard)
}

// AcceptsVotes reports whether a vote may be submitted against view at local
// time now. The backend clock is estimated as the snapshot's server time plus
// local time elapsed since the snapshot arrived, so client clock skew does not
// matter. Votes within guard of the window end are refused.
func AcceptsVotes(view WindowView, now time.Time, guard time.Duration) bool {
	if !view.Live || !view.Window.IsOpen {
		return false
	}
	if view.Window.EndTime.IsZero() || view.ServerTime.IsZero() {
		return true
	}
	elapsed := now.Sub(view.ReceivedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	serverNow := view.ServerTime.Add(elapsed)
	return serverNow.Add(guard).Before(view.Window.EndTime)
}

func (e *VotingEngine) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitting {
		return false
	}
	e.submitting = true
	return true
}

func (e *VotingEngine) release() {
	e.mu.Lock()
	e.submitting = false
	e.mu.Unlock()
}

func (e *VotingEngine) hasPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil
}

func (e *VotingEngine) slot(contestantID string) *errorSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.errs[contestantID]
	if !ok {
		s = newErrorSlot(e.opts.ErrorTTL)
		e.errs[contestantID] = s
	}
	return s
}

func outcomeLabel(err error) string {
	switch ErrorCode(err) {
	case CodeAlreadyVoted:
		return "already_voted"
	case CodeWindowClosed:
		return "window_closed"
	case CodeNetworkError:
		return "network_error"
	case CodeStorageError:
		return "storage_error"
	case CodeUnknownContestant:
		return "unknown_contestant"
	default:
		return "error"
	}
}
