package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/model"
)

// Simulator defaults: 200-800ms latency, 10% independent failure rate.
const (
	DefaultMinLatency     = 200 * time.Millisecond
	DefaultMaxLatency     = 800 * time.Millisecond
	DefaultFailureRate    = 0.10
	DefaultDriftMax       = 3
	DefaultVotingDuration = 2 * time.Hour
)

// RandSource is the randomness the simulator draws from. *rand.Rand from
// math/rand/v2 satisfies it; tests pass scripted sources.
type RandSource interface {
	Float64() float64
	Int64N(n int64) int64
}

// SimulatorConfig configures latency, failures and the initial dataset.
type SimulatorConfig struct {
	MinLatency     time.Duration
	MaxLatency     time.Duration
	FailureRate    float64
	DriftMax       int // max random votes added per contestant on each fetch; 0 disables drift
	VotingDuration time.Duration
	Contestants    []model.Contestant // defaults to DefaultContestants()
	Rand           RandSource
	Now            func() time.Time
}

// Simulator is an in-process stand-in for the voting API.
type Simulator struct {
	cfg SimulatorConfig
	log zerolog.Logger

	mu          sync.Mutex
	rnd         RandSource
	contestants []model.Contestant
	windowStart time.Time
	windowEnd   time.Time
	override    *bool
}

var _ Backend = (*Simulator)(nil)

// NewSimulator builds a simulator whose voting window opens now.
func NewSimulator(cfg SimulatorConfig, logger zerolog.Logger) *Simulator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if cfg.VotingDuration <= 0 {
		cfg.VotingDuration = DefaultVotingDuration
	}
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	contestants := cfg.Contestants
	if contestants == nil {
		contestants = DefaultContestants()
	}

	start := cfg.Now()
	s := &Simulator{
		cfg:         cfg,
		log:         logger.With().Str("component", "backend-sim").Logger(),
		rnd:         cfg.Rand,
		contestants: make([]model.Contestant, len(contestants)),
		windowStart: start,
		windowEnd:   start.Add(cfg.VotingDuration),
	}
	copy(s.contestants, contestants)
	return s
}

// FetchSnapshot returns a copy of the current state after a simulated delay.
func (s *Simulator) FetchSnapshot(ctx context.Context) (*model.Snapshot, error) {
	delay, fail := s.draw()
	if err := sleepCtx(ctx, delay); err != nil {
		return nil, err
	}
	if fail {
		s.log.Debug().Dur("latency", delay).Msg("fetch snapshot: simulated failure")
		return nil, fmt.Errorf("%w: fetch snapshot failed", ErrNetwork)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.driftLocked()
	snap := &model.Snapshot{
		Contestants:  make([]model.Contestant, len(s.contestants)),
		VotingWindow: s.windowLocked(),
		FetchedAt:    s.cfg.Now(),
	}
	copy(snap.Contestants, s.contestants)
	return snap, nil
}

// SubmitVote increments contestantID's count after a simulated delay.
func (s *Simulator) SubmitVote(ctx context.Context, contestantID string) error {
	delay, fail := s.draw()
	if err := sleepCtx(ctx, delay); err != nil {
		return err
	}
	if fail {
		s.log.Debug().Str("contestant_id", contestantID).Msg("submit vote: simulated failure")
		return fmt.Errorf("%w: submit vote failed", ErrNetwork)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.windowLocked().IsOpen {
		return ErrWindowClosed
	}
	for i := range s.contestants {
		c := &s.contestants[i]
		if c.ID != contestantID {
			continue
		}
		if !c.IsActive {
			return fmt.Errorf("%w: %s is inactive", ErrUnknownContestant, contestantID)
		}
		c.VoteCount++
		s.log.Debug().Str("contestant_id", contestantID).Int("vote_count", c.VoteCount).Msg("vote accepted")
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownContestant, contestantID)
}

// SetWindowOpen forces the window open or closed regardless of the clock.
func (s *Simulator) SetWindowOpen(open bool) {
	s.mu.Lock()
	s.override = &open
	s.mu.Unlock()
}

// ClearWindowOverride returns the window to clock-driven behavior.
func (s *Simulator) ClearWindowOverride() {
	s.mu.Lock()
	s.override = nil
	s.mu.Unlock()
}

// VoteCount returns the current count for contestantID (0 if unknown).
func (s *Simulator) VoteCount(contestantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contestants {
		if c.ID == contestantID {
			return c.VoteCount
		}
	}
	return 0
}

// draw picks the latency and failure outcome for one call.
// Each call draws independently, so failures are uncorrelated.
func (s *Simulator) draw() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := s.cfg.MinLatency
	if span := s.cfg.MaxLatency - s.cfg.MinLatency; span > 0 {
		delay += time.Duration(s.rnd.Int64N(int64(span) + 1))
	}
	fail := s.rnd.Float64() < s.cfg.FailureRate
	return delay, fail
}

func (s *Simulator) driftLocked() {
	if s.cfg.DriftMax <= 0 {
		return
	}
	for i := range s.contestants {
		if s.contestants[i].IsActive {
			s.contestants[i].VoteCount += int(s.rnd.Int64N(int64(s.cfg.DriftMax) + 1))
		}
	}
}

func (s *Simulator) windowLocked() model.VotingWindow {
	now := s.cfg.Now()
	open := !now.Before(s.windowStart) && now.Before(s.windowEnd)
	if s.override != nil {
		open = *s.override
	}
	return model.VotingWindow{
		IsOpen:    open,
		StartTime: s.windowStart,
		EndTime:   s.windowEnd,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultContestants is the seed roster served by the simulator.
func DefaultContestants() []model.Contestant {
	return []model.Contestant{
		{ID: "c1", Name: "Maya Rivers", Talent: "Vocalist", ImageURL: "/images/contestants/c1.jpg", VoteCount: 1243, IsActive: true},
		{ID: "c2", Name: "The Flying Ortegas", Talent: "Acrobatics", ImageURL: "/images/contestants/c2.jpg", VoteCount: 987, IsActive: true},
		{ID: "c3", Name: "Jonah Park", Talent: "Stand-up comedy", ImageURL: "/images/contestants/c3.jpg", VoteCount: 1105, IsActive: true},
		{ID: "c4", Name: "Lena Voss", Talent: "Magic", ImageURL: "/images/contestants/c4.jpg", VoteCount: 856, IsActive: true},
		{ID: "c5", Name: "Beat Collective", Talent: "Dance crew", ImageURL: "/images/contestants/c5.jpg", VoteCount: 1321, IsActive: true},
		{ID: "c6", Name: "Theo Marsh", Talent: "Piano", ImageURL: "/images/contestants/c6.jpg", VoteCount: 612, IsActive: false},
	}
}
