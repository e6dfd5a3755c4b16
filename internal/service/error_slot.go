package service

import (
	"sync"
	"time"

	"github.com/pixelrelay/vote-system/internal/model"
)

// DefaultErrorTTL is how long a transient ErrorState stays visible.
const DefaultErrorTTL = 4 * time.Second

// errorSlot holds one subsystem's ErrorState. Transient states are cleared
// by a timer; a generation counter keeps a stale timer from clearing a newer state.
type errorSlot struct {
	mu    sync.Mutex
	ttl   time.Duration
	state *model.ErrorState
	timer *time.Timer
	gen   uint64
}

func newErrorSlot(ttl time.Duration) *errorSlot {
	return &errorSlot{ttl: ttl}
}

// Set replaces the current state. Transient states auto-clear after ttl.
func (s *errorSlot) Set(state *model.ErrorState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.gen++
	s.state = state

	if state.Kind == model.ErrorKindTransient && s.ttl > 0 {
		gen := s.gen
		s.timer = time.AfterFunc(s.ttl, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.gen == gen {
				s.state = nil
				s.timer = nil
			}
		})
	}
}

// Clear drops the current state.
func (s *errorSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.gen++
	s.state = nil
}

// Get returns a copy of the current state, or nil.
func (s *errorSlot) Get() *model.ErrorState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil
	}
	out := *s.state
	return &out
}

func (s *errorSlot) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
