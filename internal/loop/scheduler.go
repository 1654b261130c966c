package loop

import (
	"context"
	"sync"
	"time"
)

// Handle identifies a scheduled step so it can be cancelled.
type Handle uint64

// Scheduler runs callbacks at the next display frame.
type Scheduler interface {
	// Schedule registers f to run once at the next frame.
	Schedule(f func()) Handle
	// Cancel drops a scheduled callback. It is a no-op if the handle is
	// unknown or the callback already ran.
	Cancel(h Handle)
}

type pendingStep struct {
	h Handle
	f func()
}

// FrameScheduler is a manually advanced Scheduler. The window host calls
// Advance once per display frame; tests call it to step deterministically.
type FrameScheduler struct {
	mu      sync.Mutex
	counter Handle
	pending []pendingStep
}

// NewFrameScheduler creates an empty frame scheduler.
func NewFrameScheduler() *FrameScheduler {
	return &FrameScheduler{}
}

func (s *FrameScheduler) Schedule(f func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	s.pending = append(s.pending, pendingStep{h: s.counter, f: f})
	return s.counter
}

func (s *FrameScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pending {
		if p.h == h {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Advance runs the callbacks that were pending when it was called and
// returns how many ran. Callbacks scheduled while advancing wait for the
// next call; callbacks cancelled while advancing do not run.
func (s *FrameScheduler) Advance() int {
	s.mu.Lock()
	limit := s.counter
	s.mu.Unlock()

	ran := 0
	for {
		s.mu.Lock()
		if len(s.pending) == 0 || s.pending[0].h > limit {
			s.mu.Unlock()
			return ran
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		next.f()
		ran++
	}
}

// Pending returns the number of scheduled callbacks.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// TickerScheduler advances a FrameScheduler from a wall-clock ticker, for
// headless runs.
type TickerScheduler struct {
	*FrameScheduler
	interval time.Duration
}

// NewTickerScheduler creates a scheduler that advances every interval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	return &TickerScheduler{
		FrameScheduler: NewFrameScheduler(),
		interval:       interval,
	}
}

// Run advances the scheduler on every tick until ctx is done.
func (s *TickerScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance()
		}
	}
}
