package gmkit

import (
	"sync"
	"time"
)

// scheduler owns all deferred eviction timers, keyed by record key + holder.
// At most one timer is live per key; arming a key cancels any predecessor.
// The scheduler is constructed once per Engine and torn down by stop, so no
// process-wide timer state exists.
type scheduler struct {
	mu      sync.Mutex
	timers  map[string]*timerHandle
	stopped bool
}

// timerHandle wraps a timer so a fired callback can verify it is still the
// current registration for its key. Stop cannot interrupt a callback that has
// already fired, so identity is checked instead.
type timerHandle struct {
	timer *time.Timer
}

// newScheduler creates an empty scheduler.
func newScheduler() *scheduler {
	return &scheduler{
		timers: make(map[string]*timerHandle),
	}
}

// arm schedules fn to run after delay, replacing any timer already armed for
// the key. fn runs on its own goroutine and must re-check durable state itself.
func (s *scheduler) arm(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if existing, ok := s.timers[key]; ok {
		existing.timer.Stop()
	}

	var handle = &timerHandle{}
	handle.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.stopped || s.timers[key] != handle {
			// Superseded or cancelled between firing and running.
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		fn()
	})
	s.timers[key] = handle
}

// cancel stops and removes the timer for key, if one is armed.
func (s *scheduler) cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.timer.Stop()
		delete(s.timers, key)
	}
}

// pending reports whether a timer is currently armed for key.
func (s *scheduler) pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var _, ok = s.timers[key]
	return ok
}

// stop cancels every armed timer and rejects further arming.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, handle := range s.timers {
		handle.timer.Stop()
		delete(s.timers, key)
	}
}
