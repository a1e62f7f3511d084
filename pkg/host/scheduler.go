package host

import (
	"sync"
	"time"

	"github.com/arborhq/arbor/pkg/ports"
)

// Scheduler implements ports.TimerService on the wall clock. Expiry callbacks
// are posted through a delivery function, normally Loop.Post, so they run on
// the engine's goroutine rather than on the runtime timer goroutine.
type Scheduler struct {
	post func(func())

	mu      sync.Mutex
	next    ports.TimerHandle
	pending map[ports.TimerHandle]*time.Timer
}

// NewScheduler creates a scheduler that delivers callbacks via post.
func NewScheduler(post func(func())) *Scheduler {
	return &Scheduler{
		post:    post,
		pending: make(map[ports.TimerHandle]*time.Timer),
	}
}

// After schedules callback to run once d has elapsed.
func (s *Scheduler) After(d time.Duration, callback func()) ports.TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	handle := s.next
	s.pending[handle] = time.AfterFunc(d, func() {
		s.post(func() {
			// The timer may have been cancelled after expiry but before this
			// task drained from the loop queue; deliver only if still live.
			if !s.take(handle) {
				return
			}
			callback()
		})
	})
	return handle
}

// Cancel stops a scheduled callback. Cancelling an already-fired or unknown
// handle is a no-op.
func (s *Scheduler) Cancel(handle ports.TimerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.pending[handle]; ok {
		timer.Stop()
		delete(s.pending, handle)
	}
}

// Pending reports whether the handle is scheduled and not yet delivered.
func (s *Scheduler) Pending(handle ports.TimerHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[handle]
	return ok
}

// take removes the handle, reporting whether it was still live.
func (s *Scheduler) take(handle ports.TimerHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[handle]; !ok {
		return false
	}
	delete(s.pending, handle)
	return true
}
