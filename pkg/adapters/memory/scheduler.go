package memory

import (
	"time"

	"github.com/arborhq/arbor/pkg/ports"
)

type pendingTimer struct {
	due      time.Duration
	callback func()
}

// Scheduler implements ports.TimerService against a manual clock. Time only
// moves when Advance is called, which makes timeout behavior fully
// deterministic in tests and demos.
type Scheduler struct {
	now     time.Duration
	next    ports.TimerHandle
	pending map[ports.TimerHandle]pendingTimer
}

// NewScheduler creates a scheduler with the clock at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[ports.TimerHandle]pendingTimer)}
}

// After schedules callback at now + d.
func (s *Scheduler) After(d time.Duration, callback func()) ports.TimerHandle {
	s.next++
	s.pending[s.next] = pendingTimer{due: s.now + d, callback: callback}
	return s.next
}

// Cancel drops a scheduled callback.
func (s *Scheduler) Cancel(handle ports.TimerHandle) {
	delete(s.pending, handle)
}

// Pending reports whether the handle is still scheduled.
func (s *Scheduler) Pending(handle ports.TimerHandle) bool {
	_, ok := s.pending[handle]
	return ok
}

// Now returns the current manual-clock reading.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Advance moves the clock forward by d and fires every timer that comes due,
// earliest first. Callbacks may schedule new timers; those are fired too if
// they fall inside the advanced window.
func (s *Scheduler) Advance(d time.Duration) {
	s.now += d
	for {
		handle, ok := s.earliestDue()
		if !ok {
			return
		}
		timer := s.pending[handle]
		delete(s.pending, handle)
		timer.callback()
	}
}

// earliestDue picks the due timer with the earliest deadline, breaking ties
// by scheduling order.
func (s *Scheduler) earliestDue() (ports.TimerHandle, bool) {
	var (
		best  ports.TimerHandle
		found bool
	)
	for handle, timer := range s.pending {
		if timer.due > s.now {
			continue
		}
		if !found || timer.due < s.pending[best].due ||
			(timer.due == s.pending[best].due && handle < best) {
			best = handle
			found = true
		}
	}
	return best, found
}
