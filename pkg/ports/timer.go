package ports

import "time"

// TimerHandle identifies one scheduled callback. Handles are never reused by
// an implementation within the lifetime of a service.
type TimerHandle uint64

// TimerService schedules one-shot callbacks for the engine's timeout
// transitions.
type TimerService interface {
	// After schedules callback to run once d has elapsed and returns a
	// handle for it.
	After(d time.Duration, callback func()) TimerHandle

	// Cancel drops a scheduled callback. A cancelled timer must never
	// deliver its callback. Cancelling an unknown or already-fired handle
	// is a no-op.
	Cancel(handle TimerHandle)

	// Pending reports whether the handle still refers to a scheduled,
	// unfired callback.
	Pending(handle TimerHandle) bool
}
