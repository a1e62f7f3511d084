// Package host provides the glue between a single-goroutine engine and the
// concurrent outside world: a run loop that serializes event delivery and a
// wall-clock TimerService that posts its callbacks through that loop.
package host

import "context"

// Loop serializes callbacks onto one goroutine. Adapters that receive events
// on their own goroutines (redis subscriptions, mqtt message handlers, timer
// expiries) post them here instead of calling into the engine directly.
type Loop struct {
	tasks chan func()
}

// NewLoop creates a loop with a buffered task queue.
func NewLoop() *Loop {
	return &Loop{tasks: make(chan func(), 128)}
}

// Post enqueues task for execution on the loop goroutine. It blocks when the
// queue is full, which applies backpressure to fast producers.
func (l *Loop) Post(task func()) {
	l.tasks <- task
}

// Run executes posted tasks until ctx is cancelled. It must be called from
// exactly one goroutine; that goroutine becomes the engine's goroutine.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.tasks:
			task()
		}
	}
}
