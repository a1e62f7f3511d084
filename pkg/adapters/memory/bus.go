// Package memory provides in-memory implementations of the engine's ports:
// a synchronous EntityBus and a manual-clock TimerService. They are the
// reference semantics for adapters and the primary test harness.
package memory

import (
	"sync"

	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

// Bus implements ports.EntityBus in memory. Writes notify observers
// synchronously on the writer's goroutine, so delivery is serialized as long
// as all writes come from one goroutine, which is the engine's concurrency
// model.
type Bus struct {
	mu        sync.RWMutex
	values    map[domain.Entity]string
	observers map[domain.Entity][]ports.ChangeFunc
}

// NewBus creates an empty in-memory bus.
func NewBus() *Bus {
	return &Bus{
		values:    make(map[domain.Entity]string),
		observers: make(map[domain.Entity][]ports.ChangeFunc),
	}
}

// Observe registers a callback for the entity's changes.
func (b *Bus) Observe(entity domain.Entity, callback ports.ChangeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers[entity] = append(b.observers[entity], callback)
}

// Read returns the entity's current value.
func (b *Bus) Read(entity domain.Entity) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[entity]
	return value, ok
}

// Write sets the entity's value and synchronously notifies its observers,
// including the writer's own. The lock is released before the callbacks run,
// so an observer may itself write to the bus (the engine's mirror write-back
// does exactly that).
func (b *Bus) Write(entity domain.Entity, value string) {
	b.mu.Lock()
	old := b.values[entity]
	b.values[entity] = value
	callbacks := append([]ports.ChangeFunc(nil), b.observers[entity]...)
	b.mu.Unlock()

	for _, callback := range callbacks {
		callback(entity, old, value)
	}
}
