package ports

import "github.com/arborhq/arbor/pkg/domain"

// ChangeFunc is invoked on every change of an observed entity's value.
// oldValue is the empty string when the entity had no previous value.
type ChangeFunc func(entity domain.Entity, oldValue, newValue string)

// EntityBus is the host's surface for named observable values.
type EntityBus interface {
	// Observe registers callback for every change of the entity's value.
	// Multiple observers per entity are supported; each is called in
	// registration order.
	Observe(entity domain.Entity, callback ChangeFunc)

	// Read returns the entity's current value. The second result is false
	// when the entity has no value.
	Read(entity domain.Entity) (string, bool)

	// Write sets the entity's value. A write must itself trigger Observe
	// callbacks for that entity, including the writer's own; the engine
	// relies on this to implement the mirrored-state write-back.
	Write(entity domain.Entity, value string)
}
