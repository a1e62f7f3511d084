package ports

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/pkg/domain"
)

// change is one recorded observer invocation.
type change struct {
	Entity   domain.Entity
	Old, New string
}

// recorder collects observer invocations. Safe for concurrent use so the
// contract also covers buses that deliver from a dispatch goroutine.
type recorder struct {
	mu      sync.Mutex
	changes []change
}

func (r *recorder) callback() ChangeFunc {
	return func(entity domain.Entity, oldValue, newValue string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.changes = append(r.changes, change{entity, oldValue, newValue})
	}
}

func (r *recorder) snapshot() []change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]change(nil), r.changes...)
}

func (r *recorder) eventually(t *testing.T, n int) []change {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.snapshot()) >= n
	}, 2*time.Second, 5*time.Millisecond, "expected %d observer calls", n)
	return r.snapshot()
}

// RunEntityBusContract verifies that an EntityBus implementation complies
// with the semantics the engine depends on. It serves as a contract test for
// all adapters. Asynchronous buses are supported: delivery is awaited, but
// per-entity ordering must hold.
func RunEntityBusContract(t *testing.T, bus EntityBus) {
	t.Helper()

	const (
		door  = domain.Entity("contract.door")
		light = domain.Entity("contract.light")
	)

	// 1. Reading an entity that was never written reports absence.
	_, ok := bus.Read(door)
	require.False(t, ok, "expected no value before first write")

	// 2. Write then read.
	bus.Write(door, "open")
	require.Eventually(t, func() bool {
		v, ok := bus.Read(door)
		return ok && v == "open"
	}, 2*time.Second, 5*time.Millisecond, "read after write")

	// 3. Observers see old and new values in order, including the writer's
	// own writes.
	rec := &recorder{}
	bus.Observe(door, rec.callback())
	bus.Write(door, "closed")
	bus.Write(door, "open")

	got := rec.eventually(t, 2)
	assert.Equal(t, change{door, "open", "closed"}, got[0])
	assert.Equal(t, change{door, "closed", "open"}, got[1])

	// 4. Observers of one entity are not notified about another.
	bus.Write(light, "on")
	bus.Write(door, "closed")
	got = rec.eventually(t, 3)
	for _, c := range got {
		assert.Equal(t, door, c.Entity)
	}

	// 5. Multiple observers per entity are supported.
	second := &recorder{}
	bus.Observe(door, second.callback())
	bus.Write(door, "open")
	rec.eventually(t, 4)
	second.eventually(t, 1)
}
