package runtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/internal/runtime"
	"github.com/arborhq/arbor/pkg/adapters/memory"
	"github.com/arborhq/arbor/pkg/domain"
)

func TestMirrorSeeding(t *testing.T) {
	t.Run("valid stored state overrides initial", func(t *testing.T) {
		bus := memory.NewBus()
		bus.Write(mirror, string(stateB))

		engine, err := runtime.NewEngine(states, bus, memory.NewScheduler(),
			runtime.WithMirror(mirror))
		require.NoError(t, err)
		assert.Equal(t, stateB, engine.Current())
	})

	t.Run("unrecognized stored value is replaced", func(t *testing.T) {
		var unrecognized []string
		bus := memory.NewBus()
		bus.Write(mirror, "garbage")

		engine, err := runtime.NewEngine(states, bus, memory.NewScheduler(),
			runtime.WithMirror(mirror),
			runtime.WithHooks(domain.Hooks{
				OnUnrecognizedState: func(v string) { unrecognized = append(unrecognized, v) },
			}))
		require.NoError(t, err)

		assert.Equal(t, stateA, engine.Current())
		assert.Equal(t, []string{"garbage"}, unrecognized)
		value, ok := bus.Read(mirror)
		require.True(t, ok)
		assert.Equal(t, string(stateA), value)
	})

	t.Run("absent mirror gets the initial state", func(t *testing.T) {
		bus := memory.NewBus()
		_, err := runtime.NewEngine(states, bus, memory.NewScheduler(),
			runtime.WithMirror(mirror))
		require.NoError(t, err)

		value, ok := bus.Read(mirror)
		require.True(t, ok)
		assert.Equal(t, string(stateA), value)
	})
}

func TestMirrorWriteBack(t *testing.T) {
	bus := memory.NewBus()
	bus.Write(sensorS, "off")
	engine, err := runtime.NewEngine(states, bus, memory.NewScheduler(),
		runtime.WithMirror(mirror))
	require.NoError(t, err)
	require.NoError(t, engine.AddTransition(stateA, domain.StateOn(sensorS), stateB, nil))

	transitions := 0
	engine.OnTransition(func(_, _ domain.State) { transitions++ })

	bus.Write(sensorS, "on")

	value, ok := bus.Read(mirror)
	require.True(t, ok)
	assert.Equal(t, string(stateB), value)
	// The engine's own write-back echoes through the bus; it must not be
	// treated as a second, external transition.
	assert.Equal(t, 1, transitions)
}

func TestMirrorExternalOverride(t *testing.T) {
	bus := memory.NewBus()
	engine, err := runtime.NewEngine(states, bus, memory.NewScheduler(),
		runtime.WithMirror(mirror))
	require.NoError(t, err)

	type pair struct{ from, to domain.State }
	var seen []pair
	engine.OnTransition(func(from, to domain.State) {
		seen = append(seen, pair{from, to})
	})

	bus.Write(mirror, string(stateC))
	assert.Equal(t, stateC, engine.Current())
	assert.Equal(t, []pair{{stateA, stateC}}, seen)
}

func TestMirrorExternalUnrecognizedValue(t *testing.T) {
	var unrecognized []string
	bus := memory.NewBus()
	engine, err := runtime.NewEngine(states, bus, memory.NewScheduler(),
		runtime.WithMirror(mirror),
		runtime.WithHooks(domain.Hooks{
			OnUnrecognizedState: func(v string) { unrecognized = append(unrecognized, v) },
		}))
	require.NoError(t, err)

	bus.Write(mirror, "garbage")
	assert.Equal(t, stateA, engine.Current())
	assert.Equal(t, []string{"garbage"}, unrecognized)
}

func TestMirrorOverrideRestartsTimer(t *testing.T) {
	bus := memory.NewBus()
	clock := memory.NewScheduler()
	engine, err := runtime.NewEngine(states, bus, clock,
		runtime.WithMirror(mirror))
	require.NoError(t, err)
	require.NoError(t, engine.AddTransition(stateB, domain.Timeout(10*time.Second), stateC, nil))

	bus.Write(mirror, string(stateB))
	require.Equal(t, stateB, engine.Current())

	clock.Advance(10 * time.Second)
	assert.Equal(t, stateC, engine.Current())
}
