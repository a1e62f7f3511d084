package arbor_test

import (
	"strings"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor"
	"github.com/arborhq/arbor/pkg/adapters/memory"
	"github.com/arborhq/arbor/pkg/domain"
)

func newOccupancyMachine(t *testing.T) (*arbor.Machine, *memory.Bus, *memory.Scheduler) {
	t.Helper()

	bus := memory.NewBus()
	clock := memory.NewScheduler()
	machine, err := arbor.New(
		[]domain.State{"empty", "occupied"}, bus, clock,
		arbor.WithMirror("sensor.room_state"),
		arbor.WithLogger(slogt.New(t)))
	require.NoError(t, err)

	require.NoError(t, machine.AddTransition(
		"empty", domain.StateOn("binary_sensor.motion"), "occupied", nil))
	require.NoError(t, machine.AddTransitions(
		[]domain.State{"occupied"},
		[]domain.Trigger{domain.StateOn("binary_sensor.motion")},
		"occupied", nil))
	require.NoError(t, machine.AddTransition(
		"occupied", domain.Timeout(5*time.Minute), "empty", nil))
	return machine, bus, clock
}

func TestMachineOccupancy(t *testing.T) {
	machine, bus, clock := newOccupancyMachine(t)
	assert.Equal(t, domain.State("empty"), machine.Current())

	bus.Write("binary_sensor.motion", "on")
	assert.Equal(t, domain.State("occupied"), machine.Current())

	// Renewed motion restarts the occupancy timeout.
	clock.Advance(4 * time.Minute)
	bus.Write("binary_sensor.motion", "off")
	bus.Write("binary_sensor.motion", "on")
	clock.Advance(4 * time.Minute)
	assert.Equal(t, domain.State("occupied"), machine.Current())

	clock.Advance(1 * time.Minute)
	assert.Equal(t, domain.State("empty"), machine.Current())

	value, ok := bus.Read("sensor.room_state")
	require.True(t, ok)
	assert.Equal(t, "empty", value)
}

func TestMachineStates(t *testing.T) {
	machine, _, _ := newOccupancyMachine(t)
	states := machine.States()
	assert.Equal(t, []domain.State{"empty", "occupied"}, states)

	// Mutating the returned slice must not affect the machine.
	states[0] = "hijacked"
	assert.Equal(t, []domain.State{"empty", "occupied"}, machine.States())
}

func TestMachineGraph(t *testing.T) {
	machine, _, _ := newOccupancyMachine(t)

	dot := machine.Graph()
	assert.True(t, strings.HasPrefix(dot, "digraph G {"))
	assert.Contains(t, dot, "empty->occupied")
	assert.Contains(t, dot, "occupied->empty")

	assert.True(t, strings.HasPrefix(machine.GraphLink(),
		"https://dreampuf.github.io/GraphvizOnline/#"))
}
