package observability_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/internal/runtime"
	"github.com/arborhq/arbor/pkg/adapters/memory"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/observability"
)

func TestCollectorCountsEngineActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := observability.NewCollector(reg)

	bus := memory.NewBus()
	clock := memory.NewScheduler()
	engine, err := runtime.NewEngine(
		[]domain.State{"empty", "occupied"}, bus, clock,
		runtime.WithHooks(collector.Hooks()))
	require.NoError(t, err)

	require.NoError(t, engine.AddTransition("empty", domain.StateOn("sensor.motion"), "occupied", nil))
	require.NoError(t, engine.AddTransition("occupied", domain.Timeout(5*time.Minute), "empty", nil))

	bus.Write("sensor.motion", "on")
	clock.Advance(5 * time.Minute)

	transitions := testutil.ToFloat64(
		collector.Transitions().WithLabelValues("empty", "occupied"))
	assert.Equal(t, 1.0, transitions)
	transitions = testutil.ToFloat64(
		collector.Transitions().WithLabelValues("occupied", "empty"))
	assert.Equal(t, 1.0, transitions)

	count, err := testutil.GatherAndCount(reg,
		"arbor_transitions_total", "arbor_timers_armed_total", "arbor_timer_fires_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestCollectorCountsUnrecognizedStates(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := observability.NewCollector(reg)

	bus := memory.NewBus()
	_, err := runtime.NewEngine(
		[]domain.State{"empty", "occupied"}, bus, memory.NewScheduler(),
		runtime.WithMirror("sensor.state"),
		runtime.WithHooks(collector.Hooks()))
	require.NoError(t, err)

	bus.Write("sensor.state", "garbage")

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "arbor_unrecognized_states_total" {
			found = true
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
