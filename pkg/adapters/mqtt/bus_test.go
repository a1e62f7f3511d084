package mqtt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/pkg/adapters/mqtt"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

func TestBusContract(t *testing.T) {
	ports.RunEntityBusContract(t, mqtt.NewFromClient(mqtt.NewFakeClient()))
}

func TestBusRetainedReplay(t *testing.T) {
	broker := mqtt.NewFakeClient()

	// A previous process left a retained value on the broker.
	writer := mqtt.NewFromClient(broker)
	writer.Write("sensor.s", "on")

	reader := mqtt.NewFromClient(broker)
	var changes []string
	reader.Observe("sensor.s", func(_ domain.Entity, oldValue, newValue string) {
		assert.Empty(t, oldValue)
		changes = append(changes, newValue)
	})

	// The retained replay both warms the cache and reaches observers, as the
	// first value learned for the entity.
	value, ok := reader.Read("sensor.s")
	require.True(t, ok)
	assert.Equal(t, "on", value)
	assert.Equal(t, []string{"on"}, changes)
}

func TestBusWarm(t *testing.T) {
	broker := mqtt.NewFakeClient()

	writer := mqtt.NewFromClient(broker)
	writer.Write("sensor.state", "away")

	reader := mqtt.NewFromClient(broker)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reader.Warm(ctx, "sensor.state"))

	value, ok := reader.Read("sensor.state")
	require.True(t, ok)
	assert.Equal(t, "away", value)
}

func TestBusWarmTimesOutOnColdEntity(t *testing.T) {
	reader := mqtt.NewFromClient(mqtt.NewFakeClient())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := reader.Warm(ctx, "sensor.never_written")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBusRemoteChangeDelivery(t *testing.T) {
	broker := mqtt.NewFakeClient()
	writer := mqtt.NewFromClient(broker)
	reader := mqtt.NewFromClient(broker)

	type event struct{ old, new string }
	var events []event
	reader.Observe("sensor.s", func(_ domain.Entity, oldValue, newValue string) {
		events = append(events, event{oldValue, newValue})
	})

	writer.Write("sensor.s", "on")
	writer.Write("sensor.s", "off")

	assert.Equal(t, []event{{"", "on"}, {"on", "off"}}, events)
}

func TestBusSuppressesOwnEcho(t *testing.T) {
	broker := mqtt.NewFakeClient()
	bus := mqtt.NewFromClient(broker)

	calls := 0
	bus.Observe("sensor.s", func(_ domain.Entity, _, _ string) { calls++ })

	// The write notifies local observers directly; the broker echo of the
	// same value must not produce a second delivery.
	bus.Write("sensor.s", "on")
	assert.Equal(t, 1, calls)
}

func TestBusTopicPrefix(t *testing.T) {
	broker := mqtt.NewFakeClient()
	bus := mqtt.NewFromClient(broker, mqtt.WithTopicPrefix("home/"))

	var topics []string
	require.NoError(t, broker.Subscribe("home/sensor.s", func(topic string, _ []byte) {
		topics = append(topics, topic)
	}))

	bus.Write("sensor.s", "on")
	assert.Equal(t, []string{"home/sensor.s"}, topics)
}
