// Package mqtt implements the entity bus over an MQTT broker. Entity values
// are retained messages, one topic per entity, so a freshly connected bus
// learns the current values from the broker without any extra protocol.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Client is the slice of the MQTT client the bus needs. Narrowing the
// surface keeps the bus testable against FakeClient without a broker.
type Client interface {
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Publish(topic string, payload []byte, retained bool) error
	Disconnect()
}

// pahoClient adapts a paho connection to Client.
type pahoClient struct {
	client paho.Client
}

// Dial connects to the broker at url and returns a Client over the
// connection.
func Dial(url, clientID string) (Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", url, err)
	}
	return &pahoClient{client: client}, nil
}

func (c *pahoClient) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := c.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (c *pahoClient) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *pahoClient) Disconnect() {
	c.client.Disconnect(250)
}
