package mqtt

import "sync"

// FakeClient is an in-process Client for tests: publishes route to matching
// subscribers synchronously, and retained messages are replayed to new
// subscribers the way a broker would.
type FakeClient struct {
	mu           sync.Mutex
	handlers     map[string][]func(topic string, payload []byte)
	retained     map[string][]byte
	disconnected bool
}

// NewFakeClient creates an empty fake broker connection.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		handlers: make(map[string][]func(topic string, payload []byte)),
		retained: make(map[string][]byte),
	}
}

func (c *FakeClient) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	c.mu.Lock()
	c.handlers[topic] = append(c.handlers[topic], handler)
	replay, hasRetained := c.retained[topic]
	c.mu.Unlock()

	if hasRetained {
		handler(topic, replay)
	}
	return nil
}

func (c *FakeClient) Publish(topic string, payload []byte, retained bool) error {
	c.mu.Lock()
	if retained {
		c.retained[topic] = append([]byte(nil), payload...)
	}
	handlers := append(([]func(string, []byte))(nil), c.handlers[topic]...)
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(topic, payload)
	}
	return nil
}

func (c *FakeClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

// Disconnected reports whether Disconnect was called.
func (c *FakeClient) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}
