package mqtt

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arborhq/arbor/internal/logging"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

const defaultTopicPrefix = "arbor/entities/"

// Bus implements ports.EntityBus over an MQTT client. Each entity maps to
// one topic under the prefix; writes publish retained so late subscribers
// get the current value immediately.
//
// Local writes notify the writer's observers directly. The broker echo of a
// local write carries a value already in the cache and is suppressed, so
// observers see each change exactly once whether it originated locally or
// remotely.
type Bus struct {
	client Client
	prefix string
	post   func(func())
	logger *slog.Logger

	mu         sync.Mutex
	values     map[domain.Entity]string
	known      map[domain.Entity]bool
	subscribed map[domain.Entity]bool
	observers  map[domain.Entity][]ports.ChangeFunc
}

// Option configures a Bus.
type Option func(*Bus)

// WithTopicPrefix overrides the entity topic prefix. Defaults to
// "arbor/entities/".
func WithTopicPrefix(prefix string) Option {
	return func(b *Bus) { b.prefix = prefix }
}

// WithLogger sets a structured logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDelivery routes observer callbacks for remote changes through post.
// Pass a run loop's Post to serialize delivery with the engine.
func WithDelivery(post func(func())) Option {
	return func(b *Bus) { b.post = post }
}

// NewFromClient creates a Bus on an existing connection. The caller keeps
// ownership of the client.
func NewFromClient(client Client, opts ...Option) *Bus {
	b := &Bus{
		client:    client,
		prefix:    defaultTopicPrefix,
		post:      func(task func()) { task() },
		logger:    logging.NewNop(),
		values:     make(map[domain.Entity]string),
		known:      make(map[domain.Entity]bool),
		subscribed: make(map[domain.Entity]bool),
		observers:  make(map[domain.Entity][]ports.ChangeFunc),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Observe subscribes to the entity's topic and registers callback. The
// broker replays the retained value on subscription, which warms the local
// cache without producing a change event.
func (b *Bus) Observe(entity domain.Entity, callback ports.ChangeFunc) {
	b.mu.Lock()
	first := !b.subscribed[entity]
	b.subscribed[entity] = true
	b.observers[entity] = append(b.observers[entity], callback)
	b.mu.Unlock()

	if first {
		b.subscribe(entity)
	}
}

// Read returns the entity's cached value. The cache is kept current by the
// topic subscriptions and by local writes.
func (b *Bus) Read(entity domain.Entity) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.known[entity] {
		return "", false
	}
	return b.values[entity], true
}

// Write publishes the entity's value retained and notifies local observers.
func (b *Bus) Write(entity domain.Entity, value string) {
	b.mu.Lock()
	old := b.values[entity]
	b.values[entity] = value
	b.known[entity] = true
	callbacks := append([]ports.ChangeFunc(nil), b.observers[entity]...)
	b.mu.Unlock()

	if err := b.client.Publish(b.topic(entity), []byte(value), true); err != nil {
		b.logger.Error("publish entity value", "entity", entity, "err", err)
	}

	for _, callback := range callbacks {
		callback(entity, old, value)
	}
}

// Warm subscribes to the given entities and waits until the broker's
// retained replay has provided a value for each, or ctx expires. Call it
// before constructing an engine when entity state must be restored from the
// broker, for example a mirrored state entity.
func (b *Bus) Warm(ctx context.Context, entities ...domain.Entity) error {
	for _, entity := range entities {
		b.mu.Lock()
		first := !b.subscribed[entity]
		b.subscribed[entity] = true
		b.mu.Unlock()
		if first {
			b.subscribe(entity)
		}
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		b.mu.Lock()
		warm := true
		for _, entity := range entities {
			if !b.known[entity] {
				warm = false
				break
			}
		}
		b.mu.Unlock()
		if warm {
			return nil
		}

		select {
		case <-ctx.Done():
			// Entities with no retained value stay cold; the caller decides
			// whether that is an error.
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Bus) subscribe(entity domain.Entity) {
	err := b.client.Subscribe(b.topic(entity), func(topic string, payload []byte) {
		b.received(domain.Entity(strings.TrimPrefix(topic, b.prefix)), string(payload))
	})
	if err != nil {
		b.logger.Error("subscribe to entity topic", "entity", entity, "err", err)
	}
}

// received handles a message from the broker: the retained replay after
// subscribing, the echo of a local write, or a remote change. Echoes and
// duplicates are suppressed; everything else reaches observers, including
// the first value learned for an entity, with the empty string as old value.
func (b *Bus) received(entity domain.Entity, value string) {
	b.mu.Lock()
	if b.known[entity] && b.values[entity] == value {
		// Echo of a local write, or a duplicate delivery.
		b.mu.Unlock()
		return
	}
	old := b.values[entity]
	b.values[entity] = value
	b.known[entity] = true
	callbacks := append([]ports.ChangeFunc(nil), b.observers[entity]...)
	b.mu.Unlock()

	b.post(func() {
		for _, callback := range callbacks {
			callback(entity, old, value)
		}
	})
}

func (b *Bus) topic(entity domain.Entity) string {
	return b.prefix + string(entity)
}
