// Package redis implements the entity bus on Redis: values live in plain
// keys and changes fan out over pub/sub, so several processes can share one
// entity space.
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/arborhq/arbor/internal/logging"
	"github.com/arborhq/arbor/pkg/domain"
	"github.com/arborhq/arbor/pkg/ports"
)

const defaultPrefix = "arbor:"

// change is the pub/sub payload for an entity write.
type change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Bus implements ports.EntityBus on a Redis client. Each entity's value is
// stored under <prefix>entity:<id> and every write publishes the old and new
// value on <prefix>changes:<id>. A write is observed through the same
// channel, so the writer's own observers see it too, after the pub/sub round
// trip.
type Bus struct {
	client redis.UniversalClient
	prefix string
	post   func(func())
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	observers map[domain.Entity][]ports.ChangeFunc
	pubsub    *redis.PubSub
	done      chan struct{}
}

// Option configures a Bus.
type Option func(*Bus)

// WithPrefix overrides the key and channel prefix. Defaults to "arbor:".
func WithPrefix(prefix string) Option {
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

// WithDelivery routes observer callbacks through post instead of invoking
// them on the subscription goroutine. Pass a run loop's Post to serialize
// delivery with the engine.
func WithDelivery(post func(func())) Option {
	return func(b *Bus) { b.post = post }
}

// NewFromClient creates a Bus on an existing Redis client. The caller keeps
// ownership of the client; Close only tears down the bus's subscription.
func NewFromClient(client redis.UniversalClient, opts ...Option) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		client:    client,
		prefix:    defaultPrefix,
		post:      func(task func()) { task() },
		logger:    logging.NewNop(),
		ctx:       ctx,
		cancel:    cancel,
		observers: make(map[domain.Entity][]ports.ChangeFunc),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Observe subscribes to the entity's change channel and registers callback.
func (b *Bus) Observe(entity domain.Entity, callback ports.ChangeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub == nil {
		b.pubsub = b.client.Subscribe(b.ctx, b.channel(entity))
		// Wait for the subscription confirmation before handing the
		// connection to Channel, so a write issued right after Observe
		// returns cannot slip past the subscription.
		if _, err := b.pubsub.Receive(b.ctx); err != nil {
			b.logger.Error("confirm entity subscription", "entity", entity, "err", err)
		}
		b.done = make(chan struct{})
		go b.dispatch()
	} else if len(b.observers[entity]) == 0 {
		if err := b.pubsub.Subscribe(b.ctx, b.channel(entity)); err != nil {
			b.logger.Error("subscribe to entity channel", "entity", entity, "err", err)
		}
	}
	b.observers[entity] = append(b.observers[entity], callback)
}

// Read returns the entity's stored value.
func (b *Bus) Read(entity domain.Entity) (string, bool) {
	value, err := b.client.Get(b.ctx, b.key(entity)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		b.logger.Error("read entity", "entity", entity, "err", err)
		return "", false
	}
	return value, true
}

// Write stores the entity's value and publishes the change.
func (b *Bus) Write(entity domain.Entity, value string) {
	old, err := b.client.Get(b.ctx, b.key(entity)).Result()
	if err != nil && err != redis.Nil {
		b.logger.Error("read previous entity value", "entity", entity, "err", err)
	}
	if err := b.client.Set(b.ctx, b.key(entity), value, 0).Err(); err != nil {
		b.logger.Error("write entity", "entity", entity, "err", err)
		return
	}

	payload, err := json.Marshal(change{Old: old, New: value})
	if err != nil {
		b.logger.Error("encode entity change", "entity", entity, "err", err)
		return
	}
	if err := b.client.Publish(b.ctx, b.channel(entity), payload).Err(); err != nil {
		b.logger.Error("publish entity change", "entity", entity, "err", err)
	}
}

// Close tears down the subscription and stops delivery.
func (b *Bus) Close() error {
	b.cancel()

	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}

// dispatch fans subscription messages out to observers. It runs on its own
// goroutine; callbacks go through the delivery function, which defaults to
// synchronous invocation.
func (b *Bus) dispatch() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		entity := domain.Entity(strings.TrimPrefix(msg.Channel, b.prefix+"changes:"))

		var ev change
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.logger.Error("decode entity change", "entity", entity, "err", err)
			continue
		}

		b.mu.Lock()
		callbacks := append([]ports.ChangeFunc(nil), b.observers[entity]...)
		b.mu.Unlock()

		b.post(func() {
			for _, callback := range callbacks {
				callback(entity, ev.Old, ev.New)
			}
		})
	}
}

func (b *Bus) key(entity domain.Entity) string {
	return b.prefix + "entity:" + string(entity)
}

func (b *Bus) channel(entity domain.Entity) string {
	return b.prefix + "changes:" + string(entity)
}
