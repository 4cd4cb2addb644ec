package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// Kind names the collection an event refers to. Presence deliberately has no
// kind: it is refreshed only on poll ticks.
type Kind string

const (
	KindUpdate Kind = "update" // message ledger changed
	KindTyping Kind = "typing"
	KindGame   Kind = "game"
)

// Event announces that some tab mutated a collection. The payload carries no
// data; subscribers reload the store instead of trusting the event.
type Event struct {
	Tab  string `json:"tab"`
	Kind Kind   `json:"kind"`
}

type Handler func(Event)

// Bus delivers change notifications over two independent paths: an
// in-process dispatch for the writing tab itself (the cross-tab path never
// fires in the writer's own context) and a Redis pub/sub channel for every
// other tab. Either path works without the other; a nil Redis client yields
// a local-only bus.
type Bus struct {
	tabID   string
	channel string
	rdb     *redis.Client
	log     *slog.Logger

	mu       sync.RWMutex
	handlers []Handler
}

func NewBus(tabID, room string, rdb *redis.Client, logger *slog.Logger) *Bus {
	return &Bus{
		tabID:   tabID,
		channel: "chat_events_" + room,
		rdb:     rdb,
		log:     logger,
	}
}

// Subscribe registers a handler for both delivery paths.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish announces a mutation: handlers on this bus run immediately (the
// same-tab path), then the event goes out over Redis for the other tabs.
func (b *Bus) Publish(ctx context.Context, kind Kind) {
	event := Event{Tab: b.tabID, Kind: kind}
	b.dispatch(event)

	if b.rdb == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("[NOTIFY] Failed to marshal event", "kind", kind, "error", err)
		return
	}

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Error("[NOTIFY] Failed to publish event", "kind", kind, "channel", b.channel, "error", err)
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Listen consumes the cross-tab path until ctx is cancelled. Events
// originating from this bus's own tab are dropped: they were already
// delivered synchronously by Publish.
func (b *Bus) Listen(ctx context.Context) {
	if b.rdb == nil {
		return
	}

	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		b.log.Error("[NOTIFY] Failed to receive subscription confirmation", "channel", b.channel, "error", err)
		return
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				b.log.Info("[NOTIFY] Pub/sub channel closed", "channel", b.channel)
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Error("[NOTIFY] Error unmarshaling event", "channel", msg.Channel, "error", err, "payload", msg.Payload)
				continue
			}

			if event.Tab == b.tabID {
				continue
			}

			b.dispatch(event)
		}
	}
}
