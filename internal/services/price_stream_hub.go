/**
 * @description
 * Fan-out of the Redis price update channel to SSE clients.
 * One Redis subscription feeds every connected stream, so a burst of viewers
 * does not multiply subscriptions.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 */

package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PriceStreamHub multiplexes Redis pub/sub messages to many SSE clients without
// spawning a Redis subscription per HTTP request.
type PriceStreamHub struct {
	redis       *redis.Client
	channelName string

	done      chan struct{}
	closeOnce sync.Once

	pubsubMu sync.Mutex
	pubsub   *redis.PubSub

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

func NewPriceStreamHub(redis *redis.Client, channel string) *PriceStreamHub {
	hub := &PriceStreamHub{
		redis:       redis,
		channelName: channel,
		done:        make(chan struct{}),
		subscribers: make(map[chan []byte]struct{}),
	}

	go hub.run()

	return hub
}

func (h *PriceStreamHub) run() {
	ctx := context.Background()

	for {
		pubsub := h.redis.Subscribe(ctx, h.channelName)

		h.pubsubMu.Lock()
		select {
		case <-h.done:
			h.pubsubMu.Unlock()
			_ = pubsub.Close()
			return
		default:
			h.pubsub = pubsub
		}
		h.pubsubMu.Unlock()

		for msg := range pubsub.Channel(redis.WithChannelSize(16384)) {
			h.broadcast([]byte(msg.Payload))
		}

		_ = pubsub.Close()

		// The channel closes on Close() or a dropped Redis connection; only
		// the latter should resubscribe, and not in a tight loop
		select {
		case <-h.done:
			return
		case <-time.After(time.Second):
		}
	}
}

func (h *PriceStreamHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- payload:
		default:
			// Subscriber is too slow; drop its oldest message to keep the hub responsive
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- payload:
			default:
			}
		}
	}
}

// Subscribe registers a new listener and returns a channel plus cleanup function.
func (h *PriceStreamHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 512)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// Close stops the Redis subscription and closes every listener channel.
// Safe to call more than once.
func (h *PriceStreamHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.pubsubMu.Lock()
		if h.pubsub != nil {
			_ = h.pubsub.Close()
		}
		h.pubsubMu.Unlock()

		h.mu.Lock()
		for sub := range h.subscribers {
			delete(h.subscribers, sub)
			close(sub)
		}
		h.mu.Unlock()
	})
}
