// Package local implements bus.Bus as an in-process pub/sub broker.
// It generalizes the daemon's event bus from a fixed event type to
// arbitrary topic strings with suffix-wildcard subscriptions; the
// per-message TTL argument is accepted and ignored.
package local

import (
	"context"
	"sync"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/bus"
)

const defaultBufferSize = 64

type subscriber struct {
	pattern string
	ch      chan bus.Message
}

// Bus is an in-process, non-blocking pub/sub broker. Slow subscribers
// drop messages rather than block publishers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	bufferSize  int
	closed      bool
}

// Option configures Bus behavior.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber channel buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// New creates an in-process Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[int]*subscriber),
		bufferSize:  defaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements bus.Bus. ttl is accepted for interface compliance
// but the in-process broker delivers immediately or not at all, so it
// has no observable effect here beyond being a documented no-op.
func (b *Bus) Publish(ctx context.Context, topic string, payload []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return bus.ErrInvalidPattern
	}

	msg := bus.Message{Topic: topic, Payload: payload}
	for _, sub := range b.subscribers {
		if !bus.MatchPattern(sub.pattern, topic) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			// Buffer full; drop per at-most-once delivery (spec §4.3).
		}
	}
	return nil
}

// Subscribe implements bus.Bus.
func (b *Bus) Subscribe(ctx context.Context, pattern string) (<-chan bus.Message, func(), error) {
	if !bus.ValidPattern(pattern) {
		return nil, nil, bus.ErrInvalidPattern
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ch := make(chan bus.Message)
		close(ch)
		return ch, func() {}, nil
	}
	id := b.nextID
	b.nextID++
	sub := &subscriber{pattern: pattern, ch: make(chan bus.Message, b.bufferSize)}
	b.subscribers[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(s.ch)
		}
	}

	// Cancelling ctx unsubscribes, mirroring how most consumers of this
	// port drive Subscribe from a goroutine bound to a cancellable ctx.
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return sub.ch, unsubscribe, nil
}

// IsAvailable reports true until Close is called; the in-process broker
// never loses connectivity to itself.
func (b *Bus) IsAvailable(ctx context.Context) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

// Close shuts the broker down; Publish then returns an error and every
// subscriber channel is closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

var _ bus.Bus = (*Bus)(nil)
