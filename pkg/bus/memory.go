package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/openinquiry/inquiry/pkg/domain"
)

const defaultChannelBuffer = 64

// InMemoryBus is a channel-backed MessageBus for single-process runs.
// Publish never blocks: a full subscriber buffer drops the message for
// that subscriber rather than stalling the dispatch loop.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan domain.BusMessage
	buffer      int
	closed      bool
}

// NewInMemoryBus creates a bus with the default per-subscriber buffer
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string][]chan domain.BusMessage),
		buffer:      defaultChannelBuffer,
	}
}

// Publish implements domain.MessageBus
func (b *InMemoryBus) Publish(ctx context.Context, channel string, msg domain.BusMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("bus is closed")
	}

	for _, sub := range b.subscribers[channel] {
		select {
		case sub <- msg:
		default:
			// subscriber is not keeping up, drop rather than block
		}
	}

	return nil
}

// Subscribe returns a receive channel for messages published on the
// named channel. The caller owns nothing; Close tears all of them down.
func (b *InMemoryBus) Subscribe(channel string) <-chan domain.BusMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.BusMessage, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}

	b.subscribers[channel] = append(b.subscribers[channel], ch)
	return ch
}

// Close shuts the bus down and closes every subscriber channel
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = make(map[string][]chan domain.BusMessage)
}
