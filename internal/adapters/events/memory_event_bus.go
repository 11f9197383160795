package events

import (
	"context"
	"errors"
	"sync"

	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
)

// MemoryEventBus is an in-process EventBus for single-instance deployments and the CLI.
// Slow subscribers lose events rather than blocking publishers.
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *providers.CaseEvent]struct{}
	closed      bool
}

// NewMemoryEventBus creates an in-process event bus.
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		subscribers: make(map[string]map[chan *providers.CaseEvent]struct{}),
	}
}

// Publish delivers event to every current subscriber of channel.
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *providers.CaseEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("event bus is closed")
	}

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			observability.LoggerFromContext(ctx).Warn().
				Str("channel", channel).
				Str("event_id", event.ID).
				Msg("Subscriber channel full, skipping event")
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx ends.
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *providers.CaseEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("event bus is closed")
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *providers.CaseEvent]struct{})
	}
	eventChan := make(chan *providers.CaseEvent, subscriberBuffer)
	b.subscribers[channel][eventChan] = struct{}{}

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()
	return eventChan, nil
}

func (b *MemoryEventBus) remove(channel string, eventChan chan *providers.CaseEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subscribers[channel]
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Close closes every subscriber channel. Later publishes and subscribes fail.
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	return nil
}
