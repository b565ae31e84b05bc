package eventsmock

import (
	"context"
	"sync"

	"multilend/internal/domain/events"
)

// Ensure compile-time compliance
var _ events.Publisher = (*Publisher)(nil)

type Event struct {
	RoutingKey string
	Payload    any
}

// Publisher records every event. Set PublishFn to inject failures.
type Publisher struct {
	PublishFn func(ctx context.Context, routingKey string, payload any) error

	mu     sync.Mutex
	events []Event
}

func New() *Publisher { return &Publisher{} }

func (m *Publisher) WithPublish(fn func(context.Context, string, any) error) *Publisher {
	m.PublishFn = fn
	return m
}

func (m *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	m.mu.Lock()
	m.events = append(m.events, Event{RoutingKey: routingKey, Payload: payload})
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, routingKey, payload)
	}
	return nil
}

// Events returns a copy of what has been published so far.
func (m *Publisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Count returns how many events were published under routingKey.
func (m *Publisher) Count(routingKey string) int {
	n := 0
	for _, e := range m.Events() {
		if e.RoutingKey == routingKey {
			n++
		}
	}
	return n
}

func (m *Publisher) Reset() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}
