package events

import (
	"context"

	"multilend/internal/domain/events"
	"multilend/internal/infrastructure/mq"
)

// Publisher binds the ledger exchange to an mq.Publisher.
type Publisher struct {
	mq       mq.Publisher
	exchange string
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(p mq.Publisher, exchange string) *Publisher {
	return &Publisher{mq: p, exchange: exchange}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	return p.mq.Publish(ctx, p.exchange, routingKey, payload)
}
