package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery body. Returning false re-queues the message.
type Handler func(ctx context.Context, body []byte) bool

type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

func NewConsumer(amqpURL string, log *slog.Logger) (*Consumer, error) {
	clean, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.Dial(clean)
	if err != nil {
		return nil, fmt.Errorf("mq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mq: channel: %w", err)
	}
	return &Consumer{conn: conn, ch: ch, log: log}, nil
}

// Consume binds queue to exchange for every routing key in bindings and
// dispatches deliveries until ctx is done or the channel closes.
func (c *Consumer) Consume(ctx context.Context, exchange, queue string, bindings map[string]Handler) error {
	if len(bindings) == 0 {
		return errors.New("mq: no bindings provided")
	}
	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("mq: declare %s: %w", exchange, err)
	}
	q, err := c.ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("mq: declare queue %s: %w", queue, err)
	}
	for key := range bindings {
		if err := c.ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fmt.Errorf("mq: bind %s: %w", key, err)
		}
	}
	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("mq: consume: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					c.log.Warn("delivery channel closed", "queue", queue)
					return
				}
				c.dispatch(ctx, bindings, d)
			}
		}
	}()
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, bindings map[string]Handler, d amqp.Delivery) {
	h, ok := bindings[d.RoutingKey]
	if !ok {
		c.log.Warn("no handler for routing key; dropping", "routing_key", d.RoutingKey)
		_ = d.Ack(false)
		return
	}
	if h(ctx, d.Body) {
		_ = d.Ack(false)
		return
	}
	c.log.Warn("handler failed; re-queuing", "routing_key", d.RoutingKey)
	_ = d.Nack(false, true)
}

func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
