package broker

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// HandlerFunc processes one delivery. A nil return acks the message; a
// non-nil return rejects it without requeue, routing it to the queue's
// DLQ. Handlers must be idempotent: the broker may redeliver.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) error

// Consumer is a long-lived consumer loop owning exclusive bus
// resources: its own connection and channel, one durable queue bound
// to one exchange. On channel or connection failure it tears down,
// backs off exponentially (2s to 30s) and re-declares topology from
// scratch.
type Consumer struct {
	url      string
	queue    string
	exchange string
	handler  HandlerFunc
}

// NewConsumer creates a consumer for one queue/exchange pair.
func NewConsumer(url, queue, exchange string, handler HandlerFunc) *Consumer {
	return &Consumer{url: url, queue: queue, exchange: exchange, handler: handler}
}

// Run consumes until the context is cancelled. In-flight handlers
// finish; no new delivery is dispatched after cancellation.
func (c *Consumer) Run(ctx context.Context) {
	backoff := ReconnectMinBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		connected, err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			log.Info().Str("queue", c.queue).Msg("consumer stopped")
			return
		}
		if connected {
			backoff = ReconnectMinBackoff
		}
		log.Error().Err(err).
			Str("queue", c.queue).
			Dur("backoff", backoff).
			Msg("consumer disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > ReconnectMaxBackoff {
			backoff = ReconnectMaxBackoff
		}
	}
}

// consumeOnce runs a single connect-declare-consume session. The
// returned bool reports whether the session got as far as consuming,
// which resets the reconnect backoff.
func (c *Consumer) consumeOnce(ctx context.Context) (bool, error) {
	conn, err := Connect(c.url)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, err
	}
	defer ch.Close()

	if err := DeclareTopology(ch); err != nil {
		return false, err
	}
	q, err := DeclareConsumerQueue(ch, c.queue, c.exchange)
	if err != nil {
		return false, err
	}
	if err := ch.Qos(PrefetchCount, 0, false); err != nil {
		return false, err
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // auto-generated consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return false, err
	}

	log.Info().Str("queue", c.queue).Str("exchange", c.exchange).Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return true, errors.New("delivery channel closed")
			}
			c.dispatch(ctx, d)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	if err := c.handler(ctx, d); err != nil {
		log.Error().Err(err).
			Str("queue", c.queue).
			Str("exchange", d.Exchange).
			Msg("handler failed, rejecting to DLQ")
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Str("queue", c.queue).Msg("nack failed")
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Str("queue", c.queue).Msg("ack failed")
	}
}
