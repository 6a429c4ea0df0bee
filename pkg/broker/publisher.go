package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes persistent JSON messages with publisher confirms.
// It owns one channel in confirm mode; the channel is not safe for
// concurrent use, so publishes serialize on the internal mutex.
type Publisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher opens a confirm-mode channel on the connection and
// declares the event topology.
func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

// Publish marshals body to JSON and publishes it to the fanout
// exchange, waiting synchronously for the broker confirm. A confirm
// that does not arrive within ConfirmTimeout is an error; the caller
// decides whether to retry.
func (p *Publisher) Publish(ctx context.Context, exchange string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", exchange, err)
	}
	return p.PublishRaw(ctx, exchange, payload)
}

// PublishRaw publishes an already-encoded JSON body.
func (p *Publisher) PublishRaw(ctx context.Context, exchange string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, ConfirmTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		exchange,
		"",    // fanout ignores the routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for %s: %w", exchange, err)
	}
	if !acked {
		return fmt.Errorf("publish to %s nacked by broker", exchange)
	}
	return nil
}

// Close releases the publisher channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
