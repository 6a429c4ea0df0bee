package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/model"
)

const (
	// RelayInterval is how often the relay polls for staged messages.
	RelayInterval = time.Second

	// RelayBatchSize caps how many messages one poll drains.
	RelayBatchSize = 100
)

// OutboxSource is the slice of the outbox repository the relay needs.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
}

// RawPublisher publishes a pre-marshalled payload to an exchange.
type RawPublisher interface {
	PublishRaw(ctx context.Context, exchange string, payload []byte) error
}

// OutboxRelay drains staged outbox rows to the bus in creation order.
// A message is only marked published after the broker confirms it, so
// a crash between publish and mark re-delivers (consumers are
// idempotent).
type OutboxRelay struct {
	outbox    OutboxSource
	publisher RawPublisher
	interval  time.Duration
}

// NewOutboxRelay creates a relay polling at the given interval.
// A non-positive interval falls back to RelayInterval.
func NewOutboxRelay(outbox OutboxSource, publisher RawPublisher, interval time.Duration) *OutboxRelay {
	if interval <= 0 {
		interval = RelayInterval
	}
	return &OutboxRelay{outbox: outbox, publisher: publisher, interval: interval}
}

// Run polls until ctx is cancelled. Intended to run as a goroutine.
func (r *OutboxRelay) Run(ctx context.Context) {
	log.Info().Dur("interval", r.interval).Msg("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("outbox drain failed")
			}
		}
	}
}

// Drain publishes one batch of staged messages. Publishing stops at the
// first broker failure so ordering within the batch is preserved.
func (r *OutboxRelay) Drain(ctx context.Context) error {
	msgs, err := r.outbox.FetchUnpublished(ctx, RelayBatchSize)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := r.publisher.PublishRaw(ctx, msg.Exchange, msg.Payload); err != nil {
			return err
		}
		if err := r.outbox.MarkPublished(ctx, msg.ID); err != nil {
			return err
		}
		log.Debug().
			Str("exchange", msg.Exchange).
			Str("message_id", msg.ID.String()).
			Msg("outbox message published")
	}
	return nil
}
