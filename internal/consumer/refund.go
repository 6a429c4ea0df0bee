package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/internal/payment"
	"github.com/hilmist/OrderService/pkg/broker"
)

// Refund failure reasons on the wire.
const (
	ReasonRefundTimeout  = "refund_timeout"
	ReasonRefundDeclined = "refund_declined"
)

// RefundConsumer refunds cancelled orders and asks the reservation
// consumer to return their stock.
type RefundConsumer struct {
	gateway   Refunder
	publisher EventPublisher
}

// NewRefundConsumer creates the consumer.
func NewRefundConsumer(gateway Refunder, publisher EventPublisher) *RefundConsumer {
	return &RefundConsumer{gateway: gateway, publisher: publisher}
}

// HandleOrderCancelled runs the retrying refund. On success it emits
// refund.processed followed by stock.released; on exhausted retries it
// emits refund.failed with the final reason.
func (c *RefundConsumer) HandleOrderCancelled(ctx context.Context, d amqp.Delivery) error {
	var event model.OrderCancelledEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("unmarshal order.cancelled: %w", err)
	}

	err := c.gateway.Refund(ctx, event.OrderID, event.Total)
	if err != nil {
		reason := ReasonRefundDeclined
		if errors.Is(err, payment.ErrTimeout) {
			reason = ReasonRefundTimeout
		}
		log.Error().Err(err).Str("order_id", event.OrderID).Msg("refund exhausted")
		return c.publisher.Publish(ctx, broker.RefundFailedEvent, model.RefundFailedEvent{
			OrderID: event.OrderID,
			Reason:  reason,
		})
	}

	log.Info().Str("order_id", event.OrderID).Msg("refund processed")
	if err := c.publisher.Publish(ctx, broker.RefundProcessedEvent, model.RefundProcessedEvent{
		OrderID: event.OrderID,
		At:      time.Now().UTC(),
	}); err != nil {
		return err
	}
	return c.publisher.Publish(ctx, broker.StockReleasedEvent, model.StockReleasedEvent{
		OrderID: event.OrderID,
		Reason:  "order_cancelled",
	})
}
