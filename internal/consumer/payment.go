package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/internal/payment"
	"github.com/hilmist/OrderService/pkg/broker"
)

// Payment failure reasons on the wire.
const (
	ReasonFraudVerification = "fraud_verification_required"
	ReasonProcessorError    = "processor_error"
	ReasonPaymentDeclined   = "payment_declined"
)

// PaymentConsumer charges reserved orders and publishes the terminal
// payment.processed or payment.failed event.
type PaymentConsumer struct {
	orders    OrderStore
	processor Charger
	publisher EventPublisher
}

// NewPaymentConsumer creates the consumer.
func NewPaymentConsumer(orders OrderStore, processor Charger, publisher EventPublisher) *PaymentConsumer {
	return &PaymentConsumer{orders: orders, processor: processor, publisher: publisher}
}

// HandleStockReserved loads the order total, applies the fraud rule
// and runs the charge. A terminal event is always published before the
// delivery is acked; unknown orders are tolerated with a warning.
func (c *PaymentConsumer) HandleStockReserved(ctx context.Context, d amqp.Delivery) error {
	var event model.StockReservedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("unmarshal stock.reserved: %w", err)
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return fmt.Errorf("parse order id %q: %w", event.OrderID, err)
	}

	order, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", event.OrderID, err)
	}
	if order == nil {
		log.Warn().Str("order_id", event.OrderID).Msg("payment requested for unknown order")
		return nil
	}

	total := order.TotalAmount.Amount
	if total.GreaterThan(payment.FraudThreshold) {
		log.Warn().
			Str("order_id", event.OrderID).
			Str("total", total.String()).
			Msg("order flagged for fraud verification")
		return c.publisher.Publish(ctx, broker.PaymentFailedEvent, model.PaymentFailedEvent{
			OrderID: event.OrderID,
			Reason:  ReasonFraudVerification,
		})
	}

	switch err := c.processor.Charge(ctx, event.OrderID, total); {
	case err == nil:
		log.Info().Str("order_id", event.OrderID).Str("total", total.String()).Msg("payment processed")
		return c.publisher.Publish(ctx, broker.PaymentProcessedEvent, model.PaymentProcessedEvent{
			OrderID:     event.OrderID,
			Total:       total,
			ProcessedAt: time.Now().UTC(),
		})
	case errors.Is(err, payment.ErrTimeout):
		log.Warn().Str("order_id", event.OrderID).Msg("payment retries exhausted")
		return c.publisher.Publish(ctx, broker.PaymentFailedEvent, model.PaymentFailedEvent{
			OrderID: event.OrderID,
			Reason:  ReasonProcessorError,
		})
	case errors.Is(err, payment.ErrDeclined):
		log.Warn().Str("order_id", event.OrderID).Msg("payment declined")
		return c.publisher.Publish(ctx, broker.PaymentFailedEvent, model.PaymentFailedEvent{
			OrderID: event.OrderID,
			Reason:  ReasonPaymentDeclined,
		})
	default:
		return fmt.Errorf("charge order %s: %w", event.OrderID, err)
	}
}
