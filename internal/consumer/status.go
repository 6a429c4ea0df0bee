package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/internal/service"
	"github.com/hilmist/OrderService/pkg/broker"
)

// Cancel reasons written by the saga.
const (
	CancelReasonPaymentFailed   = "payment_failed"
	CancelReasonInventoryFailed = "inventory_failed"
)

// statusSaveAttempts bounds optimistic-conflict retries per delivery.
const statusSaveAttempts = 3

// StatusConsumer applies saga outcomes to the order aggregate. Every
// handler is idempotent with respect to the order's current status,
// and unknown orders are tolerated with a warning so poison messages
// cannot wedge a queue.
type StatusConsumer struct {
	orders    OrderStore
	publisher EventPublisher
}

// NewStatusConsumer creates the consumer.
func NewStatusConsumer(orders OrderStore, publisher EventPublisher) *StatusConsumer {
	return &StatusConsumer{orders: orders, publisher: publisher}
}

// mutate loads the order and applies fn, retrying the save when a
// concurrent writer bumped row_version. fn returns false to skip the
// save (the no-op case). A missing order logs and succeeds.
func (c *StatusConsumer) mutate(ctx context.Context, rawOrderID string, fn func(o *model.Order) (bool, error)) error {
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return fmt.Errorf("parse order id %q: %w", rawOrderID, err)
	}

	for attempt := 1; ; attempt++ {
		order, err := c.orders.GetByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order %s: %w", rawOrderID, err)
		}
		if order == nil {
			log.Warn().Str("order_id", rawOrderID).Msg("status update for unknown order")
			return nil
		}

		dirty, err := fn(order)
		if err != nil {
			return err
		}
		if !dirty {
			return nil
		}

		err = c.orders.Save(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, service.ErrOptimisticConflict) || attempt >= statusSaveAttempts {
			return fmt.Errorf("save order %s: %w", rawOrderID, err)
		}
		log.Warn().Str("order_id", rawOrderID).Int("attempt", attempt).Msg("optimistic conflict, reloading order")
	}
}

// HandlePaymentProcessed confirms the order. Already-confirmed orders
// are a redelivery no-op.
func (c *StatusConsumer) HandlePaymentProcessed(ctx context.Context, d amqp.Delivery) error {
	var event model.PaymentProcessedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("unmarshal payment.processed: %w", err)
	}

	return c.mutate(ctx, event.OrderID, func(o *model.Order) (bool, error) {
		if o.Status == model.StatusConfirmed {
			return false, nil
		}
		if err := o.Confirm(); err != nil {
			// The order moved past pending through another path; nothing
			// sensible to apply here.
			log.Warn().Err(err).Str("order_id", event.OrderID).Msg("cannot confirm order")
			return false, nil
		}
		log.Info().Str("order_id", event.OrderID).Msg("order confirmed")
		return true, nil
	})
}

// HandlePaymentFailed cancels the order and asks the reservation
// consumer to return its stock.
func (c *StatusConsumer) HandlePaymentFailed(ctx context.Context, d amqp.Delivery) error {
	var event model.PaymentFailedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("unmarshal payment.failed: %w", err)
	}

	err := c.mutate(ctx, event.OrderID, func(o *model.Order) (bool, error) {
		if o.Status == model.StatusCancelled {
			return false, nil
		}
		if err := o.Cancel(CancelReasonPaymentFailed); err != nil {
			log.Warn().Err(err).Str("order_id", event.OrderID).Msg("cannot cancel order after payment failure")
			return false, nil
		}
		log.Info().Str("order_id", event.OrderID).Str("reason", event.Reason).Msg("order cancelled after payment failure")
		return true, nil
	})
	if err != nil {
		return err
	}

	return c.publisher.Publish(ctx, broker.StockReleasedEvent, model.StockReleasedEvent{
		OrderID: event.OrderID,
		Reason:  CancelReasonPaymentFailed,
	})
}

// HandleStockFailed cancels orders whose reservation was rejected.
// Confirmed or already-cancelled orders are left alone.
func (c *StatusConsumer) HandleStockFailed(ctx context.Context, d amqp.Delivery) error {
	var event model.StockFailedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("unmarshal stock.failed: %w", err)
	}

	return c.mutate(ctx, event.OrderID, func(o *model.Order) (bool, error) {
		if o.Status == model.StatusConfirmed || o.Status == model.StatusCancelled {
			return false, nil
		}
		if err := o.Cancel(CancelReasonInventoryFailed); err != nil {
			log.Warn().Err(err).Str("order_id", event.OrderID).Msg("cannot cancel order after stock failure")
			return false, nil
		}
		log.Info().Str("order_id", event.OrderID).Str("reason", event.Reason).Msg("order cancelled after stock failure")
		return true, nil
	})
}
