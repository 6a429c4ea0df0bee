package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/inventory"
	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/pkg/broker"
)

// ReservationConsumer reserves stock for created orders and releases
// it again when a stock.released event arrives.
type ReservationConsumer struct {
	engine    InventoryEngine
	publisher EventPublisher
	ttl       time.Duration
}

// NewReservationConsumer creates the consumer. ttl is the reservation
// time-to-live (INVENTORY_TTL_SECONDS).
func NewReservationConsumer(engine InventoryEngine, publisher EventPublisher, ttl time.Duration) *ReservationConsumer {
	return &ReservationConsumer{engine: engine, publisher: publisher, ttl: ttl}
}

// HandleOrderCreated reserves every item of the order, stopping at the
// first failure and releasing what was collected so far. It always
// publishes a terminal stock.reserved or stock.failed event; only a
// publish failure is surfaced (routing the delivery to the DLQ).
func (c *ReservationConsumer) HandleOrderCreated(ctx context.Context, d amqp.Delivery) error {
	var event model.OrderCreatedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("unmarshal order.created: %w", err)
	}

	if len(event.Items) == 0 {
		log.Warn().Str("order_id", event.OrderID).Msg("order.created carries no items")
		return c.publisher.Publish(ctx, broker.StockFailedEvent, model.StockFailedEvent{
			OrderID: event.OrderID,
			Reason:  "order has no items",
		})
	}

	reserved := make([]string, 0, len(event.Items))
	failedAt := -1
	for i, item := range event.Items {
		req := inventory.ReserveRequest{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			ReservationID: uuid.NewString(),
			CustomerID:    event.CustomerID,
			OrderID:       event.OrderID,
			TTL:           c.ttl,
		}
		if !c.engine.TryReserve(req) {
			failedAt = i
			break
		}
		reserved = append(reserved, req.ReservationID)
	}

	if failedAt >= 0 {
		for _, id := range reserved {
			c.engine.Release(id)
		}
		failedProduct := event.Items[failedAt].ProductID
		log.Warn().
			Str("order_id", event.OrderID).
			Str("product_id", failedProduct).
			Msg("stock reservation failed")
		return c.publisher.Publish(ctx, broker.StockFailedEvent, model.StockFailedEvent{
			OrderID: event.OrderID,
			Reason:  fmt.Sprintf("reservation rejected for product %s", failedProduct),
		})
	}

	log.Info().
		Str("order_id", event.OrderID).
		Int("items", len(reserved)).
		Msg("stock reserved")
	return c.publisher.Publish(ctx, broker.StockReservedEvent, model.StockReservedEvent{
		OrderID:    event.OrderID,
		Total:      event.Total,
		ReservedAt: time.Now().UTC(),
	})
}

// HandleStockReleased returns every reservation held for the order.
func (c *ReservationConsumer) HandleStockReleased(ctx context.Context, d amqp.Delivery) error {
	var event model.StockReleasedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("unmarshal stock.released: %w", err)
	}

	c.engine.ReleaseByOrder(event.OrderID)
	log.Info().
		Str("order_id", event.OrderID).
		Str("reason", event.Reason).
		Msg("reservations released")
	return nil
}
