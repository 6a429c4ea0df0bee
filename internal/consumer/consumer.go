package consumer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hilmist/OrderService/internal/inventory"
	"github.com/hilmist/OrderService/internal/model"
)

// Queue names. Each consumer group owns one durable queue bound to one
// fanout exchange; the companion DLX/DLQ pair derives from the queue
// name.
const (
	ReservationQueue    = "order.created.inventory"
	StockReleaseQueue   = "stock.released.inventory"
	PaymentQueue        = "stock.reserved.payment"
	StatusPaymentOKQ    = "payment.processed.status"
	StatusPaymentFailQ  = "payment.failed.status"
	StatusStockFailQ    = "stock.failed.status"
	RefundQueue         = "order.cancelled.refund"
)

// EventPublisher publishes a confirmed event to a fanout exchange.
// Defined here so consumers do not depend on the broker package's
// concrete publisher.
type EventPublisher interface {
	Publish(ctx context.Context, exchange string, body any) error
}

// InventoryEngine is the reservation engine surface the saga needs.
type InventoryEngine interface {
	TryReserve(req inventory.ReserveRequest) bool
	Release(reservationID string)
	ReleaseByOrder(orderID string)
}

// OrderStore loads and saves order aggregates.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Save(ctx context.Context, order *model.Order) error
}

// Charger runs a payment attempt sequence for an order total.
type Charger interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal) error
}

// Refunder runs a refund attempt sequence for an order total.
type Refunder interface {
	Refund(ctx context.Context, orderID string, amount decimal.Decimal) error
}
