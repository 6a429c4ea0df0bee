package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event payloads exchanged over the bus. All bodies are JSON with
// lowerCamelCase keys; orderId is always the first field.

// OrderCreatedEvent announces a freshly persisted order.
type OrderCreatedEvent struct {
	OrderID    string             `json:"orderId"`
	CustomerID string             `json:"customerId"`
	Total      decimal.Decimal    `json:"total"`
	Items      []OrderCreatedItem `json:"items"`
}

// OrderCreatedItem is one line of an OrderCreatedEvent.
type OrderCreatedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// StockReservedEvent announces a fully reserved order.
type StockReservedEvent struct {
	OrderID    string          `json:"orderId"`
	Total      decimal.Decimal `json:"total"`
	ReservedAt time.Time       `json:"reservedAt"`
}

// StockFailedEvent announces a reservation failure.
type StockFailedEvent struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// StockReleasedEvent asks the reservation consumer to return stock.
type StockReleasedEvent struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// PaymentProcessedEvent announces a successful charge.
type PaymentProcessedEvent struct {
	OrderID     string          `json:"orderId"`
	Total       decimal.Decimal `json:"total"`
	ProcessedAt time.Time       `json:"processedAt"`
}

// PaymentFailedEvent announces a terminal payment failure.
type PaymentFailedEvent struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// OrderCancelledEvent announces a cancelled order.
type OrderCancelledEvent struct {
	OrderID string          `json:"orderId"`
	At      time.Time       `json:"at"`
	Reason  string          `json:"reason,omitempty"`
	Total   decimal.Decimal `json:"total"`
}

// OrderShippedEvent announces a shipped order.
type OrderShippedEvent struct {
	OrderID string    `json:"orderId"`
	At      time.Time `json:"at"`
}

// OrderDeliveredEvent announces a delivered order.
type OrderDeliveredEvent struct {
	OrderID string    `json:"orderId"`
	At      time.Time `json:"at"`
}

// RefundProcessedEvent announces a successful refund.
type RefundProcessedEvent struct {
	OrderID string    `json:"orderId"`
	At      time.Time `json:"at"`
}

// RefundFailedEvent announces an exhausted refund attempt.
type RefundFailedEvent struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}
