package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state, persisted as an int.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusCancelled
	StatusShipped
	StatusDelivered
)

// String returns the lowercase wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusCancelled:
		return "cancelled"
	case StatusShipped:
		return "shipped"
	case StatusDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Order invariants.
const (
	MinItems           = 1
	MaxItems           = 20
	MaxCancelReasonLen = 200

	// CancellationWindow is how long after creation an order may still
	// be cancelled.
	CancellationWindow = 2 * time.Hour
)

var (
	// MinTotal and MaxTotal bound the order total (inclusive).
	MinTotal = decimal.NewFromInt(100)
	MaxTotal = decimal.NewFromInt(50_000)
)

// OrderItem is a single line of an order.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID string
	Quantity  int
	UnitPrice Money
}

// LineTotal returns unit price * quantity, rounded to 2 places.
func (i OrderItem) LineTotal() Money {
	return i.UnitPrice.MulInt(i.Quantity)
}

// Order is the durable aggregate root of the saga.
type Order struct {
	ID           uuid.UUID
	CustomerID   string
	Status       Status
	CreatedAt    time.Time
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelReason string
	TotalAmount  Money
	RowVersion   int64
	Items        []OrderItem
}

// ItemInput is the material for a single order line.
type ItemInput struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Currency  string
}

// NewOrder builds a pending order from raw inputs, enforcing the
// aggregate invariants: 1..20 items, positive quantities and prices,
// total between 100 and 50000.
func NewOrder(customerID string, items []ItemInput) (*Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if len(items) < MinItems || len(items) > MaxItems {
		return nil, fmt.Errorf("%w: order must have between %d and %d items", ErrValidation, MinItems, MaxItems)
	}

	orderID := uuid.New()
	now := time.Now().UTC()

	order := &Order{
		ID:         orderID,
		CustomerID: customerID,
		Status:     StatusPending,
		CreatedAt:  now,
		Items:      make([]OrderItem, 0, len(items)),
	}

	currency := ""
	total := decimal.Zero
	for _, in := range items {
		if in.ProductID == "" {
			return nil, fmt.Errorf("%w: item product id is required", ErrValidation)
		}
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrValidation)
		}
		if in.UnitPrice.IsNegative() || in.UnitPrice.IsZero() {
			return nil, fmt.Errorf("%w: item unit price must be positive", ErrValidation)
		}
		price := NewMoney(in.UnitPrice, in.Currency)
		if currency == "" {
			currency = price.Currency
		} else if price.Currency != currency {
			return nil, fmt.Errorf("%w: all items must share one currency", ErrValidation)
		}

		item := OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: price,
		}
		order.Items = append(order.Items, item)
		total = total.Add(item.LineTotal().Amount)
	}

	total = total.Round(2)
	if total.LessThan(MinTotal) || total.GreaterThan(MaxTotal) {
		return nil, fmt.Errorf("%w: order total %s outside [%s, %s]",
			ErrValidation, total, MinTotal, MaxTotal)
	}
	order.TotalAmount = Money{Amount: total, Currency: currency}

	return order, nil
}

// Confirm moves a pending order to confirmed.
func (o *Order) Confirm() error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: cannot confirm order in status %s", ErrIllegalTransition, o.Status)
	}
	now := time.Now().UTC()
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	return nil
}

// Cancel moves a pending or confirmed order to cancelled, provided the
// cancellation window has not elapsed.
func (o *Order) Cancel(reason string) error {
	if o.Status != StatusPending && o.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot cancel order in status %s", ErrIllegalTransition, o.Status)
	}
	now := time.Now().UTC()
	if now.Sub(o.CreatedAt) > CancellationWindow {
		return fmt.Errorf("%w: order created at %s", ErrCancellationWindow, o.CreatedAt.Format(time.RFC3339))
	}
	if len(reason) > MaxCancelReasonLen {
		reason = reason[:MaxCancelReasonLen]
	}
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	return nil
}

// MarkShipped moves a confirmed order to shipped.
func (o *Order) MarkShipped() error {
	if o.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot ship order in status %s", ErrIllegalTransition, o.Status)
	}
	now := time.Now().UTC()
	o.Status = StatusShipped
	o.ShippedAt = &now
	return nil
}

// MarkDelivered moves a shipped order to delivered.
func (o *Order) MarkDelivered() error {
	if o.Status != StatusShipped {
		return fmt.Errorf("%w: cannot deliver order in status %s", ErrIllegalTransition, o.Status)
	}
	now := time.Now().UTC()
	o.Status = StatusDelivered
	o.DeliveredAt = &now
	return nil
}
