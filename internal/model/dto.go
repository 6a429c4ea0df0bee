package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the DTO for creating an order.
type CreateOrderRequest struct {
	CustomerID string                   `json:"customerId" validate:"required,notblank,max=255"`
	Items      []CreateOrderItemRequest `json:"items" validate:"required,min=1,max=20,dive"`
}

// CreateOrderItemRequest is one requested order line.
type CreateOrderItemRequest struct {
	ProductID string          `json:"productId" validate:"required,notblank,max=255"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"required"`
	Currency  string          `json:"currency" validate:"omitempty,currency"`
}

// CancelOrderRequest is the DTO for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

// OrderResponse is the API representation of an order.
type OrderResponse struct {
	ID           string              `json:"id"`
	CustomerID   string              `json:"customerId"`
	Status       string              `json:"status"`
	TotalAmount  decimal.Decimal     `json:"totalAmount"`
	Currency     string              `json:"currency"`
	CreatedAt    time.Time           `json:"createdAt"`
	ConfirmedAt  *time.Time          `json:"confirmedAt,omitempty"`
	CancelledAt  *time.Time          `json:"cancelledAt,omitempty"`
	ShippedAt    *time.Time          `json:"shippedAt,omitempty"`
	DeliveredAt  *time.Time          `json:"deliveredAt,omitempty"`
	CancelReason string              `json:"cancelReason,omitempty"`
	Items        []OrderItemResponse `json:"items"`
}

// OrderItemResponse is one order line in an OrderResponse.
type OrderItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Currency  string          `json:"currency"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// ToResponse maps the aggregate to its API DTO.
func (o *Order) ToResponse() *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:        it.ID.String(),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Amount,
			Currency:  it.UnitPrice.Currency,
			LineTotal: it.LineTotal().Amount,
		})
	}
	return &OrderResponse{
		ID:           o.ID.String(),
		CustomerID:   o.CustomerID,
		Status:       o.Status.String(),
		TotalAmount:  o.TotalAmount.Amount,
		Currency:     o.TotalAmount.Currency,
		CreatedAt:    o.CreatedAt,
		ConfirmedAt:  o.ConfirmedAt,
		CancelledAt:  o.CancelledAt,
		ShippedAt:    o.ShippedAt,
		DeliveredAt:  o.DeliveredAt,
		CancelReason: o.CancelReason,
		Items:        items,
	}
}

// SetStockRequest is the admin DTO for bulk stock updates.
type SetStockRequest struct {
	Stock map[string]int `json:"stock" validate:"required,min=1"`
}

// FlashSaleRequest is the admin DTO replacing the flash-sale set.
type FlashSaleRequest struct {
	ProductIDs []string `json:"productIds" validate:"required"`
}
