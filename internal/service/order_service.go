package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/pkg/broker"
	"github.com/hilmist/OrderService/pkg/database"
)

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Update(ctx context.Context, tx database.TxQuerier, order *model.Order) error
}

// IdempotencyRepositoryInterface defines the interface for idempotency key access.
type IdempotencyRepositoryInterface interface {
	TryInsert(ctx context.Context, key string, candidateID uuid.UUID) (uuid.UUID, error)
}

// OutboxRepositoryInterface defines the interface for staging bus emissions.
type OutboxRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, exchange string, payload []byte) error
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderService provides business logic for order lifecycle operations.
// Every state change commits together with its outbox row, so the bus
// only ever sees orders that are durable.
type OrderService struct {
	pool       TxBeginner
	orderRepo  OrderRepositoryInterface
	idemRepo   IdempotencyRepositoryInterface
	outboxRepo OutboxRepositoryInterface
}

// NewOrderService creates a new OrderService with the given pool and repositories.
func NewOrderService(pool *pgxpool.Pool, orderRepo OrderRepositoryInterface, idemRepo IdempotencyRepositoryInterface, outboxRepo OutboxRepositoryInterface) *OrderService {
	return &OrderService{
		pool:       pool,
		orderRepo:  orderRepo,
		idemRepo:   idemRepo,
		outboxRepo: outboxRepo,
	}
}

// NewOrderServiceWithTxBeginner creates an OrderService with a custom TxBeginner.
// Primarily used for testing.
func NewOrderServiceWithTxBeginner(pool TxBeginner, orderRepo OrderRepositoryInterface, idemRepo IdempotencyRepositoryInterface, outboxRepo OutboxRepositoryInterface) *OrderService {
	return &OrderService{
		pool:       pool,
		orderRepo:  orderRepo,
		idemRepo:   idemRepo,
		outboxRepo: outboxRepo,
	}
}

// Create builds and persists a new pending order, staging the created
// event in the same transaction. When idempotencyKey is non-empty and
// was seen before, the original order is returned and nothing new is
// written or published; the boolean reports whether a new order was
// created (false on a replay).
func (s *OrderService) Create(ctx context.Context, idempotencyKey string, req *model.CreateOrderRequest) (*model.OrderResponse, bool, error) {
	if req == nil {
		return nil, false, ErrInvalidRequest
	}

	items := make([]model.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.ItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Currency:  it.Currency,
		})
	}

	order, err := model.NewOrder(req.CustomerID, items)
	if err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		winner, err := s.idemRepo.TryInsert(ctx, idempotencyKey, order.ID)
		if err != nil {
			return nil, false, fmt.Errorf("register idempotency key: %w", err)
		}
		if winner != order.ID {
			existing, err := s.orderRepo.GetByID(ctx, winner)
			if err != nil {
				return nil, false, fmt.Errorf("load original order for key: %w", err)
			}
			if existing == nil {
				// The first writer claimed the key but its order has not
				// committed yet. The client retries.
				return nil, false, ErrOptimisticConflict
			}
			return existing.ToResponse(), false, nil
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	if err := s.orderRepo.Insert(ctx, tx, order); err != nil {
		return nil, false, err
	}

	eventItems := make([]model.OrderCreatedItem, 0, len(order.Items))
	for _, it := range order.Items {
		eventItems = append(eventItems, model.OrderCreatedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}
	err = s.stage(ctx, tx, broker.OrderCreatedEvent, model.OrderCreatedEvent{
		OrderID:    order.ID.String(),
		CustomerID: order.CustomerID,
		Total:      order.TotalAmount.Amount,
		Items:      eventItems,
	})
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit order: %w", err)
	}
	return order.ToResponse(), true, nil
}

// GetByID retrieves an order with its items.
// Returns ErrOrderNotFound if the order doesn't exist.
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order.ToResponse(), nil
}

// Cancel cancels a pending or confirmed order within the cancellation
// window and stages the cancelled event for the refund consumer.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.OrderResponse, error) {
	return s.transition(ctx, id, func(order *model.Order) error {
		return order.Cancel(reason)
	}, func(order *model.Order) (string, any) {
		return broker.OrderCancelledEvent, model.OrderCancelledEvent{
			OrderID: order.ID.String(),
			At:      *order.CancelledAt,
			Reason:  order.CancelReason,
			Total:   order.TotalAmount.Amount,
		}
	})
}

// Ship moves a confirmed order to shipped.
func (s *OrderService) Ship(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	return s.transition(ctx, id, (*model.Order).MarkShipped, func(order *model.Order) (string, any) {
		return broker.OrderShippedEvent, model.OrderShippedEvent{
			OrderID: order.ID.String(),
			At:      *order.ShippedAt,
		}
	})
}

// Deliver moves a shipped order to delivered.
func (s *OrderService) Deliver(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	return s.transition(ctx, id, (*model.Order).MarkDelivered, func(order *model.Order) (string, any) {
		return broker.OrderDeliveredEvent, model.OrderDeliveredEvent{
			OrderID: order.ID.String(),
			At:      *order.DeliveredAt,
		}
	})
}

// transition loads the order, applies the domain mutation, and commits
// the optimistic-locked update together with its staged event.
func (s *OrderService) transition(ctx context.Context, id uuid.UUID, mutate func(*model.Order) error, event func(*model.Order) (string, any)) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if err := mutate(order); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	if err := s.orderRepo.Update(ctx, tx, order); err != nil {
		return nil, err
	}

	exchange, body := event(order)
	if err := s.stage(ctx, tx, exchange, body); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order update: %w", err)
	}
	return order.ToResponse(), nil
}

func (s *OrderService) stage(ctx context.Context, tx database.TxQuerier, exchange string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", exchange, err)
	}
	return s.outboxRepo.Insert(ctx, tx, exchange, payload)
}
