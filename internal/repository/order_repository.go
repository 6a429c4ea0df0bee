package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/internal/service"
	"github.com/hilmist/OrderService/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OrderRepository provides data access for orders using pgx.
type OrderRepository struct {
	pool PoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom
// pool interface. This is primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists a new order and its items. Must be called within a
// transaction so the aggregate commits atomically.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO orders
		   (id, customer_id, status, created_at, cancel_reason, total_amount, row_version)
		 VALUES ($1, $2, $3, $4, $5, $6, 1)`,
		order.ID, order.CustomerID, int(order.Status), order.CreatedAt,
		order.CancelReason, order.TotalAmount.Amount.StringFixed(2))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.RowVersion = 1

	for _, item := range order.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, currency)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, order.ID, item.ProductID, item.Quantity,
			item.UnitPrice.Amount.StringFixed(2), item.UnitPrice.Currency)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}
	return nil
}

// GetByID retrieves an order with its items.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT id, customer_id, status, created_at, confirmed_at, cancelled_at,
	                 shipped_at, delivered_at, cancel_reason, total_amount::text, row_version
	            FROM orders WHERE id = $1`

	var (
		order  model.Order
		status int
		total  string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerID,
		&status,
		&order.CreatedAt,
		&order.ConfirmedAt,
		&order.CancelledAt,
		&order.ShippedAt,
		&order.DeliveredAt,
		&order.CancelReason,
		&total,
		&order.RowVersion,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	order.Status = model.Status(status)

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse order %s total %q: %w", id, total, err)
	}

	items, currency, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	order.TotalAmount = model.Money{Amount: amount, Currency: currency}

	return &order, nil
}

func (r *OrderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, string, error) {
	query := `SELECT id, order_id, product_id, quantity, unit_price::text, currency
	            FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, "", fmt.Errorf("get items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var (
		items    []model.OrderItem
		currency = model.DefaultCurrency
	)
	for rows.Next() {
		var (
			item  model.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &price, &item.UnitPrice.Currency); err != nil {
			return nil, "", fmt.Errorf("scan order item: %w", err)
		}
		item.UnitPrice.Amount, err = decimal.NewFromString(price)
		if err != nil {
			return nil, "", fmt.Errorf("parse item price %q: %w", price, err)
		}
		currency = item.UnitPrice.Currency
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate order items: %w", err)
	}
	return items, currency, nil
}

// Update persists a status mutation with optimistic locking: the write
// only lands when row_version is unchanged since load. On success the
// in-memory RowVersion is advanced; on a lost race it returns
// service.ErrOptimisticConflict.
func (r *OrderRepository) Update(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	query := `UPDATE orders
	             SET status = $1, confirmed_at = $2, cancelled_at = $3, shipped_at = $4,
	                 delivered_at = $5, cancel_reason = $6, row_version = row_version + 1
	           WHERE id = $7 AND row_version = $8`

	tag, err := tx.Exec(ctx, query,
		int(order.Status), order.ConfirmedAt, order.CancelledAt, order.ShippedAt,
		order.DeliveredAt, order.CancelReason, order.ID, order.RowVersion)
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOptimisticConflict
	}
	order.RowVersion++
	return nil
}

// Save is Update against the repository's own pool, for callers that
// do not carry a transaction (the saga consumers).
func (r *OrderRepository) Save(ctx context.Context, order *model.Order) error {
	return r.Update(ctx, r.pool, order)
}
