package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/pkg/database"
)

// OutboxRepository provides data access for the transactional outbox.
type OutboxRepository struct {
	pool PoolInterface
}

// NewOutboxRepository creates a new OutboxRepository with the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// NewOutboxRepositoryWithPool creates a new OutboxRepository with a custom
// pool interface. This is primarily used for testing.
func NewOutboxRepositoryWithPool(pool PoolInterface) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Insert stages a message inside the caller's transaction.
func (r *OutboxRepository) Insert(ctx context.Context, tx database.TxQuerier, exchange string, payload []byte) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox (id, exchange, payload) VALUES ($1, $2, $3)`,
		uuid.New(), exchange, payload)
	if err != nil {
		return fmt.Errorf("insert outbox message for %s: %w", exchange, err)
	}
	return nil
}

// FetchUnpublished returns the oldest unpublished messages, capped at
// limit, in creation order.
func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	query := `SELECT id, exchange, payload, created_at
	            FROM outbox
	           WHERE published_at IS NULL
	           ORDER BY created_at
	           LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.OutboxMessage
	for rows.Next() {
		var m model.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Exchange, &m.Payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return msgs, nil
}

// MarkPublished stamps a message as delivered to the broker.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox SET published_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox message %s published: %w", id, err)
	}
	return nil
}
