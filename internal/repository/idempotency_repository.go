package repository

import (
	"errors"
	"fmt"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository maps client idempotency keys to resource ids.
// The unique index on key is the synchronization primitive: the first
// writer's candidate wins permanently.
type IdempotencyRepository struct {
	pool PoolInterface
}

// NewIdempotencyRepository creates a new IdempotencyRepository with the given pool.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// NewIdempotencyRepositoryWithPool creates a new IdempotencyRepository with a
// custom pool interface. This is primarily used for testing.
func NewIdempotencyRepositoryWithPool(pool PoolInterface) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// TryInsert records key -> candidateID and returns the winning resource
// id for the key. On conflict the previously stored id is returned, so
// every caller after the first observes the same resource.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, key string, candidateID uuid.UUID) (uuid.UUID, error) {
	insert := `INSERT INTO idempotency (id, key, resource_id)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (key) DO NOTHING
	           RETURNING resource_id`

	var winner uuid.UUID
	err := r.pool.QueryRow(ctx, insert, uuid.New(), key, candidateID).Scan(&winner)
	if err == nil {
		return winner, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("insert idempotency key: %w", err)
	}

	// Lost the race: read the first writer's resource id.
	err = r.pool.QueryRow(ctx, `SELECT resource_id FROM idempotency WHERE key = $1`, key).Scan(&winner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("read idempotency key %s: %w", key, err)
	}
	return winner, nil
}
