package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepository_TryInsert_FirstWriterWins(t *testing.T) {
	candidate := uuid.New()

	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			// INSERT ... RETURNING resource_id echoes the candidate
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*uuid.UUID)) = candidate
				return nil
			}}
		},
	}

	repo := NewIdempotencyRepositoryWithPool(mock)
	winner, err := repo.TryInsert(context.Background(), "key-1", candidate)

	require.NoError(t, err)
	assert.Equal(t, candidate, winner)
}

func TestIdempotencyRepository_TryInsert_ConflictReturnsExisting(t *testing.T) {
	existing := uuid.New()
	candidate := uuid.New()
	calls := 0

	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			calls++
			if calls == 1 {
				// ON CONFLICT DO NOTHING yields no row
				return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
			}
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*uuid.UUID)) = existing
				return nil
			}}
		},
	}

	repo := NewIdempotencyRepositoryWithPool(mock)
	winner, err := repo.TryInsert(context.Background(), "key-1", candidate)

	require.NoError(t, err)
	assert.Equal(t, existing, winner, "second caller observes the first writer's id")
	assert.Equal(t, 2, calls)
}

func TestIdempotencyRepository_TryInsert_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection refused")
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return dbErr }}
		},
	}

	repo := NewIdempotencyRepositoryWithPool(mock)
	_, err := repo.TryInsert(context.Background(), "key-1", uuid.New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert idempotency key")
}
