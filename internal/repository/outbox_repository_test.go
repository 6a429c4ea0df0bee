package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_Insert(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	repo := NewOutboxRepositoryWithPool(mock)
	err := repo.Insert(context.Background(), mock, "order.created", []byte(`{"orderId":"x"}`))

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "INSERT INTO outbox")
	assert.Equal(t, "order.created", capturedArgs[1])
	assert.Equal(t, []byte(`{"orderId":"x"}`), capturedArgs[2])
}

func TestOutboxRepository_FetchUnpublished(t *testing.T) {
	id := uuid.New()
	created := time.Now().UTC()

	mock := &mockPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			assert.Contains(t, sql, "published_at IS NULL")
			return &mockRows{rows: []func(dest ...any) error{
				func(dest ...any) error {
					*(dest[0].(*uuid.UUID)) = id
					*(dest[1].(*string)) = "order.created"
					*(dest[2].(*[]byte)) = []byte(`{}`)
					*(dest[3].(*time.Time)) = created
					return nil
				},
			}}, nil
		},
	}

	repo := NewOutboxRepositoryWithPool(mock)
	msgs, err := repo.FetchUnpublished(context.Background(), 50)

	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "order.created", msgs[0].Exchange)
}

func TestOutboxRepository_MarkPublished(t *testing.T) {
	id := uuid.New()
	var capturedArgs []any
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			assert.Contains(t, sql, "published_at = now()")
			capturedArgs = arguments
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	repo := NewOutboxRepositoryWithPool(mock)
	err := repo.MarkPublished(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, capturedArgs[0])
}
