package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxMessage is a bus emission staged inside the order transaction.
// The relay publishes staged rows after commit, giving at-least-once
// delivery without publishing before the order is durable.
type OutboxMessage struct {
	ID        uuid.UUID
	Exchange  string
	Payload   []byte
	CreatedAt time.Time
}
