package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerConn reports whether the bus connection is still open.
// Satisfied by *amqp091.Connection.
type BrokerConn interface {
	IsClosed() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool   Pinger
	broker BrokerConn
}

// NewHealthHandler creates a new HealthHandler checking the database
// pool and, when non-nil, the broker connection.
func NewHealthHandler(pool Pinger, broker BrokerConn) *HealthHandler {
	return &HealthHandler{pool: pool, broker: broker}
}

// Check reports service health.
// Returns 200 OK with {"status": "healthy"} when the database and broker are reachable.
// Returns 503 Service Unavailable with {"status": "unhealthy", "error": "..."} otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.pool.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}
	if h.broker != nil && h.broker.IsClosed() {
		log.Error().Msg("health check failed: broker connection closed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "broker connection closed",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
