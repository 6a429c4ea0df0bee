package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/model"
	"github.com/hilmist/OrderService/internal/service"
)

// IdempotencyKeyHeader carries the client's create deduplication key.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderServiceInterface defines the interface for order business logic.
type OrderServiceInterface interface {
	Create(ctx context.Context, idempotencyKey string, req *model.CreateOrderRequest) (*model.OrderResponse, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.OrderResponse, error)
	Ship(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)
	Deliver(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)
}

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	service   OrderServiceInterface
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler with the given service and validator.
func NewOrderHandler(svc OrderServiceInterface, v *validator.Validate) *OrderHandler {
	return &OrderHandler{service: svc, validator: v}
}

// formatOrderValidationError converts validator errors to client messages.
func formatOrderValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			switch fe.Tag() {
			case "required", "notblank":
				return "invalid request: " + field + " is required"
			case "min", "gte":
				return "invalid request: " + field + " is below the minimum"
			case "max":
				return "invalid request: " + field + " exceeds the maximum"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// Create handles POST /api/orders requests.
// An optional Idempotency-Key header makes retried creates return the
// original order instead of a duplicate; a replay answers 200 where a
// fresh order answers 201.
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req model.CreateOrderRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatOrderValidationError(err)})
	}

	resp, created, err := h.service.Create(c.Context(), c.Get(IdempotencyKeyHeader), &req)
	if err != nil {
		if errors.Is(err, model.ErrValidation) || errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, service.ErrOptimisticConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order creation in progress, retry"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("customer_id", req.CustomerID).
			Msg("failed to create order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("order_id", resp.ID).
		Str("customer_id", resp.CustomerID).
		Msg("order created")

	if !created {
		return c.Status(fiber.StatusOK).JSON(resp)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Get handles GET /api/orders/:id requests.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	resp, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		log.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(resp)
}

// Cancel handles PUT /api/orders/:id/cancel requests.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	var req model.CancelOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	resp, err := h.service.Cancel(c.Context(), id, req.Reason)
	if err != nil {
		return h.transitionError(c, id, "cancel", err)
	}

	log.Info().
		Str("order_id", resp.ID).
		Str("reason", resp.CancelReason).
		Msg("order cancelled")
	return c.JSON(resp)
}

// Ship handles PUT /api/orders/:id/ship requests.
func (h *OrderHandler) Ship(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	resp, err := h.service.Ship(c.Context(), id)
	if err != nil {
		return h.transitionError(c, id, "ship", err)
	}
	return c.JSON(resp)
}

// Deliver handles PUT /api/orders/:id/deliver requests.
func (h *OrderHandler) Deliver(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	resp, err := h.service.Deliver(c.Context(), id)
	if err != nil {
		return h.transitionError(c, id, "deliver", err)
	}
	return c.JSON(resp)
}

// transitionError maps lifecycle mutation failures to HTTP statuses.
func (h *OrderHandler) transitionError(c *fiber.Ctx, id uuid.UUID, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	case errors.Is(err, model.ErrCancellationWindow):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "cancellation window has elapsed"})
	case errors.Is(err, model.ErrIllegalTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrOptimisticConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order was modified concurrently, retry"})
	}
	log.Error().
		Err(err).
		Str("order_id", id.String()).
		Str("operation", op).
		Msg("order transition failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
