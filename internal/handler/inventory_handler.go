package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/model"
)

// StockEngine defines the inventory operations exposed over HTTP.
type StockEngine interface {
	GetStock(productID string) int
	BulkSetStock(stock map[string]int)
	CheckAvailability(productIDs []string) map[string]int
	SetFlashSaleProducts(productIDs []string)
}

// InventoryHandler handles admin HTTP requests for stock management.
type InventoryHandler struct {
	engine    StockEngine
	validator *validator.Validate
}

// NewInventoryHandler creates a new InventoryHandler with the given engine and validator.
func NewInventoryHandler(engine StockEngine, v *validator.Validate) *InventoryHandler {
	return &InventoryHandler{engine: engine, validator: v}
}

// SetStock handles PUT /api/inventory/stock requests for bulk stock updates.
func (h *InventoryHandler) SetStock(c *fiber.Ctx) error {
	var req model.SetStockRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: stock map is required"})
	}
	for productID, qty := range req.Stock {
		if qty < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request: negative stock for product " + productID,
			})
		}
	}

	h.engine.BulkSetStock(req.Stock)
	log.Info().Int("products", len(req.Stock)).Msg("stock levels updated")
	return c.JSON(fiber.Map{"updated": len(req.Stock)})
}

// GetStock handles GET /api/inventory/:productId requests.
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	return c.JSON(fiber.Map{
		"productId": productID,
		"stock":     h.engine.GetStock(productID),
	})
}

// Availability handles GET /api/inventory requests with a
// comma-separated "products" query, returning available quantity per
// product.
func (h *InventoryHandler) Availability(c *fiber.Ctx) error {
	raw := c.Query("products")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: products query is required"})
	}

	ids := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: products query is required"})
	}

	return c.JSON(fiber.Map{"availability": h.engine.CheckAvailability(ids)})
}

// SetFlashSale handles PUT /api/inventory/flash-sale requests, replacing
// the set of products under the per-customer purchase cap.
func (h *InventoryHandler) SetFlashSale(c *fiber.Ctx) error {
	var req model.FlashSaleRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: productIds is required"})
	}

	h.engine.SetFlashSaleProducts(req.ProductIDs)
	log.Info().Int("products", len(req.ProductIDs)).Msg("flash sale product set replaced")
	return c.JSON(fiber.Map{"flashSaleProducts": len(req.ProductIDs)})
}
