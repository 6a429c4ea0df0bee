package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hilmist/OrderService/internal/config"
	"github.com/hilmist/OrderService/internal/consumer"
	"github.com/hilmist/OrderService/internal/handler"
	"github.com/hilmist/OrderService/internal/inventory"
	"github.com/hilmist/OrderService/internal/payment"
	"github.com/hilmist/OrderService/internal/repository"
	"github.com/hilmist/OrderService/internal/service"
	"github.com/hilmist/OrderService/internal/validator"
	"github.com/hilmist/OrderService/pkg/broker"
	"github.com/hilmist/OrderService/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Broker connection for the publisher; each consumer dials its own.
	conn, err := broker.Connect(cfg.Rabbit.URL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	publisher, err := broker.NewPublisher(conn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open publisher channel")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Order Service",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Initialize order components (layered architecture)
	engine := inventory.NewEngine()
	orderRepo := repository.NewOrderRepository(pool)
	idemRepo := repository.NewIdempotencyRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)
	orderService := service.NewOrderService(pool, orderRepo, idemRepo, outboxRepo)
	orderHandler := handler.NewOrderHandler(orderService, validate)
	inventoryHandler := handler.NewInventoryHandler(engine, validate)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool, conn)
	app.Get("/health", healthHandler.Check)

	// Order routes
	app.Post("/api/orders", orderHandler.Create)
	app.Get("/api/orders/:id", orderHandler.Get)
	app.Put("/api/orders/:id/cancel", orderHandler.Cancel)
	app.Put("/api/orders/:id/ship", orderHandler.Ship)
	app.Put("/api/orders/:id/deliver", orderHandler.Deliver)

	// Inventory admin routes
	app.Put("/api/inventory/stock", inventoryHandler.SetStock)
	app.Put("/api/inventory/flash-sale", inventoryHandler.SetFlashSale)
	app.Get("/api/inventory", inventoryHandler.Availability)
	app.Get("/api/inventory/:productId", inventoryHandler.GetStock)

	// Background workers: saga consumers, TTL sweeper, outbox relay.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	if cfg.DisableHostedServices {
		log.Warn().Msg("hosted services disabled, running HTTP edge only")
	} else {
		startWorkers(workerCtx, &workers, cfg, engine, orderRepo, outboxRepo, publisher)
	}

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Stop workers, then close broker and database.
	stopWorkers()
	workers.Wait()

	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("error closing publisher channel")
	}
	if err := conn.Close(); err != nil {
		log.Error().Err(err).Msg("error closing broker connection")
	}

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// startWorkers launches the saga consumers and the supporting loops.
// Each consumer owns its own connection so a poisoned channel cannot
// take the others down.
func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, engine *inventory.Engine, orderRepo *repository.OrderRepository, outboxRepo *repository.OutboxRepository, publisher *broker.Publisher) {
	url := cfg.Rabbit.URL()

	reservation := consumer.NewReservationConsumer(engine, publisher, cfg.Inventory.TTL())
	payments := consumer.NewPaymentConsumer(orderRepo, payment.NewProcessor(payment.NewChargeSource()), publisher)
	status := consumer.NewStatusConsumer(orderRepo, publisher)
	refunds := consumer.NewRefundConsumer(payment.NewRefundGateway(payment.NewRefundSource()), publisher)

	loops := []struct {
		queue    string
		exchange string
		handler  broker.HandlerFunc
	}{
		{consumer.ReservationQueue, broker.OrderCreatedEvent, reservation.HandleOrderCreated},
		{consumer.StockReleaseQueue, broker.StockReleasedEvent, reservation.HandleStockReleased},
		{consumer.PaymentQueue, broker.StockReservedEvent, payments.HandleStockReserved},
		{consumer.StatusPaymentOKQ, broker.PaymentProcessedEvent, status.HandlePaymentProcessed},
		{consumer.StatusPaymentFailQ, broker.PaymentFailedEvent, status.HandlePaymentFailed},
		{consumer.StatusStockFailQ, broker.StockFailedEvent, status.HandleStockFailed},
		{consumer.RefundQueue, broker.OrderCancelledEvent, refunds.HandleOrderCancelled},
	}
	for _, loop := range loops {
		c := broker.NewConsumer(url, loop.queue, loop.exchange, loop.handler)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		inventory.RunSweeper(ctx, engine, inventory.SweepInterval)
	}()

	relay := service.NewOutboxRelay(outboxRepo, publisher, service.RelayInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
