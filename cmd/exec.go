package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	"bus-ticketing/config"
	"bus-ticketing/internal/handlers"
	"bus-ticketing/internal/services"
	"bus-ticketing/internal/services/provider"
	"bus-ticketing/internal/store"
	"bus-ticketing/monitoring"
	"bus-ticketing/security"
	"bus-ticketing/utils"

	_ "bus-ticketing/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paymentProvider, err := provider.New(cfg)
	if err != nil {
		return err
	}
	slog.Info("payment provider configured", "provider", paymentProvider.Name())

	// Initialize services
	st := store.NewPocketBase(app)
	orderService := services.NewOrderService(st, cfg.Pricing)
	paymentService := services.NewPaymentService(st, paymentProvider, orderService, cfg.Currency, cfg.ProviderTimeout)
	refundService := services.NewRefundService(st, paymentProvider, cfg.ProviderTimeout)
	ticketService := services.NewTicketService(st, utils.NewTicketLock(redisClient, cfg.TicketLockTTL))

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	refundHandler := handlers.NewRefundHandler(refundService, paymentService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	rateLimiter := security.NewRateLimiter(redisClient, cfg.ValidationRateLimit)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	// Start background tasks
	go runSweep(ctx, "expired_tickets", cfg.ExpirySweepInterval, func(ctx context.Context) (int, error) {
		return ticketService.ExpireOldTickets(ctx)
	})
	go runSweep(ctx, "pending_refunds", cfg.RefundSweepInterval, func(ctx context.Context) (int, error) {
		return refundService.ProcessPendingRefunds(ctx)
	})

	if cfg.EnableMetrics {
		go monitoring.Serve(":" + cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Order endpoints
		e.Router.POST("/api/v1/orders", orderHandler.CreateOrder)
		e.Router.GET("/api/v1/orders", orderHandler.ListOrders)
		e.Router.GET("/api/v1/orders/{orderId}", orderHandler.GetOrder)
		e.Router.POST("/api/v1/orders/{orderId}/cancel", orderHandler.CancelOrder)
		e.Router.GET("/api/v1/orders/{orderId}/payment", paymentHandler.GetPaymentByOrder)

		// Payment endpoints
		e.Router.POST("/api/v1/payments", paymentHandler.CreatePayment)
		e.Router.GET("/api/v1/payments", paymentHandler.ListPayments)
		e.Router.GET("/api/v1/payments/{paymentId}", paymentHandler.GetPayment)
		e.Router.GET("/api/v1/payments/{paymentId}/refunds", refundHandler.ListRefundsByPayment)

		// Refund endpoints
		e.Router.POST("/api/v1/refunds", refundHandler.CreateRefund)
		e.Router.GET("/api/v1/refunds/{refundId}", refundHandler.GetRefund)

		// Ticket endpoints
		e.Router.GET("/api/v1/tickets", ticketHandler.ListTickets)
		e.Router.GET("/api/v1/tickets/active", ticketHandler.ListActiveTickets)
		e.Router.GET("/api/v1/tickets/{ticketId}", ticketHandler.GetTicket)
		e.Router.GET("/api/v1/tickets/{ticketId}/qr", ticketHandler.GetTicketQR)
		e.Router.POST("/api/v1/tickets/{ticketId}/cancel", ticketHandler.CancelTicket)

		// Validation endpoint, used by inspector devices without a user
		// session. Rate limited per IP instead of authenticated.
		e.Router.POST("/api/v1/tickets/validate", rateLimiter.LimitValidation(ticketHandler.ValidateTicket))

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// runSweep runs fn on a fixed interval until the context is cancelled.
func runSweep(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := fn(ctx); err != nil {
				slog.Error("sweep failed", "sweep", name, "error", err)
			} else if n > 0 {
				slog.Info("sweep completed", "sweep", name, "processed", n)
			}
		}
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
