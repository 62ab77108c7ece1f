package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/lots/events"
	"github.com/stocklot/stocklot-backend/internal/lots/handler"
	"github.com/stocklot/stocklot-backend/internal/lots/repository"
	"github.com/stocklot/stocklot-backend/internal/lots/service"
	"github.com/stocklot/stocklot-backend/pkg/config"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/httputil"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("lot-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("lot-service", cfg.Server.Environment)
	log.Info().Msg("starting Lot Service")

	defaultThreshold, err := decimal.NewFromString(cfg.Inventory.LowStockThreshold)
	if err != nil || !defaultThreshold.IsPositive() {
		fmt.Fprintf(os.Stderr, "configuration error: invalid low stock threshold %q\n", cfg.Inventory.LowStockThreshold)
		os.Exit(1)
	}

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewLotEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	lotRepo := repository.NewLotRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	tagRepo := repository.NewTagRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	batchRepo := repository.NewBatchRepository(db)

	// Initialize services
	ledgerService := service.NewLedgerService(lotRepo, movementRepo, tagRepo, unitRepo, batchRepo, publisher, defaultThreshold, log)
	catalogService := service.NewCatalogService(tagRepo, unitRepo, log)
	aggregatorService := service.NewAggregatorService(lotRepo, movementRepo, tagRepo, defaultThreshold, log)

	// Initialize handlers
	lotHandler := handler.NewLotHandler(ledgerService, log)
	catalogHandler := handler.NewCatalogHandler(catalogService, log)
	analyticsHandler := handler.NewAnalyticsHandler(aggregatorService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.AuthMiddleware(&cfg.JWT))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "lot-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/lots", func(r chi.Router) {
		// Lot routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", lotHandler.List)
			r.Post("/", lotHandler.Create)
			r.Get("/{id}", lotHandler.Get)
			r.Put("/{id}", lotHandler.Update)
			r.Delete("/{id}", lotHandler.Delete)
			r.Post("/{id}/archive", lotHandler.Archive)
			r.Post("/{id}/unarchive", lotHandler.Unarchive)
			r.Get("/{id}/lock", lotHandler.CheckLock)
			r.Get("/{id}/movements", lotHandler.ListMovements)
			r.Post("/{id}/movements", lotHandler.RecordMovement)
		})

		// Tag routes
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", catalogHandler.ListTags)
			r.Post("/", catalogHandler.CreateTag)
			r.Get("/{id}", catalogHandler.GetTag)
			r.Put("/{id}", catalogHandler.UpdateTag)
		})

		// Unit routes
		r.Route("/units", func(r chi.Router) {
			r.Get("/", catalogHandler.ListUnits)
			r.Post("/", catalogHandler.CreateUnit)
			r.Get("/{id}", catalogHandler.GetUnit)
			r.Put("/{id}", catalogHandler.UpdateUnit)
		})

		// Analytics routes
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/inventory", analyticsHandler.CurrentInventory)
			r.Get("/out-of-stock", analyticsHandler.OutOfStock)
			r.Get("/low-stock", analyticsHandler.LowStock)
			r.Get("/summary", analyticsHandler.ConsumptionSummary)
			r.Get("/summary/detail", analyticsHandler.ConsumptionDetail)
			r.Get("/metrics", analyticsHandler.Metrics)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
