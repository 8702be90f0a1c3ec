package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/rentloop/rental-engine/internal/clock"
	"github.com/rentloop/rental-engine/internal/config"
	"github.com/rentloop/rental-engine/internal/handler"
	"github.com/rentloop/rental-engine/internal/repository"
	"github.com/rentloop/rental-engine/internal/service"
	"github.com/rentloop/rental-engine/pkg/response"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	txm := repository.NewTxManager(db)
	rentalRepo := repository.NewRentalRepository(db)
	escrowRepo := repository.NewEscrowRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	disputeRepo := repository.NewDisputeRepository(db)
	productRepo := repository.NewProductRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// Initialize services
	clk := clock.New()
	availability := service.NewAvailabilityChecker(rentalRepo, productRepo)
	pricing := service.NewCostCalculator(productRepo, redisClient, cfg.GetTierCacheTTL(), cfg.GetServiceFeeRate())
	escrowService := service.NewEscrowService(txm, escrowRepo, rentalRepo, paymentRepo, disputeRepo, outboxRepo, clk)
	rentalService := service.NewRentalService(txm, rentalRepo, escrowRepo, productRepo, outboxRepo,
		availability, pricing, escrowService, service.NewLoggingGateway(), clk)

	rentalHandler := handler.NewRentalHandler(rentalService, cfg.GetRequestTimeout())
	escrowHandler := handler.NewEscrowHandler(escrowService, cfg.GetRequestTimeout())
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(rentalHandler, escrowHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(rentalHandler *handler.RentalHandler, escrowHandler *handler.EscrowHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rentals", rentalHandler.CreateRental).Methods("POST")
	api.HandleFunc("/rentals", rentalHandler.ListRentals).Methods("GET")
	api.HandleFunc("/rentals/{rentalId}", rentalHandler.GetRental).Methods("GET")
	api.HandleFunc("/rentals/{rentalId}/accept", rentalHandler.Accept).Methods("POST")
	api.HandleFunc("/rentals/{rentalId}/reject", rentalHandler.Reject).Methods("POST")
	api.HandleFunc("/rentals/{rentalId}/cancel", rentalHandler.Cancel).Methods("POST")
	api.HandleFunc("/rentals/{rentalId}/begin", rentalHandler.Begin).Methods("POST")
	api.HandleFunc("/rentals/{rentalId}/complete", rentalHandler.Complete).Methods("POST")
	api.HandleFunc("/rentals/{rentalId}/escrow", escrowHandler.GetRentalEscrow).Methods("GET")
	api.HandleFunc("/escrows/{escrowId}/dispute", escrowHandler.Dispute).Methods("POST")

	return router
}
