package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/rentloop/rental-engine/internal/clock"
	"github.com/rentloop/rental-engine/internal/config"
	"github.com/rentloop/rental-engine/internal/repository"
	"github.com/rentloop/rental-engine/internal/service"
)

const startBatchSize = 100

func main() {
	log.Println("Starting rental scheduler...")

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	txm := repository.NewTxManager(db)
	rentalRepo := repository.NewRentalRepository(db)
	escrowRepo := repository.NewEscrowRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	disputeRepo := repository.NewDisputeRepository(db)
	productRepo := repository.NewProductRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	clk := clock.New()
	availability := service.NewAvailabilityChecker(rentalRepo, productRepo)
	// The scheduler never computes prices; the calculator runs uncached here.
	pricing := service.NewCostCalculator(productRepo, nil, cfg.GetTierCacheTTL(), cfg.GetServiceFeeRate())
	escrowService := service.NewEscrowService(txm, escrowRepo, rentalRepo, paymentRepo, disputeRepo, outboxRepo, clk)
	rentalService := service.NewRentalService(txm, rentalRepo, escrowRepo, productRepo, outboxRepo,
		availability, pricing, escrowService, service.NewLoggingGateway(), clk)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.StartSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		started, err := rentalService.StartDueRentals(ctx, startBatchSize)
		if err != nil {
			log.Printf("Error starting due rentals: %v", err)
			return
		}
		if started > 0 {
			log.Printf("Started %d due rentals", started)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling rental start job: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Println("Scheduler stopped")
}
