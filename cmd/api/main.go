package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sangkips/posledger-api/internal/application/service"
	"github.com/sangkips/posledger-api/internal/config"
	domainRepo "github.com/sangkips/posledger-api/internal/domain/repository"
	"github.com/sangkips/posledger-api/internal/infrastructure/database"
	"github.com/sangkips/posledger-api/internal/infrastructure/repository"
	"github.com/sangkips/posledger-api/internal/infrastructure/stream"
	"github.com/sangkips/posledger-api/internal/presentation/http/handler"
	"github.com/sangkips/posledger-api/internal/presentation/http/routes"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Ledger change notifications: Redis pub/sub when configured, otherwise
	// in-process only
	var notifier domainRepo.LedgerNotifier
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		notifier = stream.NewRedisNotifier(redisClient)
		log.Printf("Ledger change stream: redis (%s)", cfg.Redis.Addr)
	} else {
		notifier = stream.NewMemoryNotifier()
		log.Printf("Ledger change stream: in-process")
	}

	// Initialize repositories
	ledgerStore := repository.NewLedgerRepository(db)
	auditTrail := repository.NewAuditRepository(db)

	// Initialize services
	ledgerService := service.NewLedgerService(ledgerStore, auditTrail, notifier, cfg.App.VATPercent)
	paymentService := service.NewPaymentService(ledgerStore, auditTrail, notifier)

	// Initialize handlers
	handlers := &routes.Handlers{
		Receipt: handler.NewReceiptHandler(ledgerService),
		Payment: handler.NewPaymentHandler(paymentService),
		Ledger:  handler.NewLedgerHandler(ledgerService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		Cfg: cfg,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting %s server on port %s...", cfg.App.Name, port)
	log.Printf("Environment: %s", cfg.App.Env)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
