package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/posledger-api/internal/config"
	"github.com/sangkips/posledger-api/internal/presentation/http/handler"
	"github.com/sangkips/posledger-api/internal/presentation/http/middleware"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Receipt *handler.ReceiptHandler
	Payment *handler.PaymentHandler
	Ledger  *handler.LedgerHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Cfg *config.Config
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Per-client rate limiter
		rateLimiter := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration),
			BurstSize:         deps.Cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		v1.Use(rateLimiter.Middleware())

		registerReceiptRoutes(v1, h)
		registerCustomerRoutes(v1, h)
	}

	return router
}

func registerReceiptRoutes(v1 *gin.RouterGroup, h *Handlers) {
	receipts := v1.Group("/receipts")
	{
		receipts.GET("", h.Receipt.List)
		receipts.POST("", h.Receipt.Create)
		receipts.GET("/:id", h.Receipt.Get)
		receipts.GET("/:id/transactions", h.Receipt.ListTransactions)
		receipts.POST("/:id/payments", h.Payment.Record)
	}
}

func registerCustomerRoutes(v1 *gin.RouterGroup, h *Handlers) {
	customers := v1.Group("/customers")
	{
		customers.GET("/:key/ledger", h.Ledger.Get)
		customers.GET("/:key/ledger/export", h.Ledger.Export)
		customers.GET("/:key/ledger/stream", h.Ledger.Stream)
	}
}
