package handler

import (
	"crypto-checkout/internal/adapter/http/middleware"
	redisStore "crypto-checkout/internal/adapter/storage/redis"
	"crypto-checkout/internal/core/domain"
	"crypto-checkout/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Engine         ports.OrderEngine
	Quotes         ports.QuoteService
	Orders         ports.OrderRepository
	Products       ports.ProductRepository
	Marker         ports.ConfirmationMarker
	Currencies     []domain.Currency
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	orderHandler := NewOrderHandler(deps.Engine, deps.Quotes, deps.Orders)
	catalogHandler := NewCatalogHandler(deps.Products, deps.Currencies)
	userHandler := NewUserHandler(deps.Engine)

	// --- Deposits ---
	deposits := v1.Group("/deposits")
	{
		deposits.POST("", rl("deposits"), orderHandler.CreateDeposit)
		deposits.GET("/preview", rl("catalog"), orderHandler.PreviewDeposit)
	}

	// --- Orders ---
	orders := v1.Group("/orders")
	{
		orders.POST("", rl("orders"), orderHandler.CreateOrder)
		orders.GET("/:id", rl("orders"), orderHandler.GetOrder)
		orders.POST("/:id/confirm", rl("confirm"), orderHandler.ConfirmOrder)
	}

	// --- Catalog ---
	products := v1.Group("/products")
	{
		products.GET("", rl("catalog"), catalogHandler.ListProducts)
		products.GET("/:id", rl("catalog"), catalogHandler.GetProduct)
	}
	v1.GET("/currencies", rl("catalog"), catalogHandler.ListCurrencies)

	// --- Users ---
	users := v1.Group("/users")
	{
		users.GET("/:user_id", rl("profile"), userHandler.GetLedger)
		users.GET("/:user_id/orders", rl("profile"), userHandler.ListOrders)
		users.POST("/:user_id/purchases", rl("profile"), userHandler.PurchaseWithBalance)
	}

	// --- Admin (JWT-authenticated) ---
	adminHandler := NewAdminHandler(deps.Engine, deps.Marker)
	adminAuth := middleware.AdminJWT(deps.TokenSvc, deps.Logger)
	admin := v1.Group("/admin", adminAuth)
	{
		admin.POST("/payments/received", rl("admin"), adminHandler.MarkReceived)
		admin.POST("/orders/:id/cancel", rl("admin"), adminHandler.CancelOrder)
		admin.POST("/sweep", rl("admin"), adminHandler.Sweep)
		admin.POST("/purge", rl("admin"), adminHandler.Purge)
	}

	return r
}
