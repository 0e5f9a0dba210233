package handler

import (
	"net/http"

	"wallet-pos-bridge/internal/adapter/http/middleware"
	redisStore "wallet-pos-bridge/internal/adapter/storage/redis"
	"wallet-pos-bridge/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ServiceName      string
	AuthSvc          ports.AuthService
	POSSvc           ports.POSService
	WebhookProcessor ports.WebhookProcessor
	CheckoutSvc      ports.CheckoutService
	QRSvc            ports.QRService
	WalletSvc        ports.WalletViewer
	OrderRepo        ports.OrderRepository
	Credentials      ports.CredentialManager
	Config           ports.ConfigProvider
	TokenSvc         ports.TokenService
	RateLimitStore   *redisStore.RateLimitStore // nil = rate limiting disabled
	POSPerMinute     int
	WebhookPerMinute int
	MaxBodyBytes     int64
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = audit logging disabled
	MetricsHandler   http.Handler       // nil = /metrics not exposed
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules(deps.POSPerMinute, deps.WebhookPerMinute)

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

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/login", rl(middleware.GroupAuthLogin), authHandler.Login)

	// --- POS routes (API key, or an admin bearer token) ---
	posHandler := NewPOSHandler(deps.POSSvc, deps.ServiceName)
	webhookHandler := NewWebhookHandler(deps.WebhookProcessor)
	apiKey := middleware.APIKeyAuth(deps.Credentials, deps.TokenSvc, deps.Logger)

	pos := v1.Group("/pos")
	{
		pos.GET("/balance", rl(middleware.GroupPOS), apiKey, posHandler.Balance)
		pos.POST("/credit", rl(middleware.GroupPOS), apiKey, posHandler.Credit)
		pos.POST("/debit", rl(middleware.GroupPOS), apiKey, posHandler.Debit)
		pos.GET("/transactions", rl(middleware.GroupPOS), apiKey, posHandler.Transactions)
		pos.GET("/customer", rl(middleware.GroupPOS), apiKey, posHandler.Customer)
		pos.POST("/qr-pay", rl(middleware.GroupPOS), apiKey, posHandler.QRPay)
		pos.GET("/status", rl(middleware.GroupPOS), apiKey, posHandler.Status)

		// Signed with the shared secret instead of the API key.
		pos.POST("/webhook",
			rl(middleware.GroupWebhook),
			middleware.WebhookSignature(deps.Config, deps.Credentials, deps.Logger),
			webhookHandler.Receive,
		)
	}

	// --- Storefront routes (JWT, customer or admin) ---
	storefrontAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger, ports.RoleStorefront, ports.RoleAdmin)
	orderHandler := NewOrderHandler(deps.CheckoutSvc, deps.OrderRepo)
	customerHandler := NewCustomerHandler(deps.QRSvc, deps.WalletSvc)

	storefront := v1.Group("", storefrontAuth)
	{
		storefront.GET("/checkout/availability", rl(middleware.GroupStorefront), orderHandler.Availability)
		storefront.POST("/orders/:id/pay", rl(middleware.GroupStorefront), orderHandler.Pay)
		storefront.GET("/customers/:id/qr", rl(middleware.GroupStorefront), customerHandler.PaymentQR)
		storefront.GET("/customers/:id/wallet", rl(middleware.GroupStorefront), customerHandler.Wallet)
	}

	// --- Admin routes (JWT, admin only) ---
	adminAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger, ports.RoleAdmin)
	adminHandler := NewAdminHandler(deps.Credentials)

	orders := v1.Group("/orders", adminAuth)
	{
		orders.POST("/:id/complete", rl(middleware.GroupAdmin), orderHandler.Complete)
		orders.POST("/:id/refund", rl(middleware.GroupAdmin), orderHandler.Refund)
		orders.POST("/:id/renew", rl(middleware.GroupAdmin), orderHandler.Renew)
	}

	admin := v1.Group("/admin", adminAuth)
	{
		admin.POST("/credentials", rl(middleware.GroupAdmin), adminHandler.GenerateCredentials)
		admin.DELETE("/credentials", rl(middleware.GroupAdmin), adminHandler.RevokeCredentials)
	}

	return r
}
