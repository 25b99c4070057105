package handler

import (
	"ledgerbook/internal/adapter/http/middleware"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/apperror"
	"ledgerbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CustomerSvc    ports.CustomerService
	LedgerSvc      ports.LedgerService
	WalletSvc      ports.WalletService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	AuditSvc       ports.AuditService   // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	customerHandler := NewCustomerHandler(deps.CustomerSvc)
	customers := v1.Group("/customers", jwtAuth)
	{
		customers.GET("", rl("ledger_read"), customerHandler.List)
		customers.POST("", rl("ledger_write"), customerHandler.Create)
		customers.POST("/backfill", rl("backfill"), customerHandler.Backfill)
		customers.PUT("/:id", rl("ledger_write"), customerHandler.Update)
		customers.DELETE("/:id", rl("ledger_write"), customerHandler.Delete)
	}

	txHandler := NewTransactionHandler(deps.LedgerSvc)
	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.GET("", rl("ledger_read"), txHandler.List)
		transactions.POST("", rl("ledger_write"), txHandler.Create)
		transactions.GET("/summary", rl("ledger_read"), txHandler.Summary)
		transactions.GET("/monthly-summary", rl("ledger_read"), txHandler.MonthlySummary)
		transactions.GET("/customer/:customerName", rl("ledger_read"), txHandler.CustomerView)
		transactions.PUT("/:id", rl("ledger_write"), txHandler.Update)
		transactions.DELETE("/:id", rl("ledger_write"), txHandler.Delete)
	}

	paymentHandler := NewPaymentHandler(deps.WalletSvc)
	payments := v1.Group("/payments", jwtAuth)
	{
		payments.GET("/users", rl("ledger_read"), paymentHandler.Users)
		payments.POST("/send", rl("wallet_transfer"), paymentHandler.Send)
		payments.GET("/history", rl("ledger_read"), paymentHandler.History)
		payments.POST("/add-money", rl("wallet_topup"), paymentHandler.AddMoney)
		payments.GET("/balance", rl("ledger_read"), paymentHandler.Balance)
	}

	return r
}

// currentUser reads the authenticated user, answering 401 when absent.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the :id parameter. A malformed id cannot name an owned
// record, so it answers 404.
func pathID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrNotFound(entity))
		return uuid.Nil, false
	}
	return id, true
}
