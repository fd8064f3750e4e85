// Package http wires the handlers and middleware into a gin engine and
// manages the server lifecycle.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/agentpay/walletd/internal/adapters/http/handlers"
	"github.com/agentpay/walletd/internal/adapters/http/middleware"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/ratelimit"
)

// RouterConfig carries everything the router needs beyond the use cases.
type RouterConfig struct {
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	Keys           ports.APIKeyRepository
	Audits         ports.AuditRepository
	Limiter        ratelimit.Limiter
	Version        string
	Environment    string
	AllowedOrigins []string
	EnableTracing  bool
}

// UseCases groups the handler dependencies by surface.
type UseCases struct {
	GetWallet        handlers.GetWalletUseCase
	GetBalance       handlers.GetBalanceUseCase
	ListTransactions handlers.ListTransactionsUseCase
	Resolve          handlers.ResolveUseCase

	CreateTransfer handlers.CreateTransferUseCase
	CreateHold     handlers.CreateHoldUseCase
	CaptureHold    handlers.CaptureHoldUseCase
	ReleaseHold    handlers.ReleaseHoldUseCase
	CreateIntent   handlers.CreateIntentUseCase
	PayIntent      handlers.PayIntentUseCase
	CancelIntent   handlers.CancelIntentUseCase
	CreateRefund   handlers.CreateRefundUseCase

	CreateWallet handlers.CreateWalletUseCase
	CreateAPIKey handlers.CreateAPIKeyUseCase
	RevokeAPIKey handlers.RevokeAPIKeyUseCase
	WalletStatus handlers.SetWalletStatusUseCase
	Deposit      handlers.DepositUseCase
}

// NewRouter assembles the gin engine: global middleware, the public /v1
// surface, the /admin surface and the operational endpoints.
func NewRouter(cfg RouterConfig, uc UseCases) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(middleware.RequestID())
	if cfg.EnableTracing {
		router.Use(otelgin.Middleware("walletd"))
	}
	router.Use(middleware.Logging(cfg.Logger, "/health", "/live", "/ready", "/metrics"))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	health := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := func(group *gin.RouterGroup) {
		group.Use(middleware.Auth(cfg.Keys, cfg.Logger))
		group.Use(middleware.RateLimit(cfg.Limiter, cfg.Logger))
		group.Use(middleware.Audit(cfg.Audits, cfg.Logger))
	}

	v1 := router.Group("/v1")
	authed(v1)
	{
		wallet := handlers.NewWalletHandler(uc.GetWallet, uc.GetBalance, uc.ListTransactions, uc.Resolve)
		wallet.RegisterRoutes(v1, middleware.RequireScope("wallet:read"))

		handlers.NewTransferHandler(uc.CreateTransfer).RegisterRoutes(v1, middleware.RequireScope)
		handlers.NewHoldHandler(uc.CreateHold, uc.CaptureHold, uc.ReleaseHold).RegisterRoutes(v1, middleware.RequireScope)
		handlers.NewIntentHandler(uc.CreateIntent, uc.PayIntent, uc.CancelIntent).RegisterRoutes(v1, middleware.RequireScope)
		handlers.NewRefundHandler(uc.CreateRefund).RegisterRoutes(v1, middleware.RequireScope)
	}

	admin := router.Group("/admin")
	authed(admin)
	{
		handlers.NewAdminHandler(uc.CreateWallet, uc.CreateAPIKey, uc.RevokeAPIKey, uc.WalletStatus, uc.Deposit).
			RegisterRoutes(admin, middleware.RequireScope)
	}

	return router
}
