// Package container is the composition root: it builds every dependency,
// wires the use cases and owns the shutdown order.
package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	httpadapter "github.com/agentpay/walletd/internal/adapters/http"
	"github.com/agentpay/walletd/internal/application/ports"
	"github.com/agentpay/walletd/internal/application/usecases/admin"
	"github.com/agentpay/walletd/internal/application/usecases/deposit"
	"github.com/agentpay/walletd/internal/application/usecases/hold"
	"github.com/agentpay/walletd/internal/application/usecases/intent"
	"github.com/agentpay/walletd/internal/application/usecases/ledger"
	"github.com/agentpay/walletd/internal/application/usecases/refund"
	"github.com/agentpay/walletd/internal/application/usecases/transfer"
	"github.com/agentpay/walletd/internal/application/usecases/wallet"
	"github.com/agentpay/walletd/internal/config"
	"github.com/agentpay/walletd/internal/infrastructure/events"
	"github.com/agentpay/walletd/internal/infrastructure/persistence/postgres"
	"github.com/agentpay/walletd/internal/pkg/logger"
	"github.com/agentpay/walletd/internal/pkg/telemetry"
	"github.com/agentpay/walletd/internal/ratelimit"
)

// Container holds the initialized application graph.
type Container struct {
	config *config.Config
	logger *slog.Logger

	pool          *pgxpool.Pool
	natsPublisher *events.NATSPublisher
	redisClient   *redis.Client
	traceShutdown func(context.Context) error

	wallets    ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	holds      ports.HoldRepository
	captures   ports.CaptureRepository
	refunds    ports.RefundRepository
	intents    ports.PaymentIntentRepository
	keys       ports.APIKeyRepository
	identities ports.ExternalIdentityRepository
	audits     ports.AuditRepository

	uow       ports.UnitOfWork
	publisher ports.EventPublisher
	limiter   ratelimit.Limiter

	engine   *ledger.Engine
	resolver *ledger.Resolver
	sweeper  *hold.Sweeper

	server *httpadapter.Server
}

func New(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Initialize builds the graph in dependency order.
func (c *Container) Initialize(ctx context.Context) error {
	c.logger = logger.New(c.config.Log.Level, c.config.Log.Format)
	slog.SetDefault(c.logger)

	if c.config.Tracing.Enabled {
		shutdown, err := telemetry.Setup(ctx, c.config.App.Name, c.config.App.Version, c.config.Tracing.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		c.traceShutdown = shutdown
	}

	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		Host:            c.config.Database.Host,
		Port:            c.config.Database.Port,
		Database:        c.config.Database.Database,
		User:            c.config.Database.User,
		Password:        c.config.Database.Password,
		SSLMode:         c.config.Database.SSLMode,
		MaxConns:        c.config.Database.MaxConnections,
		MinConns:        c.config.Database.MinConnections,
		MaxConnLifetime: c.config.Database.MaxConnLifetime,
		MaxConnIdleTime: c.config.Database.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.pool = pool
	c.logger.Info("database connected", "host", c.config.Database.Host, "database", c.config.Database.Database)

	c.initRepositories()
	c.initEventPublisher()
	c.initRateLimiter()
	c.initHTTPServer()

	c.sweeper = hold.NewSweeper(c.uow, c.holds, c.wallets, c.engine, c.publisher, c.logger, c.config.Holds.SweepInterval)

	c.logger.Info("container initialized")
	return nil
}

func (c *Container) initRepositories() {
	c.wallets = postgres.NewWalletRepository(c.pool)
	c.ledgerRepo = postgres.NewLedgerRepository(c.pool)
	c.holds = postgres.NewHoldRepository(c.pool)
	c.captures = postgres.NewCaptureRepository(c.pool)
	c.refunds = postgres.NewRefundRepository(c.pool)
	c.intents = postgres.NewPaymentIntentRepository(c.pool)
	c.keys = postgres.NewAPIKeyRepository(c.pool)
	c.identities = postgres.NewExternalIdentityRepository(c.pool)
	c.audits = postgres.NewAuditRepository(c.pool)
	c.uow = postgres.NewUnitOfWork(c.pool)

	c.engine = ledger.NewEngine(c.wallets, c.ledgerRepo)
	c.resolver = ledger.NewResolver(c.wallets, c.identities)
}

func (c *Container) initEventPublisher() {
	if c.config.NATS.URL == "" {
		c.publisher = events.NewNoopPublisher()
		c.logger.Info("event publishing disabled, no nats url configured")
		return
	}
	publisher, err := events.NewNATSPublisher(c.config.NATS.URL, c.logger)
	if err != nil {
		c.logger.Warn("nats unavailable, events disabled", "error", err)
		c.publisher = events.NewNoopPublisher()
		return
	}
	c.natsPublisher = publisher
	c.publisher = publisher
	c.logger.Info("nats connected", "url", c.config.NATS.URL)
}

func (c *Container) initRateLimiter() {
	rpm := c.config.RateLimit.RequestsPerMinute
	if c.config.Redis.Addr == "" {
		c.limiter = ratelimit.NewMemoryLimiter(rpm)
		return
	}
	c.redisClient = redis.NewClient(&redis.Options{
		Addr:     c.config.Redis.Addr,
		Password: c.config.Redis.Password,
		DB:       c.config.Redis.DB,
	})
	c.limiter = ratelimit.NewRedisLimiter(c.redisClient, rpm)
	c.logger.Info("rate limiting backed by redis", "addr", c.config.Redis.Addr)
}

func (c *Container) initHTTPServer() {
	keyDefaults := admin.KeyDefaults{
		PerTxMax: mustDecimal(c.config.Limits.DefaultPerTxMax),
		DailyMax: mustDecimal(c.config.Limits.DefaultDailyMax),
	}

	useCases := httpadapter.UseCases{
		GetWallet:        wallet.NewGetWalletUseCase(c.wallets),
		GetBalance:       wallet.NewGetBalanceUseCase(c.uow, c.wallets, c.engine),
		ListTransactions: wallet.NewListTransactionsUseCase(c.wallets, c.ledgerRepo, c.engine),
		Resolve:          wallet.NewResolveUseCase(c.resolver),

		CreateTransfer: transfer.NewCreateTransferUseCase(c.uow, c.wallets, c.engine, c.resolver, c.publisher, c.logger),
		CreateHold:     hold.NewCreateHoldUseCase(c.uow, c.wallets, c.holds, c.engine, c.publisher, c.logger),
		CaptureHold:    hold.NewCaptureHoldUseCase(c.uow, c.holds, c.captures, c.wallets, c.engine, c.resolver, c.publisher, c.logger),
		ReleaseHold:    hold.NewReleaseHoldUseCase(c.uow, c.holds, c.wallets, c.engine, c.publisher, c.logger),
		CreateIntent:   intent.NewCreateIntentUseCase(c.uow, c.wallets, c.intents),
		PayIntent:      intent.NewPayIntentUseCase(c.uow, c.wallets, c.intents, c.engine, c.publisher, c.logger),
		CancelIntent:   intent.NewCancelIntentUseCase(c.uow, c.intents),
		CreateRefund:   refund.NewCreateRefundUseCase(c.uow, c.captures, c.refunds, c.holds, c.wallets, c.engine, c.publisher, c.logger),

		CreateWallet: admin.NewCreateWalletUseCase(c.uow, c.wallets, c.identities, c.engine, c.publisher, c.logger),
		CreateAPIKey: admin.NewCreateAPIKeyUseCase(c.uow, c.wallets, c.keys, keyDefaults, c.logger),
		RevokeAPIKey: admin.NewRevokeAPIKeyUseCase(c.uow, c.keys, c.publisher, c.logger),
		WalletStatus: admin.NewSetWalletStatusUseCase(c.uow, c.wallets, c.publisher, c.logger),
		Deposit:      deposit.NewDepositUseCase(c.uow, c.wallets, c.engine, c.publisher, c.logger),
	}

	router := httpadapter.NewRouter(httpadapter.RouterConfig{
		Logger:         c.logger,
		Pool:           c.pool,
		Keys:           c.keys,
		Audits:         c.audits,
		Limiter:        c.limiter,
		Version:        c.config.App.Version,
		Environment:    c.config.App.Environment,
		AllowedOrigins: c.config.CORS.AllowedOrigins,
		EnableTracing:  c.config.Tracing.Enabled,
	}, useCases)

	c.server = httpadapter.NewServer(httpadapter.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            c.config.Server.Port,
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
	}, router, c.logger)
}

// Server returns the HTTP server.
func (c *Container) Server() *httpadapter.Server { return c.server }

// Sweeper returns the expired-hold sweeper.
func (c *Container) Sweeper() *hold.Sweeper { return c.sweeper }

// Logger returns the process logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Shutdown releases resources in reverse initialization order.
func (c *Container) Shutdown(ctx context.Context) {
	if c.natsPublisher != nil {
		c.natsPublisher.Close()
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.logger.Warn("redis close failed", "error", err)
		}
	}
	if c.traceShutdown != nil {
		if err := c.traceShutdown(ctx); err != nil {
			c.logger.Warn("trace shutdown failed", "error", err)
		}
	}
	if c.pool != nil {
		c.pool.Close()
	}
	c.logger.Info("container shut down")
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid decimal in config: %q", s))
	}
	return d
}
