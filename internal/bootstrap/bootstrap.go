// Package bootstrap wires storage, clients and services from configuration.
// It is shared by the HTTP server and walletctl.
package bootstrap

import (
	"context"
	"fmt"

	"wallet-pos-bridge/config"
	"wallet-pos-bridge/internal/adapter/metrics"
	"wallet-pos-bridge/internal/adapter/posclient"
	pgStorage "wallet-pos-bridge/internal/adapter/storage/postgres"
	redisStorage "wallet-pos-bridge/internal/adapter/storage/redis"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/internal/service"
	"wallet-pos-bridge/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Components holds everything built from one Config.
type Components struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Redis   *goredis.Client
	Metrics *metrics.Metrics // nil when server.metrics is off

	Recorder     ports.MetricsRecorder
	Provider     *posclient.Provider
	Tokens       ports.TokenService
	Signer       ports.SignatureService
	Credentials  ports.CredentialManager
	ConfigLoader ports.ConfigProvider
	Bus          ports.EventBus
	Engine       *service.ReconciliationService
	SyncWorker   ports.SyncWorker
	QR           ports.QRService
	Wallet       ports.WalletViewer
	POS          ports.POSService
	Webhooks     ports.WebhookProcessor
	Checkout     ports.CheckoutService
	Auth         ports.AuthService
	Audit        ports.AuditService
	Orders       ports.OrderRepository

	RateLimitStore *redisStorage.RateLimitStore
	HealthCheckers []ports.HealthChecker
}

// Connect opens PostgreSQL and Redis. The caller owns Close.
func Connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, *goredis.Client, error) {
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return pool, rdb, nil
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pool pgStorage.Pool, log zerolog.Logger) (int, error) {
	return pgStorage.Migrate(ctx, pool, migrations.FS, log)
}

// Build connects to the stores and assembles every service. When SSoT is
// off at startup the sync listener is subscribed to transaction.recorded.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Components, error) {
	pool, rdb, err := Connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	c, err := Assemble(cfg, pool, rdb, log)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// Assemble builds the services on already opened stores.
func Assemble(cfg *config.Config, pool *pgxpool.Pool, rdb *goredis.Client, log zerolog.Logger) (*Components, error) {
	c := &Components{Config: cfg, Pool: pool, Redis: rdb}

	c.Recorder = metrics.Noop{}
	if cfg.Server.Metrics {
		c.Metrics = metrics.New()
		c.Recorder = c.Metrics
	}

	// Repositories
	customerRepo := pgStorage.NewCustomerRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	cacheRepo := pgStorage.NewBalanceCacheRepo(pool)
	credentialRepo := pgStorage.NewCredentialRepo(pool)
	syncJobRepo := pgStorage.NewSyncJobRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	storefrontRepo := pgStorage.NewStorefrontRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	c.Orders = orderRepo

	// Core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		return nil, fmt.Errorf("init encryption: %w", err)
	}
	c.Signer = service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	c.Tokens = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	c.Provider = posclient.NewProvider(nil, c.Recorder, log)
	c.Credentials = service.NewCredentialService(credentialRepo, encSvc, c.Signer, c.Provider, cfg.FallbackCredentials(), log)
	c.ConfigLoader = service.NewConfigLoader(cfg.Integration(), c.Credentials)
	c.Bus = service.NewEventBus(log)

	// Reconciliation
	c.Engine = service.NewReconciliationService(
		ledgerRepo,
		customerRepo,
		cacheRepo,
		redisStorage.NewReferenceLock(rdb),
		syncJobRepo,
		c.Provider,
		c.ConfigLoader,
		c.Bus,
		log,
	)
	if !cfg.POS.SSoT {
		c.Bus.Subscribe(ports.EventTransactionRecorded, c.Engine.SyncListener)
	}
	c.SyncWorker = service.NewSyncWorker(syncJobRepo, c.Engine, c.Recorder, service.SyncWorkerConfig{
		PollInterval:   cfg.Sync.PollInterval,
		BatchSize:      cfg.Sync.BatchSize,
		RetryIntervals: cfg.Sync.RetryIntervals,
	}, log)

	// Business services
	c.QR = service.NewQRService(customerRepo, c.Engine, c.ConfigLoader, c.Signer, log)
	c.Wallet = c.Engine
	c.POS = service.NewPOSService(customerRepo, ledgerRepo, c.Engine, c.QR, c.Provider, c.ConfigLoader, log)
	c.Webhooks = service.NewWebhookService(c.ConfigLoader, c.Engine, customerRepo, hashSvc, c.Bus, c.Recorder, log)
	c.Checkout = service.NewCheckoutService(orderRepo, storefrontRepo, customerRepo, c.Engine, c.ConfigLoader, c.Bus, log)
	c.Auth = service.NewAuthService(customerRepo, hashSvc, c.Tokens)
	c.Audit = service.NewAuditService(auditRepo, log)

	c.RateLimitStore = redisStorage.NewRateLimitStore(rdb)
	c.HealthCheckers = []ports.HealthChecker{
		pgStorage.NewHealthCheck(pool),
		redisStorage.NewHealthCheck(rdb),
	}
	return c, nil
}

// Close releases the store connections.
func (c *Components) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
