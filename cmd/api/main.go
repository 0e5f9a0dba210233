package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-pos-bridge/config"
	httpHandler "wallet-pos-bridge/internal/adapter/http/handler"
	"wallet-pos-bridge/internal/bootstrap"
	"wallet-pos-bridge/pkg/logger"
)

const serviceName = "wallet-pos-bridge"

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("WPB_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Bool("ssot", cfg.POS.SSoT).
		Msg("Starting Wallet POS Bridge")

	ctx := context.Background()

	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer app.Close()

	applied, err := bootstrap.Migrate(ctx, app.Pool, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	log.Info().Int("applied", applied).Msg("Schema up to date")

	// Background sync of native transactions to the POS
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		app.SyncWorker.Run(workerCtx)
	}()

	// Load OpenAPI document for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI document loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI document not found, Swagger UI will be unavailable")
	}

	deps := httpHandler.RouterDeps{
		ServiceName:      serviceName,
		AuthSvc:          app.Auth,
		POSSvc:           app.POS,
		WebhookProcessor: app.Webhooks,
		CheckoutSvc:      app.Checkout,
		QRSvc:            app.QR,
		WalletSvc:        app.Wallet,
		OrderRepo:        app.Orders,
		Credentials:      app.Credentials,
		Config:           app.ConfigLoader,
		TokenSvc:         app.Tokens,
		RateLimitStore:   app.RateLimitStore,
		POSPerMinute:     cfg.RateLimit.POSPerMinute,
		WebhookPerMinute: cfg.RateLimit.WebhookPerMinute,
		MaxBodyBytes:     cfg.Server.MaxBodyKB << 10,
		HealthCheckers:   app.HealthCheckers,
		AuditSvc:         app.Audit,
		Logger:           log,
	}
	if app.Metrics != nil {
		deps.MetricsHandler = app.Metrics.Handler()
	}
	router := httpHandler.SetupRouter(deps)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopWorker()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Sync worker did not stop in time")
	}

	log.Info().Msg("Server exited")
}
