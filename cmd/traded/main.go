package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradelink/config"
	httpHandler "tradelink/internal/adapter/http/handler"
	pgStorage "tradelink/internal/adapter/storage/postgres"
	redisStorage "tradelink/internal/adapter/storage/redis"
	"tradelink/internal/adapter/venue"
	"tradelink/internal/core/ports"
	"tradelink/internal/service"
	"tradelink/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("traded", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting trade service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Encryption at rest for vault payloads
	cryptoSvc, err := service.NewAESCryptoService(cfg.Vault.AESKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize crypto service")
	}

	// Repositories
	linkRepo := pgStorage.NewLinkRepo(pool)
	vault := pgStorage.NewSecretVault(pool, cryptoSvc, cfg.Vault.Namespace, cfg.Vault.Env)
	auditRepo := pgStorage.NewTradeAuditRepo(pool)

	// Downstream venue
	placer := venue.NewPlacer(cfg.Venue.BaseURL, &http.Client{Timeout: 10 * time.Second}, log)

	// Business services
	tradeSvc := service.NewTradeService(linkRepo, vault, auditRepo, placer, log)

	// Request-signing primitives
	canon := service.NewCanonicalService()
	sigSvc := service.NewHMACSignatureService()
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	router := httpHandler.SetupTradeRouter(httpHandler.TradeRouterDeps{
		TradeSvc:       tradeSvc,
		Canon:          canon,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		Domain:         cfg.Auth.Trade,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	log.Info().Msg("Server exited")
}
