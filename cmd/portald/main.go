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
	"tradelink/internal/adapter/linkclient"
	redisStorage "tradelink/internal/adapter/storage/redis"
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
	log := logger.New("portald", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting portal bridge")

	ctx := context.Background()

	// Redis backs rate limiting only; the portal keeps no other state.
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Platform login verification and the signed client to the link
	// service.
	verifier := service.NewPlatformVerifierService(cfg.Portal.BotToken)
	links := linkclient.New(
		cfg.Portal.LinkBaseURL,
		cfg.Auth.Link,
		service.NewCanonicalService(),
		service.NewHMACSignatureService(),
		&http.Client{Timeout: time.Duration(cfg.Portal.ForwardToSec) * time.Second},
	)

	router := httpHandler.SetupPortalRouter(httpHandler.PortalRouterDeps{
		Verifier:       verifier,
		LinkClient:     links,
		CSRFMinLen:     cfg.Portal.CSRFMinLen,
		RateLimitStore: rateLimitStore,
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
