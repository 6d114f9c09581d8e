package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-checkout/config"
	httpHandler "crypto-checkout/internal/adapter/http/handler"
	"crypto-checkout/internal/adapter/oracle"
	pgStorage "crypto-checkout/internal/adapter/storage/postgres"
	redisStorage "crypto-checkout/internal/adapter/storage/redis"
	"crypto-checkout/internal/core/ports"
	"crypto-checkout/internal/job"
	"crypto-checkout/internal/service"
	"crypto-checkout/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Crypto Checkout Engine")

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

	// Initialize repositories
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	productRepo := pgStorage.NewProductRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	rateCache := redisStorage.NewRateCache(rdb)
	confirmations := redisStorage.NewConfirmationStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Currency registry and price providers
	registry := service.NewCurrencyRegistry(cfg.Currencies)
	providers := []ports.PriceProvider{
		oracle.NewBinanceProvider(cfg.Oracle.BinanceBaseURL, cfg.Oracle.RequestTimeout, registry.BinancePairs()),
		oracle.NewCoinGeckoProvider(cfg.Oracle.CoinGeckoBaseURL, cfg.Oracle.RequestTimeout, registry.CoinGeckoIDs()),
	}

	// Initialize core services
	priceSvc := service.NewPriceService(rateCache, providers, registry, cfg.Oracle.CacheTTL, log)
	quoteSvc := service.NewQuoter(priceSvc, registry)
	tokenSvc := service.NewJWTTokenService(cfg.Auth.AdminJWTSecret, 24*time.Hour, cfg.Auth.JWTIssuer)
	engine := service.NewOrderEngine(
		ledgerRepo,
		orderRepo,
		productRepo,
		quoteSvc,
		confirmations,
		transactor,
		registry,
		cfg.Engine,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Engine:         engine,
		Quotes:         quoteSvc,
		Orders:         orderRepo,
		Products:       productRepo,
		Marker:         confirmations,
		Currencies:     registry.List(),
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// Background sweeper: lazy expiry safety net plus retention purge
	jobCtx, stopJobs := context.WithCancel(ctx)
	sweeper := job.NewSweeper(engine, cfg.Engine.SweepInterval, cfg.Engine.RetentionInterval, log)
	go sweeper.Run(jobCtx)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
