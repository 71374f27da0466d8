package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tyne-finance/ledger-go/internal/config"
	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/handler"
	"github.com/tyne-finance/ledger-go/internal/infra/cache"
	"github.com/tyne-finance/ledger-go/internal/infra/client"
	"github.com/tyne-finance/ledger-go/internal/infra/memory"
	"github.com/tyne-finance/ledger-go/internal/infra/observability"
	"github.com/tyne-finance/ledger-go/internal/infra/postgres"
	"github.com/tyne-finance/ledger-go/internal/infra/resilience"
	"github.com/tyne-finance/ledger-go/internal/port"
	"github.com/tyne-finance/ledger-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Bool("remote_items", cfg.ItemsAPIURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "ledger-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.Store
	if cfg.DatabaseURL != "" {
		logger.Info("using PostgreSQL store")
		pg, err := postgres.NewStore(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.Migrate(context.Background()); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = memory.NewStore()
	}

	// --- Item resolver ---
	var resolver port.ItemResolver
	if cfg.ItemsAPIURL != "" {
		logger.Info("resolving items via remote items service",
			zap.String("items_api_url", cfg.ItemsAPIURL),
		)
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("items")
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		itemCache := cache.New[*domain.Item](cfg.CacheTTL)
		resolver = client.NewItemsClient(httpClient, cfg.ItemsAPIURL, cb, resilienceCfg, itemCache)
	} else {
		logger.Info("resolving items against the local store")
		resolver = service.NewStoreResolver(store)
	}

	// --- Services ---
	svcs := &handler.Services{
		Ledger:    service.NewLedgerService(store, resolver, metrics, logger),
		Accounts:  service.NewAccountService(store, logger),
		Items:     service.NewItemService(store, logger),
		Summary:   service.NewSummaryService(store, logger),
		Auth:      service.NewAuthService(store, logger, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL),
		Reference: store,
	}

	// --- Router ---
	router := handler.NewRouter(svcs, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
