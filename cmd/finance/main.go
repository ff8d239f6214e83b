package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zegrana/finance-core-go/internal/config"
	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/handler"
	"github.com/zegrana/finance-core-go/internal/infra/auth"
	"github.com/zegrana/finance-core-go/internal/infra/cache"
	"github.com/zegrana/finance-core-go/internal/infra/observability"
	"github.com/zegrana/finance-core-go/internal/infra/postgrest"
	"github.com/zegrana/finance-core-go/internal/infra/resilience"
	"github.com/zegrana/finance-core-go/internal/service"

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
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	if cfg.ProviderURL == "" {
		logger.Fatal("PROVIDER_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finance-core")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:          cfg.MaxRetries,
		InitialBackoff:      cfg.InitialBackoff,
		MaxBackoff:          cfg.MaxBackoff,
		MaxConcurrency:      cfg.MaxConcurrency,
		BreakerMinRequests:  uint32(cfg.BreakerMinRequests),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
	}
	cb := resilience.NewCircuitBreaker("data-provider", resilienceCfg)

	// --- Data provider ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	provider := postgrest.NewClient(httpClient, cfg.ProviderURL, cfg.ProviderAPIKey, cb, resilienceCfg, logger)

	// --- Stores ---
	accountStore := postgrest.NewAccountStore(provider)
	cardStore := postgrest.NewCardStore(provider)
	transactionStore := postgrest.NewTransactionStore(provider)
	loanStore := postgrest.NewLoanStore(provider)
	budgetStore := postgrest.NewBudgetStore(provider)
	categoryStore := postgrest.NewCategoryStore(provider)
	userStore := postgrest.NewUserStore(provider)

	// --- Caches ---
	accountCache := cache.New[*domain.Account](cfg.CacheTTL)
	categoryCache := cache.New[*domain.Category](cfg.CacheTTL)

	// --- Auth collaborators ---
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTAccessTTL)

	// --- Services ---
	warnings := observability.NewZapWarningSink(logger)
	categorySvc := service.NewCategoryService(categoryStore, categoryCache, metrics)
	ledgerSvc := service.NewLedgerService(transactionStore, accountStore, categorySvc, warnings, metrics, logger)
	accountSvc := service.NewAccountService(accountStore, ledgerSvc, accountCache, metrics, logger)
	cardSvc := service.NewCardService(cardStore, accountStore, metrics, logger)
	loanSvc := service.NewLoanService(loanStore, ledgerSvc, metrics, logger)
	budgetSvc := service.NewBudgetService(budgetStore, categorySvc, transactionStore, metrics, logger)
	authSvc := service.NewAuthService(userStore, hasher, issuer, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Accounts:   accountSvc,
		Cards:      cardSvc,
		Ledger:     ledgerSvc,
		Loans:      loanSvc,
		Budgets:    budgetSvc,
		Categories: categorySvc,
		Auth:       authSvc,
	}, issuer, metrics, logger)

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
