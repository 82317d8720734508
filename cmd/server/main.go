package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getdoa/getdoa/internal"
	"github.com/getdoa/getdoa/internal/billing"
	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/handler"
	"github.com/getdoa/getdoa/internal/metrics"
	"github.com/getdoa/getdoa/internal/middleware"
	"github.com/getdoa/getdoa/internal/mosque"
	"github.com/getdoa/getdoa/internal/referral"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/getdoa/getdoa/internal/service"
	"github.com/getdoa/getdoa/internal/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	store := repository.NewStore(db)

	// Initialize object storage
	objects, localFiles, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	policy := domain.ListBonusPolicy{
		BaseLists:         cfg.BaseListLimit,
		ListsPerReferral:  cfg.ListsPerReferral,
		MaxReferralBonus:  cfg.MaxReferralBonus,
		SubscriptionBonus: cfg.SubscriptionListBonus,
	}
	limiter := domain.NewImageLimiter(cfg.ImageDailyLimit)

	userService := service.NewUserService(store)
	quotaService := service.NewQuotaService(store, policy, limiter, logger)
	listService := service.NewListService(store, policy, logger)
	referralService := service.NewReferralService(store, referral.NewGenerator(cfg.ReferralRequireStrongRandom), service.ReferralServiceConfig{
		CodeTTL: cfg.ReferralCodeTTL,
		Policy:  policy,
	}, logger)
	shareImageService := service.NewShareImageService(store, objects, service.NewShareCardRenderer(), limiter, logger)

	prices := billing.PriceConfig{
		MonthlyPriceID:  cfg.StripeMonthlyPriceID,
		YearlyPriceID:   cfg.StripeYearlyPriceID,
		ListPackPriceID: cfg.StripeListPackPriceID,
	}
	var billingService billing.Service
	if cfg.BillingEnabled() {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, prices)
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled: STRIPE_SECRET_KEY not set")
	}
	eventProcessor := billing.NewEventProcessor(store, prices, cfg.ListPackSize, logger)

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := !cfg.IsDevelopment()
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	referralLimit := middleware.NewRateLimitMiddleware(
		middleware.NewRateLimiter(cfg.ReferralRateLimit, cfg.ReferralRateLimitWindow, time.Now),
		logger,
	)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	handler.NewHealthHandler(db, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", middleware.BasicAuth("metrics", cfg.MetricsUsername, cfg.MetricsPassword)(promhttp.Handler()))
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("/metrics is unprotected: METRICS_USERNAME and METRICS_PASSWORD not set")
	}

	if localFiles != "" {
		mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(localFiles))))
	}

	handler.NewLimitsHandler(quotaService, logger).RegisterRoutes(mux, authMw.RequireUser)
	handler.NewListHandler(listService, logger).RegisterRoutes(mux, authMw.RequireUser)
	handler.NewReferralHandler(referralService, logger).RegisterRoutes(mux, authMw.RequireUser, referralLimit.Limit)
	handler.NewShareImageHandler(shareImageService, logger).RegisterRoutes(mux, authMw.RequireUser)
	handler.NewBillingHandler(billingService, userService, cfg.BaseURL, logger).RegisterRoutes(mux, authMw.RequireUser)
	handler.NewWebhookHandler(billingService, eventProcessor, logger).RegisterRoutes(mux)

	if cfg.MosqueAPIURL != "" {
		mosques := mosque.NewClient(mosque.Config{
			BaseURL:       cfg.MosqueAPIURL,
			CacheTTL:      cfg.MosqueCacheTTL,
			CacheCapacity: cfg.MosqueCacheCapacity,
			Timeout:       cfg.MosqueTimeout,
		}, nil, logger)
		handler.NewMosqueHandler(mosques, logger).RegisterRoutes(mux)
	} else {
		logger.Warn("mosque directory disabled: MOSQUE_API_URL not set")
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// Outermost first. WithUser wraps logging so request logs carry user_id.
	app := middleware.Stack(
		securityMw.Handler,
		metrics.Middleware,
		authMw.WithUser,
		loggingMw.Handler,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the configured object store. For the local provider it
// also returns the directory to serve under /files/.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, string, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		r2, err := storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		return r2, "", nil
	default:
		local, err := storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		return local, local.Root(), nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
