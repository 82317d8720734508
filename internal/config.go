package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Public base URL (for checkout return links)
	BaseURL string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage
	LocalStorageURL  string // Base URL for accessing local files

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // Optional custom domain URL

	// Stripe Billing Configuration
	// In development, billing handlers respond 501 if the secret key is empty.
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	StripeMonthlyPriceID  string
	StripeYearlyPriceID   string
	StripeListPackPriceID string
	ListPackSize          int // lists granted per purchased pack

	// List allowance
	BaseListLimit         int
	ListsPerReferral      int
	MaxReferralBonus      int // referrals that still earn lists
	SubscriptionListBonus int

	// Share images
	ImageDailyLimit int

	// Referral codes
	ReferralRequireStrongRandom bool
	ReferralCodeTTL             time.Duration // 0 = never expire

	// Referral redeem/validate rate limit, per client IP
	ReferralRateLimit       int
	ReferralRateLimitWindow time.Duration

	// Mosque donation directory
	MosqueAPIURL        string
	MosqueCacheTTL      time.Duration
	MosqueCacheCapacity int
	MosqueTimeout       time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// BillingEnabled reports whether Stripe is configured.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != ""
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Env:      env,
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL: strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		// Stripe billing (optional)
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeMonthlyPriceID:  getEnv("STRIPE_MONTHLY_PRICE_ID", ""),
		StripeYearlyPriceID:   getEnv("STRIPE_YEARLY_PRICE_ID", ""),
		StripeListPackPriceID: getEnv("STRIPE_LIST_PACK_PRICE_ID", ""),
		ListPackSize:          getEnvInt("LIST_PACK_SIZE", 5),

		BaseListLimit:         getEnvInt("BASE_LIST_LIMIT", 1),
		ListsPerReferral:      getEnvInt("LISTS_PER_REFERRAL", 1),
		MaxReferralBonus:      getEnvInt("MAX_REFERRAL_BONUS", 5),
		SubscriptionListBonus: getEnvInt("SUBSCRIPTION_LIST_BONUS", 10),

		ImageDailyLimit: getEnvInt("IMAGE_DAILY_LIMIT", 1),

		// Strict outside development: a degraded code is refused rather than issued
		ReferralRequireStrongRandom: getEnvBool("REFERRAL_REQUIRE_STRONG_RANDOM", env != "development"),
		ReferralCodeTTL:             getEnvDuration("REFERRAL_CODE_TTL", 0),

		ReferralRateLimit:       getEnvInt("REFERRAL_RATE_LIMIT", 10),
		ReferralRateLimitWindow: getEnvDuration("REFERRAL_RATE_LIMIT_WINDOW", time.Minute),

		MosqueAPIURL:        strings.TrimRight(getEnv("MOSQUE_API_URL", ""), "/"),
		MosqueCacheTTL:      getEnvDuration("MOSQUE_CACHE_TTL", 10*time.Minute),
		MosqueCacheCapacity: getEnvInt("MOSQUE_CACHE_CAPACITY", 500),
		MosqueTimeout:       getEnvDuration("MOSQUE_TIMEOUT", 5*time.Second),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}

	if err := cfg.validateLimits(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateLimits rejects negative quota settings. Zero is allowed and
// disables the corresponding allowance.
func (c *Config) validateLimits() error {
	var errs []error
	for key, v := range map[string]int{
		"LIST_PACK_SIZE":          c.ListPackSize,
		"BASE_LIST_LIMIT":         c.BaseListLimit,
		"LISTS_PER_REFERRAL":      c.ListsPerReferral,
		"MAX_REFERRAL_BONUS":      c.MaxReferralBonus,
		"SUBSCRIPTION_LIST_BONUS": c.SubscriptionListBonus,
		"IMAGE_DAILY_LIMIT":       c.ImageDailyLimit,
		"MOSQUE_CACHE_CAPACITY":   c.MosqueCacheCapacity,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got: %d", key, v))
		}
	}
	if c.ReferralCodeTTL < 0 {
		errs = append(errs, fmt.Errorf("REFERRAL_CODE_TTL must not be negative, got: %s", c.ReferralCodeTTL))
	}
	if c.ReferralRateLimit < 1 {
		errs = append(errs, fmt.Errorf("REFERRAL_RATE_LIMIT must be at least 1, got: %d", c.ReferralRateLimit))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
