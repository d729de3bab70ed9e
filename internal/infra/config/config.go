package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL       string
	HTTPListenAddr    string
	AdminSecret       string // shared secret guarding execute/seed endpoints
	EthRPCURL         string
	EthTestRPCURL     string // testnet endpoint used when a cycle is in test mode
	PayoutPrivateKey  string // hex-encoded key of the pot wallet
	CronSpecPayout    string
	TransferTimeout   time.Duration
	MaxPayoutAttempts int // real execution claims before a cycle is marked FAILED
	LogLevel          string
	Environment       string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.AdminSecret = os.Getenv("ADMIN_SECRET")
	if cfg.AdminSecret == "" {
		return nil, fmt.Errorf("ADMIN_SECRET is not set")
	}

	cfg.EthRPCURL = os.Getenv("ETH_RPC_URL")
	if cfg.EthRPCURL == "" {
		return nil, fmt.Errorf("ETH_RPC_URL is not set")
	}

	// Optional; test-mode cycles fail their transfers when it is absent.
	cfg.EthTestRPCURL = os.Getenv("ETH_TEST_RPC_URL")

	cfg.PayoutPrivateKey = os.Getenv("PAYOUT_PRIVATE_KEY")
	if cfg.PayoutPrivateKey == "" {
		return nil, fmt.Errorf("PAYOUT_PRIVATE_KEY is not set")
	}

	cfg.HTTPListenAddr = os.Getenv("HTTP_LISTEN_ADDR")
	if cfg.HTTPListenAddr == "" {
		cfg.HTTPListenAddr = ":8080"
	}

	cfg.CronSpecPayout = os.Getenv("CRON_SPEC_PAYOUT")
	if cfg.CronSpecPayout == "" {
		cfg.CronSpecPayout = "*/10 * * * *" // Default: every 10 minutes
	}

	transferTimeoutStr := os.Getenv("TRANSFER_TIMEOUT")
	if transferTimeoutStr == "" {
		transferTimeoutStr = "30s"
	}
	transferTimeout, err := time.ParseDuration(transferTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSFER_TIMEOUT: %w", err)
	}
	cfg.TransferTimeout = transferTimeout

	maxAttemptsStr := os.Getenv("MAX_PAYOUT_ATTEMPTS")
	if maxAttemptsStr == "" {
		maxAttemptsStr = "5"
	}
	cfg.MaxPayoutAttempts, err = strconv.Atoi(maxAttemptsStr)
	if err != nil || cfg.MaxPayoutAttempts <= 0 {
		return nil, fmt.Errorf("invalid MAX_PAYOUT_ATTEMPTS: %q", maxAttemptsStr)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}
