package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBPath   string `envconfig:"AD402_DB_PATH" default:"./data/ad402.sqlite"`
	Port     int    `envconfig:"AD402_PORT" default:"8080"`
	LogLevel string `envconfig:"AD402_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"AD402_LOG_DIR" default:"./logs"`

	// Settlement network used for bids without an explicit network.
	Network string `envconfig:"AD402_NETWORK" default:"polygon"`

	// Wallet that receives advertiser USDC payments.
	PlatformWallet string `envconfig:"AD402_PLATFORM_WALLET"`

	PolygonRPCURL string `envconfig:"AD402_POLYGON_RPC_URL" default:"https://polygon-rpc.com"`
	AmoyRPCURL    string `envconfig:"AD402_AMOY_RPC_URL" default:"https://rpc-amoy.polygon.technology"`

	// Platform cut of each allocated bid, in percent.
	FeePercentage decimal.Decimal `envconfig:"AD402_FEE_PERCENTAGE" default:"5"`

	// Payout floor and optional payout fee, both in USDC.
	MinWithdrawal        decimal.Decimal `envconfig:"AD402_MIN_WITHDRAWAL" default:"10"`
	WithdrawalFeePercent decimal.Decimal `envconfig:"AD402_WITHDRAWAL_FEE_PERCENTAGE" default:"0"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars, so real environment
	// variables take precedence over .env values.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Network != "polygon" && c.Network != "polygon-amoy" {
		return fmt.Errorf("%w: network must be \"polygon\" or \"polygon-amoy\", got %q", ErrInvalidConfig, c.Network)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.FeePercentage.IsNegative() || c.FeePercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: fee percentage must be 0-100, got %s", ErrInvalidConfig, c.FeePercentage)
	}
	if c.MinWithdrawal.IsNegative() {
		return fmt.Errorf("%w: minimum withdrawal must not be negative, got %s", ErrInvalidConfig, c.MinWithdrawal)
	}
	return nil
}

// RPCURL returns the JSON-RPC endpoint for the given network name.
func (c *Config) RPCURL(network string) string {
	if network == "polygon-amoy" {
		return c.AmoyRPCURL
	}
	return c.PolygonRPCURL
}
