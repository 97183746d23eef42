package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
// Provider API keys and endpoints live here — never in package-level state —
// so each adapter receives its configuration explicitly at construction.
type Config struct {
	Port     int    `envconfig:"LASTWISH_PORT" default:"8080"`
	LogLevel string `envconfig:"LASTWISH_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"LASTWISH_LOG_DIR" default:"./logs"`
	Network  string `envconfig:"LASTWISH_NETWORK" default:"mainnet"`
	DBPath   string `envconfig:"LASTWISH_DB_PATH" default:"./data/lastwish.sqlite"`

	EtherscanAPIKey string `envconfig:"LASTWISH_ETHERSCAN_API_KEY"`
	EthRPCURL       string `envconfig:"LASTWISH_ETH_RPC_URL"`
	SolanaRPCURL    string `envconfig:"LASTWISH_SOLANA_RPC_URL"`

	PriceCacheTTL   time.Duration `envconfig:"LASTWISH_PRICE_CACHE_TTL" default:"5m"`
	ChainCacheTTL   time.Duration `envconfig:"LASTWISH_CHAIN_CACHE_TTL" default:"15m"`
	ProviderTimeout time.Duration `envconfig:"LASTWISH_PROVIDER_TIMEOUT" default:"10s"`

	// MaxInFlight bounds concurrent sub-calls per external provider
	// (token balance queries, price lookups).
	MaxInFlight int `envconfig:"LASTWISH_MAX_IN_FLIGHT" default:"4"`
}

// Load reads configuration from .env file (if present) then from environment
// variables. Environment variables override .env values.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		// godotenv does not override already-set env vars, so real
		// environment variables take precedence over .env values.
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
	if c.Network != "mainnet" && c.Network != "testnet" {
		return fmt.Errorf("%w: network must be \"mainnet\" or \"testnet\", got %q", ErrInvalidConfig, c.Network)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.PriceCacheTTL <= 0 || c.ChainCacheTTL <= 0 {
		return fmt.Errorf("%w: cache TTLs must be positive", ErrInvalidConfig)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("%w: provider timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("%w: max in-flight must be at least 1, got %d", ErrInvalidConfig, c.MaxInFlight)
	}
	return nil
}

// EtherscanURL returns the Etherscan-compatible API endpoint for the
// configured network.
func (c *Config) EtherscanURL() string {
	if c.Network == "testnet" {
		return EtherscanTestnetURL
	}
	return EtherscanAPIURL
}

// EthRPC returns the Ethereum JSON-RPC endpoint, honoring the override.
func (c *Config) EthRPC() string {
	if c.EthRPCURL != "" {
		return c.EthRPCURL
	}
	if c.Network == "testnet" {
		return EthRPCTestnetURL
	}
	return EthRPCMainnetURL
}

// SolanaRPC returns the Solana JSON-RPC endpoint, honoring the override.
func (c *Config) SolanaRPC() string {
	if c.SolanaRPCURL != "" {
		return c.SolanaRPCURL
	}
	if c.Network == "testnet" {
		return SolanaRPCTestnetURL
	}
	return SolanaRPCMainnetURL
}

// BlockstreamURL returns the Esplora endpoint for the configured network.
func (c *Config) BlockstreamURL() string {
	if c.Network == "testnet" {
		return BlockstreamTestnetURL
	}
	return BlockstreamMainnetURL
}
