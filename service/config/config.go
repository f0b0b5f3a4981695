package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
)

const (
	// DefaultRPCURL is the public devnet endpoint used when SOLANA_RPC_URL is unset.
	DefaultRPCURL = "https://api.devnet.solana.com"

	// DefaultUSDCMint is the USDC mint on devnet.
	DefaultUSDCMint = "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr"

	// DefaultIconURL is the icon advertised in action payloads.
	DefaultIconURL = "https://i.ibb.co/LrwBvL2/blinkpay-logo.png"

	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string
	// SiteURL is the public base URL used in generated links. When empty the
	// origin of the incoming request is used instead.
	SiteURL string

	// Solana configuration
	SolanaRPCURL    string
	SolanaCluster   string
	USDCMintAddress string
	ActionIconURL   string

	// Link store configuration
	StoreBackend string
	DatabaseURL  string
	LinkTTL      time.Duration

	// NATS configuration (optional)
	NATSURL string

	// Temporal configuration (optional, empty host disables confirmation workflows)
	TemporalHost        string
	TemporalNamespace   string
	TemporalTaskQueue   string
	ConfirmationTimeout time.Duration

	// StrictBalanceCheck makes the transaction endpoint refuse payers that
	// cannot cover the requested amount.
	StrictBalanceCheck bool

	// Worker metrics listener
	MetricsAddr string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.SiteURL = os.Getenv("SITE_URL")
	if cfg.SiteURL != "" {
		if err := validateBaseURL(cfg.SiteURL); err != nil {
			errs = append(errs, fmt.Errorf("SITE_URL: %w", err))
		}
	}

	// Solana configuration
	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", DefaultRPCURL)
	cfg.SolanaCluster = getEnvOrDefault("SOLANA_CLUSTER", "devnet")
	if err := validateCluster(cfg.SolanaCluster); err != nil {
		errs = append(errs, fmt.Errorf("SOLANA_CLUSTER: %w", err))
	}

	cfg.USDCMintAddress = getEnvOrDefault("USDC_MINT_ADDRESS", DefaultUSDCMint)
	if _, err := solanago.PublicKeyFromBase58(cfg.USDCMintAddress); err != nil {
		errs = append(errs, fmt.Errorf("USDC_MINT_ADDRESS: invalid public key %q: %w", cfg.USDCMintAddress, err))
	}
	cfg.ActionIconURL = getEnvOrDefault("ACTION_ICON_URL", DefaultIconURL)

	// Link store configuration
	cfg.StoreBackend = getEnvOrDefault("STORE_BACKEND", StoreBackendPostgres)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", StoreBackendPostgres))
		}
	case StoreBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: must be %q or %q, got %q", StoreBackendPostgres, StoreBackendMemory, cfg.StoreBackend))
	}

	linkTTL, err := parseDuration("LINK_TTL", "0s")
	if err != nil {
		errs = append(errs, err)
	} else if linkTTL < 0 {
		errs = append(errs, fmt.Errorf("LINK_TTL cannot be negative"))
	} else {
		cfg.LinkTTL = linkTTL
	}

	// NATS configuration
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Temporal configuration
	cfg.TemporalHost = os.Getenv("TEMPORAL_HOST")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "blinkpay-confirmations")

	confirmationTimeout, err := parseDuration("CONFIRMATION_TIMEOUT", "2m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmationTimeout = confirmationTimeout
	}

	strict, err := parseBool("STRICT_BALANCE_CHECK", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.StrictBalanceCheck = strict
	}

	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if err := validateCluster(c.SolanaCluster); err != nil {
		errs = append(errs, fmt.Errorf("SolanaCluster: %w", err))
	}

	if _, err := solanago.PublicKeyFromBase58(c.USDCMintAddress); err != nil {
		errs = append(errs, fmt.Errorf("USDCMintAddress is invalid"))
	}

	if c.SiteURL != "" {
		if err := validateBaseURL(c.SiteURL); err != nil {
			errs = append(errs, fmt.Errorf("SiteURL: %w", err))
		}
	}

	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DatabaseURL is required for the postgres store"))
		}
	case StoreBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("StoreBackend %q is not supported", c.StoreBackend))
	}

	if c.LinkTTL < 0 {
		errs = append(errs, fmt.Errorf("LinkTTL cannot be negative"))
	}

	if c.TemporalHost != "" {
		if c.TemporalNamespace == "" {
			errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
		}
		if c.TemporalTaskQueue == "" {
			errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
		}
		if c.ConfirmationTimeout < time.Second {
			errs = append(errs, fmt.Errorf("ConfirmationTimeout must be at least 1 second"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// RPCEndpoints splits SolanaRPCURL on commas. Several endpoints may be given
// to spread load across providers.
func (c *Config) RPCEndpoints() []string {
	var endpoints []string
	for _, part := range strings.Split(c.SolanaRPCURL, ",") {
		if part = strings.TrimSpace(part); part != "" {
			endpoints = append(endpoints, part)
		}
	}
	return endpoints
}

// ConfirmationsEnabled reports whether Temporal-backed confirmation tracking is configured.
func (c *Config) ConfirmationsEnabled() bool {
	return c.TemporalHost != ""
}

// BlockchainID returns the CAIP-2 identifier for the configured cluster.
func (c *Config) BlockchainID() string {
	switch c.SolanaCluster {
	case "mainnet":
		return "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
	case "testnet":
		return "solana:4uhcVJyU9pJkvQyS88uRDiswHXSCkY3z"
	default:
		return "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1"
	}
}

func validateCluster(cluster string) error {
	switch cluster {
	case "devnet", "mainnet", "testnet":
		return nil
	}
	return fmt.Errorf("must be one of devnet, mainnet, testnet; got %q", cluster)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
