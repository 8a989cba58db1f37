// Package config holds the relay's process configuration. It is built
// once at startup and passed by value; nothing reads ambient process
// state at request time.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultListenAddr  = ":3000"
	DefaultMetricsAddr = ":9090"
	// DefaultMint is devnet USDC.
	DefaultMint     = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	DefaultDecimals = 6

	DefaultConfirmTimeout = 90 * time.Second
)

// Config is the relay's immutable process configuration.
type Config struct {
	// APIKey is the shared-secret credential required on gated routes.
	APIKey string
	// SecretKey is the signing identity, as a JSON byte array or base58.
	// Held only long enough to build the keypair; never logged.
	SecretKey string

	// RPCEndpoint is the Solana JSON-RPC HTTP endpoint.
	RPCEndpoint string
	// WSEndpoint optionally enables WebSocket confirmation waits.
	WSEndpoint string

	// Mint is the token mint the relay transfers.
	Mint string
	// Decimals is the mint's base-unit scale (10^Decimals per display unit).
	Decimals int

	ListenAddr  string
	MetricsAddr string

	// JournalDSN optionally enables the Postgres transfer journal.
	JournalDSN string

	// ConfirmTimeout bounds the confirmation wait, separately from the
	// RPC connectivity timeout.
	ConfirmTimeout time.Duration
}

// FromEnv builds a Config from environment variables, loading .env first.
func FromEnv() Config {
	LoadDotEnv()
	return Config{
		APIKey:         os.Getenv("API_KEY"),
		SecretKey:      os.Getenv("SOLANA_SECRET_KEY"),
		RPCEndpoint:    os.Getenv("SOLANA_RPC_ENDPOINT"),
		WSEndpoint:     os.Getenv("SOLANA_WS_ENDPOINT"),
		Mint:           envOr("USDC_MINT", DefaultMint),
		Decimals:       DefaultDecimals,
		ListenAddr:     envOr("LISTEN_ADDR", DefaultListenAddr),
		MetricsAddr:    envOr("METRICS_ADDR", DefaultMetricsAddr),
		JournalDSN:     os.Getenv("JOURNAL_DSN"),
		ConfirmTimeout: DefaultConfirmTimeout,
	}
}

// Validate reports missing required configuration. Failing here is
// startup-fatal: the relay must not accept traffic half-configured.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SOLANA_SECRET_KEY is required")
	}
	if c.RPCEndpoint == "" {
		return fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
	}
	if c.Mint == "" {
		return fmt.Errorf("mint is required")
	}
	if c.Decimals < 0 {
		return fmt.Errorf("decimals must be non-negative")
	}
	return nil
}

// envOr returns the env value or a default when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadDotEnv loads environment variables from a .env file if it exists.
// Existing variables are not overridden.
func LoadDotEnv() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
