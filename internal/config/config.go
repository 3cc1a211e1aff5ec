// Package config loads kittyd configuration from YAML, a .env file and the
// process environment, in that order of precedence (environment wins).
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/kitty_ledger/internal/kitties"
	"github.com/R3E-Network/kitty_ledger/internal/randomness"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Chain modes.
const (
	ChainLocal = "local"
	ChainNeo   = "neo"
)

// Config is the full kittyd configuration.
type Config struct {
	Ledger     LedgerConfig     `yaml:"ledger"`
	Storage    StorageConfig    `yaml:"storage"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Chain      ChainConfig      `yaml:"chain"`
	Randomness RandomnessConfig `yaml:"randomness"`
	Genesis    kitties.Genesis  `yaml:"genesis"`
}

type LedgerConfig struct {
	MaxOwned           uint32 `yaml:"max_owned" env:"KITTY_MAX_OWNED"`
	ExistentialDeposit uint64 `yaml:"existential_deposit" env:"KITTY_EXISTENTIAL_DEPOSIT"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver" env:"KITTY_STORAGE_DRIVER"`
	DSN         string `yaml:"dsn" env:"KITTY_DATABASE_URL"`
	RedisAddr   string `yaml:"redis_addr" env:"KITTY_REDIS_ADDR"`
	RedisPrefix string `yaml:"redis_prefix" env:"KITTY_REDIS_PREFIX"`
}

type HTTPConfig struct {
	Addr      string  `yaml:"addr" env:"KITTY_HTTP_ADDR"`
	RateLimit float64 `yaml:"rate_limit" env:"KITTY_RATE_LIMIT"`
	Burst     int     `yaml:"burst" env:"KITTY_RATE_BURST"`
	// CORSOrigins is ";"-separated in the environment.
	CORSOrigins []string `yaml:"cors_origins" env:"KITTY_CORS_ORIGINS"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type ChainConfig struct {
	Mode          string `yaml:"mode" env:"KITTY_CHAIN_MODE"`
	RPCURL        string `yaml:"rpc_url" env:"NEO_RPC_URL"`
	BlockInterval string `yaml:"block_interval" env:"KITTY_BLOCK_INTERVAL"`
}

type RandomnessConfig struct {
	// Seed is hex. Empty means a fresh seed per process.
	Seed string `yaml:"seed" env:"KITTY_RANDOMNESS_SEED"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			MaxOwned:           kitties.DefaultMaxOwned,
			ExistentialDeposit: 1,
		},
		Storage: StorageConfig{Driver: DriverMemory},
		HTTP: HTTPConfig{
			Addr:      ":8080",
			RateLimit: 20,
			Burst:     40,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Chain: ChainConfig{
			Mode:          ChainLocal,
			BlockInterval: "@every 6s",
		},
	}
}

// Load reads path (optional), then .env, then the environment, and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations kittyd cannot start with.
func (c *Config) Validate() error {
	if c.Ledger.MaxOwned == 0 {
		return fmt.Errorf("ledger.max_owned must be positive")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.HTTP.RateLimit < 0 || c.HTTP.Burst < 0 {
		return fmt.Errorf("http.rate_limit and http.burst must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch c.Chain.Mode {
	case ChainLocal:
	case ChainNeo:
		if strings.TrimSpace(c.Chain.RPCURL) == "" {
			return fmt.Errorf("chain.rpc_url is required in neo mode")
		}
	default:
		return fmt.Errorf("unknown chain mode %q", c.Chain.Mode)
	}
	if _, err := cron.ParseStandard(c.Chain.BlockInterval); err != nil {
		return fmt.Errorf("chain.block_interval: %w", err)
	}

	if _, err := c.SeedBytes(); err != nil {
		return err
	}
	return nil
}

// SeedBytes decodes the randomness seed. It returns nil when none is set.
func (c *Config) SeedBytes() ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimSpace(c.Randomness.Seed), "0x")
	if s == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("randomness.seed: %w", err)
	}
	if len(seed) != randomness.SeedSize {
		return nil, fmt.Errorf("randomness.seed must be %d bytes, got %d", randomness.SeedSize, len(seed))
	}
	return seed, nil
}

// KittiesConfig returns the ledger module configuration.
func (c *Config) KittiesConfig() kitties.Config {
	return kitties.Config{
		MaxOwned:           c.Ledger.MaxOwned,
		ExistentialDeposit: c.Ledger.ExistentialDeposit,
	}
}
