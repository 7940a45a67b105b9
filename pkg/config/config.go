// Package config loads the environment-variable configuration shared by
// every SubVT service process (block processor, validator list
// materializer, notification generator, subscription servers).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for a SubVT service.
type Config struct {
	Substrate SubstrateConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	RPC       RPCConfig
	Common    CommonConfig
	Notifier  NotificationGeneratorConfig
	OneKV     OneKVConfig
}

// OneKVConfig addresses the thousand-validators programme endpoint
// whose per-validator enrollment metadata is merged into snapshots. An
// empty base URL disables the enrichment.
type OneKVConfig struct {
	CandidatesBaseURL string
	RefreshMinutes    int
}

// SubstrateConfig describes the chain node this process ingests from.
type SubstrateConfig struct {
	Chain                    string
	NetworkID                int64
	RPCURL                   string
	ConnectionTimeoutSeconds int
	RequestTimeoutSeconds    int
}

// RedisConfig addresses the key/value store with pub/sub.
type RedisConfig struct {
	URL string
}

// PostgresConfig addresses the relational event store. The
// application and network schemas are separate databases, each with
// its own URL.
type PostgresConfig struct {
	NetworkURL     string
	ApplicationURL string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxLife    time.Duration
}

// RPCConfig addresses the subscription servers.
type RPCConfig struct {
	Host                  string
	LiveNetworkStatusPort int
	ValidatorDetailsPort  int
}

// CommonConfig holds cross-cutting values shared by every service.
type CommonConfig struct {
	RecoveryRetrySeconds uint64
}

// NotificationGeneratorConfig holds settings specific to the
// notification generator.
type NotificationGeneratorConfig struct {
	UnclaimedPayoutCheckDelayHours int
}

// Load reads configuration from environment variables. Every variable
// has a safe development default except the RPC URL and the Postgres
// URLs, which default to empty: Validate() rejects an empty RPC URL or
// Postgres network URL, and an empty Postgres application URL means
// the network database is used for both. REDIS_URL defaults to a
// local Redis.
func Load() (*Config, error) {
	cfg := &Config{
		Substrate: SubstrateConfig{
			Chain:                    getEnv("SUBSTRATE_CHAIN", "kusama"),
			NetworkID:                getEnvInt64("SUBSTRATE_NETWORK_ID", 2),
			RPCURL:                   getEnv("SUBSTRATE_RPC_URL", ""),
			ConnectionTimeoutSeconds: getEnvInt("SUBSTRATE_CONNECTION_TIMEOUT_SECONDS", 10),
			RequestTimeoutSeconds:    getEnvInt("SUBSTRATE_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
		},
		Postgres: PostgresConfig{
			NetworkURL:     getEnv("POSTGRES_NETWORK_URL", ""),
			ApplicationURL: getEnv("POSTGRES_APPLICATION_URL", ""),
			MaxOpenConns:   getEnvInt("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:   getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLife:    getEnvDuration("POSTGRES_CONN_MAX_LIFETIME", time.Hour),
		},
		RPC: RPCConfig{
			Host:                  getEnv("RPC_HOST", "127.0.0.1"),
			LiveNetworkStatusPort: getEnvInt("RPC_LIVE_NETWORK_STATUS_PORT", 7900),
			ValidatorDetailsPort:  getEnvInt("RPC_VALIDATOR_DETAILS_PORT", 7901),
		},
		Common: CommonConfig{
			RecoveryRetrySeconds: getEnvUint64("COMMON_RECOVERY_RETRY_SECONDS", 10),
		},
		Notifier: NotificationGeneratorConfig{
			UnclaimedPayoutCheckDelayHours: getEnvInt("NOTIFICATION_GENERATOR_UNCLAIMED_PAYOUT_CHECK_DELAY_HOURS", 4),
		},
		OneKV: OneKVConfig{
			CandidatesBaseURL: getEnv("ONEKV_CANDIDATES_BASE_URL", ""),
			RefreshMinutes:    getEnvInt("ONEKV_REFRESH_MINUTES", 30),
		},
	}
	return cfg, nil
}

// Validate checks that the external-system coordinates required to run
// any of the SubVT services are present.
func (c *Config) Validate() error {
	var errs []string
	if c.Substrate.RPCURL == "" {
		errs = append(errs, "SUBSTRATE_RPC_URL is required but not set")
	}
	if c.Redis.URL == "" {
		errs = append(errs, "REDIS_URL is required but not set")
	}
	if c.Postgres.NetworkURL == "" {
		errs = append(errs, "POSTGRES_NETWORK_URL is required but not set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RedisKeyPrefix returns the "subvt:<chain>" prefix used by every derived-state key
// and channel name.
func (c *Config) RedisKeyPrefix() string {
	return "subvt:" + c.Substrate.Chain
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
