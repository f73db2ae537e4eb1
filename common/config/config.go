package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Pool      PoolConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
	Features  FeatureFlags
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// PoolConfig holds the execution pool sizing for async/thread/process nodes
type PoolConfig struct {
	ThreadSize     int
	ProcessSize    int
	APITimeout     time.Duration
}

// StorageConfig holds queue/cache/pubsub/snapshot settings
type StorageConfig struct {
	Backend      string // "memory" or "redis"
	CachePrefix  string
	SnapshotTTL  time.Duration
	RedisAddr    string
	RedisPassword string
	RedisDB      int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// FeatureFlags for MVP toggles
type FeatureFlags struct {
	EnableConditionCache bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Pool: PoolConfig{
			ThreadSize:  getEnvInt("FLOWENGINE_THREAD_POOL_SIZE", 10),
			ProcessSize: getEnvInt("FLOWENGINE_PROCESS_POOL_SIZE", 4),
			APITimeout:  getEnvDuration("FLOWENGINE_API_TIMEOUT_SECONDS", 300*time.Second),
		},
		Storage: StorageConfig{
			Backend:       getEnv("FLOWENGINE_STORAGE_BACKEND", "memory"),
			CachePrefix:   getEnv("FLOWENGINE_CACHE_PREFIX", "flowengine:"),
			SnapshotTTL:   getEnvDuration("FLOWENGINE_SNAPSHOT_TTL_SECONDS", 3600*time.Second),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
		Features: FeatureFlags{
			EnableConditionCache: getEnvBool("FLOWENGINE_ENABLE_CONDITION_CACHE", true),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Pool.ThreadSize < 1 {
		return fmt.Errorf("thread pool size must be >= 1")
	}
	if c.Pool.ProcessSize < 1 {
		return fmt.Errorf("process pool size must be >= 1")
	}

	switch c.Storage.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration reads key as a number of seconds (matching the
// FLOWENGINE_*_SECONDS naming convention) rather than a Go duration string.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
