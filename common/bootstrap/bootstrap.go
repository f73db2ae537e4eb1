package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lyzr/flowengine/common/config"
	"github.com/lyzr/flowengine/common/logger"
	redisclient "github.com/lyzr/flowengine/common/redis"
	"github.com/lyzr/flowengine/pool"
	"github.com/lyzr/flowengine/storage"
)

// Setup initializes all service components: config, logger, storage
// backend and pool executor. This is the entry point every flowengine
// binary calls before building its own node registry and engine.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize pool executor
	components.Executor = pool.New(components.Config.Pool.ThreadSize, components.Config.Pool.ProcessSize)

	// 4. Initialize storage backend (if not skipped)
	if !options.skipStorage {
		sc := components.Config.Storage
		components.Logger.Info("initializing storage", "backend", sc.Backend)

		switch sc.Backend {
		case "redis":
			raw := redis.NewClient(&redis.Options{
				Addr:     sc.RedisAddr,
				Password: sc.RedisPassword,
				DB:       sc.RedisDB,
			})
			if err := raw.Ping(ctx).Err(); err != nil {
				return nil, fmt.Errorf("failed to ping redis: %w", err)
			}
			client := redisclient.NewClient(raw, components.Logger)

			components.Storage = &storage.Store{
				Queue:  storage.NewRedisQueue(client, raw, sc.CachePrefix),
				Cache:  storage.NewRedisCache(client, sc.CachePrefix),
				PubSub: storage.NewRedisPubSub(raw, sc.CachePrefix),
			}
			components.Snapshot = storage.NewRedisSnapshotWriter(client, sc.CachePrefix, sc.SnapshotTTL, "flowengine:state")

			components.addCleanup(func() error {
				components.Logger.Info("closing redis connection")
				return raw.Close()
			})
		case "memory":
			memCache := storage.NewMemoryCache()
			components.Storage = &storage.Store{
				Queue:  storage.NewMemoryQueue(),
				Cache:  memCache,
				PubSub: storage.NewMemoryPubSub(),
			}
			components.Snapshot = storage.NewMemorySnapshotWriter(memCache, sc.CachePrefix, sc.SnapshotTTL)
		default:
			return nil, fmt.Errorf("unknown storage backend: %s", sc.Backend)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing storage")
			return components.Storage.Close()
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"storage", components.Storage != nil,
		"thread_pool", components.Config.Pool.ThreadSize,
		"process_pool", components.Config.Pool.ProcessSize,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
