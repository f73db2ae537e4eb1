package bootstrap

import (
	"github.com/lyzr/flowengine/common/config"
	"github.com/lyzr/flowengine/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipStorage  bool
	customLogger *logger.Logger
	customConfig *config.Config
}

// WithoutStorage skips queue/cache/pubsub initialization, leaving
// Components.Storage nil. Useful for tests that only need the pool
// executor.
func WithoutStorage() Option {
	return func(o *options) {
		o.skipStorage = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

func defaultOptions() *options {
	return &options{}
}
