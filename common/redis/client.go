// Package redis wraps go-redis with the handful of operations the
// storage package actually issues against a shared Redis instance:
// plain key/value SET/GET/DEL, and the SET+XADD pipeline a snapshot
// writer uses to publish live execution state alongside a durable
// history stream.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logger is the subset of structured logging a Client needs; satisfied
// by *common/logger.Logger without that package importing this one.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Client wraps redis.Client with the engine's storage vocabulary
// (cache entries, execution-state pipelines) instead of exposing the
// raw driver to callers.
type Client struct {
	redis  *redis.Client
	logger Logger
}

// NewClient wraps redisClient, logging every operation through logger.
func NewClient(redisClient *redis.Client, logger Logger) *Client {
	return &Client{
		redis:  redisClient,
		logger: logger,
	}
}

// Set stores value with ttl (0 meaning no expiry).
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("set key %s: %w", key, err)
	}
	c.logger.Debug("redis SET", "key", key)
	return nil
}

// SetWithExpiry stores value with a required expiry, used for cache
// entries and execution-state snapshots that must not outlive ttl.
func (c *Client) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("set key %s: %w", key, err)
	}
	c.logger.Debug("redis SET", "key", key, "ttl", ttl)
	return nil
}

// Get retrieves key's value, returning an error for a missing key so
// callers distinguish "not found" from other failures without a second
// Exists round trip.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		c.logger.Error("redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("get key %s: %w", key, err)
	}
	c.logger.Debug("redis GET", "key", key)
	return val, nil
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Error("redis DEL failed", "key", key, "error", err)
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	c.logger.Debug("redis DEL", "key", key)
	return nil
}

// Pipeline batches the SET + XADD pair a snapshot write issues so both
// land in a single network round trip.
type Pipeline struct {
	pipe   redis.Pipeliner
	client *Client
}

// NewPipeline starts a pipeline against c's connection.
func (c *Client) NewPipeline() *Pipeline {
	return &Pipeline{
		pipe:   c.redis.Pipeline(),
		client: c,
	}
}

// SetWithExpiry queues a SET with ttl.
func (p *Pipeline) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) {
	p.pipe.Set(ctx, key, value, ttl)
}

// AddToStream queues an XADD of values onto stream.
func (p *Pipeline) AddToStream(ctx context.Context, stream string, values map[string]interface{}) {
	p.pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	})
}

// Exec runs every queued command.
func (p *Pipeline) Exec(ctx context.Context) error {
	if _, err := p.pipe.Exec(ctx); err != nil {
		p.client.logger.Error("redis pipeline exec failed", "error", err)
		return fmt.Errorf("execute pipeline: %w", err)
	}
	p.client.logger.Debug("redis pipeline executed")
	return nil
}
