package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/lyzr/flowengine/common/redis"
)

// RedisQueue is a Queue backed by Redis lists: Push issues LPUSH and Pop
// issues BRPOP, giving FIFO ordering without routing through
// common/redis.Client, since list operations are specific to this queue
// and have no other caller worth generalizing for.
type RedisQueue struct {
	client *redisclient.Client
	raw    *redis.Client
	prefix string
}

// NewRedisQueue returns a RedisQueue that namespaces every list key under
// prefix.
func NewRedisQueue(client *redisclient.Client, raw *redis.Client, prefix string) *RedisQueue {
	return &RedisQueue{client: client, raw: raw, prefix: prefix}
}

func (q *RedisQueue) key(name string) string {
	return q.prefix + "queue:" + name
}

// Push issues LPUSH so the oldest pending item is always nearest the tail
// BRPOP reads from.
func (q *RedisQueue) Push(ctx context.Context, name string, value interface{}) error {
	encoded, err := encodeQueueValue(value)
	if err != nil {
		return err
	}
	return q.raw.LPush(ctx, q.key(name), encoded).Err()
}

// Pop issues BRPOP with the given timeout. timeout == 0 is a non-blocking
// RPOP; timeout < 0 blocks until ctx is cancelled (Redis treats a zero
// BRPOP timeout as "block forever", which is what is issued in that case).
func (q *RedisQueue) Pop(ctx context.Context, name string, timeout time.Duration) (interface{}, bool, error) {
	key := q.key(name)

	if timeout == 0 {
		raw, err := q.raw.RPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		value, err := decodeQueueValue(raw)
		return value, true, err
	}

	blockFor := timeout
	if timeout < 0 {
		blockFor = 0
	}
	result, err := q.raw.BRPop(ctx, blockFor, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// BRPop returns [key, value].
	value, err := decodeQueueValue(result[1])
	return value, true, err
}

// Length reports LLEN for name's list.
func (q *RedisQueue) Length(ctx context.Context, name string) (int64, error) {
	return q.raw.LLen(ctx, q.key(name)).Result()
}

func encodeQueueValue(value interface{}) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeQueueValue(raw string) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, err
	}
	return value, nil
}

// RedisCache is a Cache backed by the shared Redis client wrapper's
// SET/GET, namespaced under prefix.
type RedisCache struct {
	client *redisclient.Client
	prefix string
}

// NewRedisCache returns a RedisCache namespacing every key under prefix.
func NewRedisCache(client *redisclient.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Set stores value as JSON with ttl. ttl <= 0 means no expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	encoded, err := encodeQueueValue(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return c.client.Set(ctx, c.key(key), encoded, 0)
	}
	return c.client.SetWithExpiry(ctx, c.key(key), encoded, ttl)
}

// Get fetches and JSON-decodes key's value.
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key))
	if err != nil {
		// the wrapper turns a missing key into an error; treat that case
		// as a clean miss rather than propagating it.
		return nil, false, nil
	}
	value, err := decodeQueueValue(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Delete removes key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Delete(ctx, c.key(key))
}

// Exists reports whether key is present.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

// RedisPubSub is a PubSub backed by native Redis PUBLISH/SUBSCRIBE.
type RedisPubSub struct {
	raw    *redis.Client
	prefix string
}

// NewRedisPubSub returns a RedisPubSub namespacing every channel under
// prefix.
func NewRedisPubSub(raw *redis.Client, prefix string) *RedisPubSub {
	return &RedisPubSub{raw: raw, prefix: prefix}
}

func (p *RedisPubSub) name(channel string) string {
	return p.prefix + channel
}

// Publish issues PUBLISH with a JSON-encoded message.
func (p *RedisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	encoded, err := encodeQueueValue(message)
	if err != nil {
		return err
	}
	return p.raw.Publish(ctx, p.name(channel), encoded).Err()
}

// Subscribe blocks for the next message on channel or until ctx is
// cancelled.
func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (interface{}, error) {
	sub := p.raw.Subscribe(ctx, p.name(channel))
	defer sub.Close()

	select {
	case msg, ok := <-sub.Channel():
		if !ok {
			return nil, errors.New("pubsub channel closed")
		}
		return decodeQueueValue(msg.Payload)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
