package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "flowdeck"

// RedisBackend stores keys in Redis under a prefix.
type RedisBackend struct {
	client   *goredis.Client
	prefix   string
	ttl      time.Duration
	addr     string
	db       int
	password string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		if strings.TrimSpace(prefix) != "" {
			b.prefix = strings.TrimSpace(prefix)
		}
	}
}

// WithRedisDB selects the Redis database.
func WithRedisDB(db int) RedisOption {
	return func(b *RedisBackend) {
		b.db = db
	}
}

// WithRedisPassword sets the Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(b *RedisBackend) {
		b.password = password
	}
}

// WithRedisTTL expires stored keys after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(b *RedisBackend) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithRedisClient uses an existing client instead of dialing addr.
func WithRedisClient(client *goredis.Client) RedisOption {
	return func(b *RedisBackend) {
		if client != nil {
			b.client = client
		}
	}
}

// NewRedisBackend connects to Redis at addr and verifies the connection.
func NewRedisBackend(ctx context.Context, addr string, opts ...RedisOption) (*RedisBackend, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis addr is required")
	}
	b := &RedisBackend{prefix: defaultRedisPrefix, addr: addr}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = goredis.NewClient(&goredis.Options{
			Addr:     b.addr,
			Password: b.password,
			DB:       b.db,
		})
	}
	if err := b.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return b, nil
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + ":" + key
}

// Get reads the value stored under key.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, applying the configured TTL.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.key(key), value, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
