// Package redis provides a Redis-backed [cache.Cache] for deployments where
// several glyphcard instances share transliteration and analysis results.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrWong99/glyphcard/internal/cache"
)

// Options contains configuration for the Redis cache.
type Options struct {
	// Addr is host:port or a redis:// URL. A URL may carry password and
	// database, which take precedence over the fields below.
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key. Default: "glyphcard:".
	Prefix string

	// DefaultTTL applies when Set is called with ttl == 0. Redis keys
	// without expiry would grow unbounded, so zero is replaced with
	// [cache.DefaultTTL].
	DefaultTTL time.Duration
}

// Cache is a Redis-backed cache implementation.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ cache.Cache = (*Cache)(nil)

const connectionTimeout = 5 * time.Second

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, opts Options) (*Cache, error) {
	ropts := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if strings.HasPrefix(opts.Addr, "redis://") || strings.HasPrefix(opts.Addr, "rediss://") {
		parsed, err := redis.ParseURL(opts.Addr)
		if err != nil {
			return nil, fmt.Errorf("redis cache: parse url: %w", err)
		}
		ropts = parsed
	}
	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", ropts.Addr, err)
	}

	return newWithClient(client, opts), nil
}

func newWithClient(client *redis.Client, opts Options) *Cache {
	if opts.Prefix == "" {
		opts.Prefix = "glyphcard:"
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = cache.DefaultTTL
	}
	return &Cache{client: client, prefix: opts.Prefix, ttl: opts.DefaultTTL}
}

// Get retrieves an item from the cache.
func (rc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := rc.client.Get(ctx, rc.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis cache: get: %w", err)
	}
	return val, true, nil
}

// Set stores an item with the given TTL, or the default TTL when zero.
func (rc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = rc.ttl
	}
	if err := rc.client.Set(ctx, rc.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set: %w", err)
	}
	return nil
}

// Delete removes an item from the cache.
func (rc *Cache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, rc.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis cache: delete: %w", err)
	}
	return nil
}

// Ping checks connectivity. It backs the readiness check.
func (rc *Cache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (rc *Cache) Close() error {
	return rc.client.Close()
}
