// Package pgcache provides a PostgreSQL-backed [cache.Cache].
//
// Entries live in a single table keyed by cache key with an absolute expiry
// timestamp. Expired rows are invisible to Get and removed by [Cache.Purge],
// which the caller runs periodically (see [Cache.RunPurger]).
package pgcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/glyphcard/internal/cache"
)

const ddlCacheEntries = `
CREATE TABLE IF NOT EXISTS glyphcard_cache (
    key        TEXT         PRIMARY KEY,
    value      BYTEA        NOT NULL,
    expires_at TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_glyphcard_cache_expires_at
    ON glyphcard_cache (expires_at);
`

// Migrate creates the cache table if it does not exist. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlCacheEntries); err != nil {
		return fmt.Errorf("pgcache: migrate: %w", err)
	}
	return nil
}

// Cache is a PostgreSQL-backed cache. All operations are safe for concurrent
// use.
type Cache struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

var _ cache.Cache = (*Cache)(nil)

// New opens a connection pool to dsn, pings it, and runs [Migrate].
// defaultTTL applies when Set is called with ttl == 0; zero selects
// [cache.DefaultTTL].
func New(ctx context.Context, dsn string, defaultTTL time.Duration) (*Cache, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgcache: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgcache: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgcache: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if defaultTTL <= 0 {
		defaultTTL = cache.DefaultTTL
	}
	return &Cache{pool: pool, ttl: defaultTTL}, nil
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT value FROM glyphcard_cache WHERE key = $1 AND expires_at > now()`
	var value []byte
	err := c.pool.QueryRow(ctx, q, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pgcache: get: %w", err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	const q = `
		INSERT INTO glyphcard_cache (key, value, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		ON CONFLICT (key) DO UPDATE
		    SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	if _, err := c.pool.Exec(ctx, q, key, value, ttl.Seconds()); err != nil {
		return fmt.Errorf("pgcache: set: %w", err)
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM glyphcard_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("pgcache: delete: %w", err)
	}
	return nil
}

// Purge deletes every expired row and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM glyphcard_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("pgcache: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunPurger calls [Cache.Purge] every interval until ctx is cancelled.
func (c *Cache) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.Purge(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("pgcache: purge failed", "err", err)
				}
				continue
			}
			if n > 0 {
				slog.Debug("pgcache: purged expired entries", "count", n)
			}
		}
	}
}

// Ping checks connectivity. It backs the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (c *Cache) Close() error {
	c.pool.Close()
	return nil
}
