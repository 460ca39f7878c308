// Package cache provides the explicit, bounded response cache that the
// transliteration service and the batch coordinator are constructed with.
//
// [Cache] is a byte-oriented store with per-entry TTL. [Memory] is a bounded
// LRU kept in process; the redis and pgcache subpackages offer shared
// backends bounded by TTL. [Typed] layers JSON encoding on top of any of
// them, and [Instrument] records hit/miss counters.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrWong99/glyphcard/internal/observe"
)

// Cache is a key/value store with per-entry expiry.
//
// Implementations must be safe for concurrent use. A miss is reported as
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl of zero uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ─── Nop ─────────────────────────────────────────────────────────────────────

// Nop is a [Cache] that stores nothing. Every Get is a miss.
type Nop struct{}

var _ Cache = Nop{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Nop) Delete(context.Context, string) error { return nil }

func (Nop) Close() error { return nil }

// ─── Typed ───────────────────────────────────────────────────────────────────

// Typed stores values of type V as JSON in an underlying [Cache].
type Typed[V any] struct {
	raw Cache
	ttl time.Duration
}

// NewTyped wraps raw. ttl is passed to every Set.
func NewTyped[V any](raw Cache, ttl time.Duration) *Typed[V] {
	if raw == nil {
		raw = Nop{}
	}
	return &Typed[V]{raw: raw, ttl: ttl}
}

// Get decodes the value stored under key. An undecodable entry is deleted
// and reported as a miss together with the decode error.
func (t *Typed[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	data, ok, err := t.raw.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		_ = t.raw.Delete(ctx, key)
		return zero, false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return v, true, nil
}

// Set encodes v and stores it under key.
func (t *Typed[V]) Set(ctx context.Context, key string, v V) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	return t.raw.Set(ctx, key, data, t.ttl)
}

// ─── Instrumented ────────────────────────────────────────────────────────────

type instrumented struct {
	Cache
	name    string
	metrics *observe.Metrics
}

// Instrument wraps c so that every Get is counted on
// [observe.Metrics.CacheLookups] under the given backend name.
func Instrument(c Cache, name string, m *observe.Metrics) Cache {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &instrumented{Cache: c, name: name, metrics: m}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := c.Cache.Get(ctx, key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	c.metrics.RecordCacheLookup(ctx, c.name, result)
	return v, ok, err
}
