package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity and DefaultTTL apply when [NewMemory] receives zero values.
const (
	DefaultCapacity = 4096
	DefaultTTL      = 24 * time.Hour
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process LRU [Cache] with a fixed entry capacity. Entries
// live for the cache TTL; a shorter TTL passed to Set is honoured on read,
// a longer one is capped at the cache TTL.
type Memory struct {
	lru *expirable.LRU[string, memoryEntry]
	ttl time.Duration
	now func() time.Time
}

var _ Cache = (*Memory)(nil)

// MemoryOption configures a [Memory] cache.
type MemoryOption func(*Memory)

// WithClock overrides the time source of per-entry deadlines. Tests use it
// to expire entries without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates a [Memory] cache holding at most capacity entries, each
// living for ttl unless Set is given a shorter one.
func NewMemory(capacity int, ttl time.Duration, opts ...MemoryOption) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		lru: expirable.NewLRU[string, memoryEntry](capacity, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Get implements [Cache].
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set implements [Cache]. Storing into a full cache evicts the least
// recently used entry.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > m.ttl {
		ttl = m.ttl
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.lru.Add(key, memoryEntry{value: v, expires: m.now().Add(ttl)})
	return nil
}

// Delete implements [Cache].
func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// dropped.
func (m *Memory) Len() int { return m.lru.Len() }

// Close implements [Cache]. It drops all entries.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
