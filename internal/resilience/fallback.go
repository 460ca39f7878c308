package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when no entry of a [FallbackGroup] produced a
// result. The joined per-entry errors are wrapped alongside it.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig holds the breaker settings shared by every entry of a
// [FallbackGroup]. Each entry gets its own breaker named after the entry.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type member[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup holds interchangeable providers in preference order. Calls go
// to the first entry whose breaker admits them; failures move on to the next.
//
// Entries are registered during setup; AddFallback must not race with calls.
type FallbackGroup[T any] struct {
	members []member[T]
	cfg     CircuitBreakerConfig
}

// NewFallbackGroup creates a group whose first entry is primary.
func NewFallbackGroup[T any](primary T, name string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg.CircuitBreaker}
	fg.AddFallback(name, primary)
	return fg
}

// AddFallback appends v as the next entry to try.
func (fg *FallbackGroup[T]) AddFallback(name string, v T) {
	bc := fg.cfg
	bc.Name = name
	fg.members = append(fg.members, member[T]{name: name, value: v, breaker: NewCircuitBreaker(bc)})
}

// Names lists the entries in the order they are tried.
func (fg *FallbackGroup[T]) Names() []string {
	out := make([]string, 0, len(fg.members))
	for _, m := range fg.members {
		out = append(out, m.name)
	}
	return out
}

// Len is the number of entries.
func (fg *FallbackGroup[T]) Len() int { return len(fg.members) }

// Primary returns the first entry.
func (fg *FallbackGroup[T]) Primary() T { return fg.members[0].value }

// Snapshots returns each entry's breaker counters keyed by entry name.
func (fg *FallbackGroup[T]) Snapshots() map[string]Snapshot {
	out := make(map[string]Snapshot, len(fg.members))
	for _, m := range fg.members {
		out[m.name] = m.breaker.Snapshot()
	}
	return out
}

// Execute runs fn against the entries in order until one returns nil.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult runs fn against the entries of fg in order and returns
// the first successful result.
//
// Entries with an open breaker are skipped. A [context.Canceled] error from
// fn is returned at once. When every entry fails the error wraps
// [ErrAllFailed] and each entry's error prefixed with its name.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for _, m := range fg.members {
		var out R
		err := m.breaker.Execute(func() error {
			var err error
			out, err = fn(m.value)
			return err
		})
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, context.Canceled):
			return zero, err
		case errors.Is(err, ErrCircuitOpen):
			slog.Debug("fallback: entry skipped", "entry", m.name, "reason", "circuit open")
		default:
			slog.Warn("fallback: entry failed", "entry", m.name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
