// Package resilience keeps broken engines and model backends from stalling
// the pipeline.
//
// [CircuitBreaker] guards one engine: after enough consecutive failures it
// rejects calls outright for a cool-down period, then lets a few trial calls
// through before trusting the engine again. [FallbackGroup] chains several
// providers of one kind behind per-entry breakers; [LLMFallback] and
// [PhonemeFallback] bind it to the model and phoneme interfaces.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while the
// breaker is open or its trial budget is spent.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call until ResetTimeout has passed since the
	// breaker tripped.
	StateOpen

	// StateHalfOpen lets up to HalfOpenMax trial calls through. One failed
	// trial re-opens the breaker; HalfOpenMax successful trials close it.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults applied by [NewCircuitBreaker] to zero config fields.
const (
	DefaultMaxFailures  = 5
	DefaultResetTimeout = 30 * time.Second
	DefaultHalfOpenMax  = 3
)

// CircuitBreakerConfig tunes a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels log lines and state-change callbacks.
	Name string

	// MaxFailures consecutive failures trip a closed breaker.
	MaxFailures int

	// ResetTimeout is the cool-down before the first trial.
	ResetTimeout time.Duration

	// HalfOpenMax is the trial budget and the number of successful trials
	// needed to close again.
	HalfOpenMax int

	// IsFailure decides which errors count against the breaker. Errors it
	// rejects are still returned to the caller; a phoneme engine answering
	// "locale not supported" is healthy, for example. Nil counts every error.
	IsFailure func(error) bool

	// OnStateChange is called after every transition with the breaker's lock
	// held. It must not call back into the breaker.
	OnStateChange func(name string, from, to State)

	// Now replaces time.Now.
	Now func() time.Time
}

// Snapshot is a point-in-time view of a breaker's counters.
type Snapshot struct {
	State State

	// Failures is the current run of consecutive failures.
	Failures int

	// Trips counts how often the breaker has opened.
	Trips int

	// OpenedAt is when the breaker last tripped; zero if it never did.
	OpenedAt time.Time
}

// CircuitBreaker is a three-state breaker guarding one engine.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	trips    int
	openedAt time.Time
	trials   int // admitted in the current half-open period
	trialOK  int // of which succeeded
}

// NewCircuitBreaker returns a closed breaker. Zero config fields take the
// Default* values.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = DefaultHalfOpenMax
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Name returns the configured label.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// Execute calls fn unless the breaker rejects the call, and books the
// outcome. fn's error is returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(trial, err)
	return err
}

// admit decides whether a call may run and whether it is a trial.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if cb.cfg.Now().Sub(cb.openedAt) < cb.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		cb.trials, cb.trialOK = 0, 0
		cb.transition(StateHalfOpen)
	}
	if cb.trials >= cb.cfg.HalfOpenMax {
		return false, ErrCircuitOpen
	}
	cb.trials++
	return true, nil
}

// settle books the outcome of an admitted call. Outcomes that arrive after
// the breaker has moved on to another state are dropped.
func (cb *CircuitBreaker) settle(trial bool, err error) {
	failed := err != nil && (cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err))

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		if cb.state != StateHalfOpen {
			return
		}
		if failed {
			cb.trip()
			return
		}
		cb.trialOK++
		if cb.trialOK >= cb.cfg.HalfOpenMax {
			cb.failures = 0
			cb.transition(StateClosed)
		}
		return
	}

	if cb.state != StateClosed {
		return
	}
	if !failed {
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.failures >= cb.cfg.MaxFailures {
		cb.trip()
	}
}

// trip opens the breaker. Must be called with cb.mu held.
func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.cfg.Now()
	cb.trips++
	cb.transition(StateOpen)
}

// transition moves to next, logging and notifying. Must be called with
// cb.mu held.
func (cb *CircuitBreaker) transition(next State) {
	prev := cb.state
	if prev == next {
		return
	}
	cb.state = next

	level := slog.LevelInfo
	if next == StateOpen {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "circuit breaker state changed",
		"name", cb.cfg.Name,
		"from", prev.String(),
		"to", next.String(),
		"failures", cb.failures,
	)
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, prev, next)
	}
}

// State returns the current state. An open breaker whose cool-down has
// passed reports [StateHalfOpen]; the transition itself happens on the next
// call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Snapshot returns the breaker's counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	st := cb.State()
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{State: st, Failures: cb.failures, Trips: cb.trips, OpenedAt: cb.openedAt}
}

// Reset closes the breaker and clears the failure run. The trip count is
// kept.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures, cb.trials, cb.trialOK = 0, 0, 0
	cb.transition(StateClosed)
}
