// Package resilience provides a circuit breaker for outbound provider calls.
//
// [Breaker] is a classic three-state breaker (closed, open, half-open). The
// recognition cascade keeps one breaker per provider so a backend that is
// down gets skipped immediately instead of costing every message its full
// call timeout. All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Execute] when the breaker is open and the
// reset timeout has not yet elapsed.
var ErrOpen = errors.New("resilience: circuit open")

// State represents the current operating mode of a [Breaker].
type State int

const (
	// StateClosed is the normal operating state. All calls are forwarded.
	StateClosed State = iota

	// StateOpen means the breaker tripped on consecutive failures. Calls
	// are rejected with [ErrOpen] until the reset timeout elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the reset timeout. A
	// limited number of calls go through; if they succeed the breaker
	// closes, otherwise it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// Settings holds tuning knobs for a [Breaker].
type Settings struct {
	// Name is a human-readable label used in log messages, typically the
	// provider name.
	Name string

	// MaxFailures is the number of consecutive failures in the closed
	// state before the breaker opens. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before transitioning
	// to half-open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of probe calls allowed in the half-open
	// state before the breaker decides whether to close or re-open.
	// Default: 3.
	HalfOpenMax int
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	halfOpenCalls   int
	halfOpenFails   int
}

// New creates a [Breaker] with the supplied settings. Zero-value fields are
// replaced with the documented defaults.
func New(cfg Settings) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrOpen] without calling fn. In the half-open state a limited number of
// probe calls are permitted.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) >= b.resetTimeout {
			b.state = StateHalfOpen
			b.halfOpenCalls = 0
			b.halfOpenFails = 0
			slog.Info("circuit breaker transitioning to half-open", "name", b.name)
		} else {
			b.mu.Unlock()
			return ErrOpen
		}

	case StateHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMax {
			b.mu.Unlock()
			return ErrOpen
		}
	}

	inHalfOpen := b.state == StateHalfOpen
	if inHalfOpen {
		b.halfOpenCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	// A cancelled caller says nothing about the backend's health; hand the
	// probe slot back and leave the counters untouched.
	if errors.Is(err, context.Canceled) {
		if inHalfOpen {
			b.halfOpenCalls--
		}
		return err
	}

	if err != nil {
		b.recordFailure(inHalfOpen)
	} else {
		b.recordSuccess(inHalfOpen)
	}
	return err
}

// recordFailure handles failure accounting. Must be called with b.mu held.
func (b *Breaker) recordFailure(inHalfOpen bool) {
	b.lastFailure = time.Now()

	if inHalfOpen {
		b.halfOpenFails++
		// Any failure in half-open immediately re-opens.
		b.state = StateOpen
		b.consecutiveFail = b.maxFailures
		slog.Warn("circuit breaker re-opened from half-open", "name", b.name)
		return
	}

	b.consecutiveFail++
	if b.consecutiveFail >= b.maxFailures {
		b.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", b.name,
			"consecutive_failures", b.consecutiveFail)
	}
}

// recordSuccess handles success accounting. Must be called with b.mu held.
func (b *Breaker) recordSuccess(inHalfOpen bool) {
	if inHalfOpen {
		successes := b.halfOpenCalls - b.halfOpenFails
		if successes >= b.halfOpenMax {
			b.state = StateClosed
			b.consecutiveFail = 0
			b.halfOpenCalls = 0
			b.halfOpenFails = 0
			slog.Info("circuit breaker closed after successful probes", "name", b.name)
		}
		return
	}

	b.consecutiveFail = 0
}

// State returns the current [State] of the breaker. If the breaker is open
// and the reset timeout has elapsed, the returned state is [StateHalfOpen]
// (the actual transition happens on the next [Execute] call).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastFailure) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset manually forces the breaker back to [StateClosed], clearing all
// failure counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFail = 0
	b.halfOpenCalls = 0
	b.halfOpenFails = 0
	slog.Info("circuit breaker manually reset", "name", b.name)
}
