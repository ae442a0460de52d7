package client

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	// StateClosed means the circuit acts normally (requests pass).
	StateClosed CircuitState = iota
	// StateOpen means the circuit fails fast (requests blocked).
	StateOpen
	// StateHalfOpen means the circuit is probing after ResetTimeout:
	// attempts pass, a success closes it and a failure reopens it.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerPolicy configures a CircuitBreaker guarding the dial and
// authenticate sequence a Connect/reconnect attempt runs. Once
// FailureThreshold consecutive attempts fail, the breaker trips open for
// ResetTimeout so a down or flapping shellwire server doesn't get a fresh
// dial attempt every single reconnectManager tick.
type CircuitBreakerPolicy struct {
	Enabled          bool
	FailureThreshold int
	ResetTimeout     time.Duration
}

// DefaultCircuitBreakerPolicy returns a conservative default: five
// consecutive failures trip the breaker open for 30s.
func DefaultCircuitBreakerPolicy() CircuitBreakerPolicy {
	return CircuitBreakerPolicy{
		Enabled:          true,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// CircuitBreaker wraps Client.connect so that a run of consecutive
// failed dial/authenticate attempts stops producing new connection
// attempts for ResetTimeout, rather than hammering the configured
// address once per reconnectManager.run iteration.
type CircuitBreaker struct {
	mu sync.Mutex

	state       CircuitState
	failures    int
	lastFailure time.Time

	threshold int
	timeout   time.Duration
	enabled   bool
	clock     Clock
}

// NewCircuitBreaker creates a new circuit breaker with the given policy.
func NewCircuitBreaker(policy *CircuitBreakerPolicy) *CircuitBreaker {
	if policy == nil {
		return &CircuitBreaker{enabled: false, clock: realClock{}}
	}
	return &CircuitBreaker{
		state:     StateClosed,
		threshold: policy.FailureThreshold,
		timeout:   policy.ResetTimeout,
		enabled:   policy.Enabled,
		clock:     realClock{},
	}
}

// Execute runs fn (a Connect or reconnect attempt) guarded by the
// breaker's state: fails fast with ErrCircuitOpen while open, otherwise
// runs fn and folds its result into the breaker's failure count.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.enabled {
		return fn()
	}

	if err := cb.checkState(); err != nil {
		return err
	}

	err := fn()

	cb.updateState(err)

	return err
}

// checkState determines if execution is allowed.
func (cb *CircuitBreaker) checkState() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.clock.Now().Sub(cb.lastFailure) > cb.timeout {
			cb.transitionToLocked(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	}

	// Half-Open lets attempts through without limiting them to one at a
	// time; updateState below closes the circuit again on a success and
	// sends it straight back to Open on a failure.
	return nil
}

// transitionToLocked changes state. Must be called with cb.mu held.
func (cb *CircuitBreaker) transitionToLocked(newState CircuitState) {
	cb.state = newState
}

// updateState folds a connect attempt's result into the breaker's
// failure count and, on crossing threshold, trips the breaker open.
func (cb *CircuitBreaker) updateState(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == StateHalfOpen {
			cb.transitionToLocked(StateClosed)
		}
		cb.failures = 0
		return
	}

	if err == ErrCircuitOpen {
		// checkState already rejected this attempt; nothing to count.
		return
	}

	cb.failures++
	cb.lastFailure = cb.clock.Now()

	if cb.state == StateHalfOpen {
		cb.transitionToLocked(StateOpen)
		return
	}

	if cb.state == StateClosed && cb.failures >= cb.threshold {
		cb.transitionToLocked(StateOpen)
	}
}

// State returns the current state (thread-safe).
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
