package execengine

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy governs the http_client primitive's retry behavior,
// resolving the spec's open question about HTTP retry semantics with an
// exponential-backoff-plus-jitter loop gated by a circuit breaker, the
// same combination the ambient resiliency client uses for outbound
// calls elsewhere in the stack.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
	Breaker    *CircuitBreaker
	Limiter    *rate.Limiter
}

// DefaultRetryPolicy matches the ambient stack's default: 3 retries,
// 100ms base backoff doubling per attempt, up to 50ms of jitter, and a
// breaker that opens after 5 consecutive failures for 10 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxJitter:  50 * time.Millisecond,
		Breaker:    NewCircuitBreaker(5, 10*time.Second),
	}
}

// Backoff returns the delay before retry attempt i (0-based): base*2^i
// plus a random jitter up to MaxJitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
	jitter := time.Duration(0)
	if p.MaxJitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(p.MaxJitter))); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return backoff + jitter
}

// Wait blocks until the policy's rate limiter (if any) admits the next
// request.
func (p RetryPolicy) Wait(ctx context.Context) error {
	if p.Limiter == nil {
		return nil
	}
	return p.Limiter.Wait(ctx)
}

// CircuitBreakerState is the three-state machine name.
type CircuitBreakerState string

const (
	BreakerClosed   CircuitBreakerState = "closed"
	BreakerOpen     CircuitBreakerState = "open"
	BreakerHalfOpen CircuitBreakerState = "half_open"
)

// CircuitBreaker trips to open after threshold consecutive failures and
// refuses calls until resetTimeout has elapsed, at which point it moves to
// half-open and admits calls again; the next Failure reopens it and the
// next Success closes it.
type CircuitBreaker struct {
	mu           sync.Mutex
	threshold    int
	resetTimeout time.Duration
	failureCount int
	lastFailure  time.Time
	state        CircuitBreakerState
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{threshold: threshold, resetTimeout: resetTimeout, state: BreakerClosed}
}

// Allow reports whether a call may proceed, transitioning open->half_open
// once resetTimeout has elapsed since the last failure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == BreakerOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = BreakerHalfOpen
			return true
		}
		return false
	}
	return true
}

func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failureCount = 0
}

func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailure = time.Now()
	if cb.failureCount >= cb.threshold {
		cb.state = BreakerOpen
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
