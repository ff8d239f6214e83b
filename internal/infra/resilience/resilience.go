// Package resilience provides fault-tolerance patterns around the data
// provider: retry with exponential backoff, circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds resilience parameters. Zero values fall back to defaults
// tuned for a PostgREST backend over a LAN.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	// MaxBackoff caps a single wait between attempts. Zero means uncapped.
	MaxBackoff     time.Duration
	MaxConcurrency int

	// Circuit breaker thresholds. The breaker trips once at least
	// BreakerMinRequests calls were seen and the failure ratio reaches
	// BreakerFailureRatio.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
}

const (
	defaultBreakerMinRequests  = 5
	defaultBreakerFailureRatio = 0.6
)

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
			jitter := time.Duration(rand.Int63n(int64(backoff/2) + 1))
			wait := backoff + jitter

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a circuit breaker for the data provider with
// thresholds taken from cfg.
func NewCircuitBreaker(name string, cfg Config) *gobreaker.CircuitBreaker {
	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = defaultBreakerMinRequests
	}
	failureRatio := cfg.BreakerFailureRatio
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = defaultBreakerFailureRatio
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
