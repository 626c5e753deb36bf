// Package resilience wraps outbound model calls in a circuit breaker and
// an optional rate limiter.
package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docrag/internal/logger"
)

// Guard serializes access to one remote API.
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuard builds a guard named after the API it protects. requestsPerMin
// of 0 disables rate limiting.
func NewGuard(name string, requestsPerMin int, log *zap.Logger) *Guard {
	log = logger.OrNop(log)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	var limiter *rate.Limiter
	if requestsPerMin > 0 {
		burst := requestsPerMin / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), burst)
	}

	return &Guard{breaker: breaker, limiter: limiter}
}

// Do waits for the limiter and runs fn through the breaker.
func Do[T any](ctx context.Context, g *Guard, fn func() (T, error)) (T, error) {
	var zero T
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

// State reports the breaker state, mainly for logs and tests.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}
