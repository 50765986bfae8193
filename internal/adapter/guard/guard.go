package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"catalograg/internal/domain"
)

// Settings configures a Guard.
type Settings struct {
	Name      string
	Timeout   time.Duration // per call, 0 = no deadline
	RateLimit float64       // calls per second, 0 = unlimited
	Logger    *slog.Logger
}

// Guard bounds calls to a remote provider with a deadline, a rate limit
// and a circuit breaker. It never retries: a failed call fails the operation.
type Guard struct {
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func New(s Settings) *Guard {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Guard{
		name:    s.Name,
		timeout: s.Timeout,
	}
	if s.RateLimit > 0 {
		burst := int(s.RateLimit)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(s.RateLimit), burst)
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Validation and configuration failures say nothing about provider health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			k := domain.Kind(err)
			return k == "validation" || k == "configuration"
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// Do runs fn under the guard. Errors are classified as provider timeouts or
// provider failures unless fn already tagged them with a domain kind.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, g.classify(ctx, err)
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, g.classify(ctx, err)
	}
	return result, nil
}

// State reports the circuit breaker state.
func (g *Guard) State() string {
	return g.breaker.State().String()
}

func (g *Guard) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s unavailable: %v", domain.ErrProvider, g.name, err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		if errors.Is(err, domain.ErrProviderTimeout) {
			return err
		}
		return fmt.Errorf("%w: %s did not answer within %s", domain.ErrProviderTimeout, g.name, g.timeout)
	case domain.Kind(err) != "internal":
		return err
	default:
		return fmt.Errorf("%w: %s: %v", domain.ErrProvider, g.name, err)
	}
}
