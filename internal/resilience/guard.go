package resilience

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Guard runs collaborator calls through the collaborator's circuit breaker
// with retries, and wraps failures as *model.CollaboratorError.
type Guard struct {
	retry    RetryConfig
	breakers *Breakers
}

// NewGuard creates a Guard.
func NewGuard(retry RetryConfig, circuit CircuitBreakerConfig) *Guard {
	return &Guard{retry: retry, breakers: NewBreakers(circuit)}
}

// Breakers exposes the per-collaborator breakers for status reporting.
func (g *Guard) Breakers() *Breakers {
	return g.breakers
}

// WithoutRetry returns a Guard that shares g's breakers but makes a single
// attempt per call. A nil Guard stays nil.
func (g *Guard) WithoutRetry() *Guard {
	if g == nil {
		return nil
	}
	retry := g.retry
	retry.MaxAttempts = 1
	return &Guard{retry: retry, breakers: g.breakers}
}

// Do runs fn for collaborator/op. A nil Guard calls fn once.
func (g *Guard) Do(ctx context.Context, collaborator, op string, fn func(ctx context.Context) error) error {
	_, err := GuardVal(ctx, g, collaborator, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// GuardVal is Guard.Do for functions that return a value.
func GuardVal[T any](ctx context.Context, g *Guard, collaborator, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		v, err := fn(ctx)
		if err != nil {
			var zero T
			return zero, model.NewCollaboratorError(collaborator, op, err)
		}
		return v, nil
	}

	cfg := g.retry
	cfg.OnRetry = RetryLogger(collaborator, op)
	cb := g.breakers.Get(collaborator)

	v, err := DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		return ExecuteVal(ctx, cb, fn)
	})
	if err != nil {
		var zero T
		return zero, model.NewCollaboratorError(collaborator, op, err)
	}
	return v, nil
}
