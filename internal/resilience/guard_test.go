package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

func fastGuard(threshold int) *Guard {
	return NewGuard(
		RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
		CircuitBreakerConfig{FailureThreshold: threshold, ResetTimeout: time.Hour},
	)
}

func TestGuard_RetriesTransientThenSucceeds(t *testing.T) {
	g := fastGuard(10)

	calls := 0
	v, err := GuardVal(context.Background(), g, "enrichment", "enrich", func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(errors.New("503"), 503)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 2 {
		t.Errorf("got %q after %d calls", v, calls)
	}
}

func TestGuard_WrapsPermanentErrorWithoutRetry(t *testing.T) {
	g := fastGuard(10)

	calls := 0
	err := g.Do(context.Background(), "crm", "upsert_lead", func(_ context.Context) error {
		calls++
		return errors.New("invalid field")
	})

	var ce *model.CollaboratorError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollaboratorError, got %T", err)
	}
	if ce.Collaborator != "crm" || ce.Op != "upsert_lead" {
		t.Errorf("unexpected collaborator error: %+v", ce)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestGuard_OpensCircuitPerCollaborator(t *testing.T) {
	g := fastGuard(1)
	ctx := context.Background()

	_ = g.Do(ctx, "calendar", "find_slots", func(_ context.Context) error { return errors.New("down") })

	err := g.Do(ctx, "calendar", "find_slots", func(_ context.Context) error {
		t.Error("should not be called while circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}

	// Other collaborators are unaffected.
	if err := g.Do(ctx, "crm", "upsert_lead", func(_ context.Context) error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if g.Breakers().States()["calendar"] != CircuitOpen {
		t.Error("expected calendar breaker open")
	}
}

func TestGuard_WithoutRetrySharesBreakers(t *testing.T) {
	g := fastGuard(2)
	once := g.WithoutRetry()
	ctx := context.Background()

	calls := 0
	err := once.Do(ctx, "dialer", "dial", func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("voice: 503"), 503)
	})
	if !model.IsCollaborator(err) {
		t.Errorf("expected collaborator error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}

	_ = once.Do(ctx, "dialer", "dial", func(_ context.Context) error { return errors.New("down") })
	if g.Breakers().States()["dialer"] != CircuitOpen {
		t.Error("expected the shared dialer breaker to open")
	}

	var nilGuard *Guard
	if nilGuard.WithoutRetry() != nil {
		t.Error("nil guard should stay nil")
	}
}

func TestGuard_NilCallsOnce(t *testing.T) {
	var g *Guard
	calls := 0
	err := g.Do(context.Background(), "notify", "publish", func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("429"), 429)
	})
	if !model.IsCollaborator(err) {
		t.Errorf("expected collaborator error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	var ce *model.CollaboratorError
	if !errors.As(err, &ce) || !ce.Transient() {
		t.Errorf("expected transient collaborator error, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	rc := FromRetryConfig(config.RetryConfig{MaxAttempts: 5, InitialBackoffMs: 100, MaxBackoffMs: 1000, Multiplier: 3, JitterFraction: 0})
	if rc.MaxAttempts != 5 || rc.InitialBackoff != 100*time.Millisecond || rc.MaxBackoff != time.Second || rc.Multiplier != 3 || rc.JitterFraction != 0 {
		t.Errorf("unexpected retry config: %+v", rc)
	}

	def := FromRetryConfig(config.RetryConfig{JitterFraction: -1})
	if def.MaxAttempts != 3 || def.JitterFraction != 0.25 {
		t.Errorf("expected defaults, got %+v", def)
	}

	cc := FromCircuitConfig(config.CircuitConfig{FailureThreshold: 2, ResetTimeoutSecs: 10})
	if cc.FailureThreshold != 2 || cc.ResetTimeout != 10*time.Second {
		t.Errorf("unexpected circuit config: %+v", cc)
	}
}

func TestHTTPStatusError(t *testing.T) {
	if !IsTransient(HTTPStatusError("enrichment", 503, "unavailable")) {
		t.Error("503 should be transient")
	}
	err := HTTPStatusError("enrichment", 400, "bad")
	if IsTransient(err) {
		t.Error("400 should not be transient")
	}
	if err.Error() != "enrichment: unexpected status 400: bad" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
