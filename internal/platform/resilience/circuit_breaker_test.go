package resilience

import (
	"errors"
	"testing"
	"time"
)

var errGateway = errors.New("sms gateway timeout")

func failing() error { return errGateway }
func passing() error { return nil }

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time) {
	b := NewCircuitBreaker("sms-gateway", cfg)
	now := time.Date(2026, 7, 4, 19, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestCircuitBreaker_OpensAndRecoversThroughHalfOpen(t *testing.T) {
	b, now := newTestBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: 5 * time.Second, HalfOpenMaxReq: 1})

	_ = b.Execute(failing, nil)
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}
	_ = b.Execute(failing, nil)
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	err := b.Execute(passing, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	*now = now.Add(6 * time.Second)
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open once the window elapsed, got %s", state)
	}
	if err := b.Execute(passing, nil); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful probe, got %s", state)
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	b, now := newTestBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Second, HalfOpenMaxReq: 1})

	_ = b.Execute(failing, nil)
	*now = now.Add(2 * time.Second)
	if err := b.Execute(failing, nil); !errors.Is(err, errGateway) {
		t.Fatalf("expected probe error passthrough, got %v", err)
	}
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after failed probe, got %s", state)
	}
}

func TestCircuitBreaker_IgnoresNonCountedErrors(t *testing.T) {
	b, _ := newTestBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute})

	errRejected := errors.New("invalid recipient")
	transientOnly := func(err error) bool { return errors.Is(err, errGateway) }

	if err := b.Execute(func() error { return errRejected }, transientOnly); !errors.Is(err, errRejected) {
		t.Fatalf("expected rejection passthrough, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("rejections must not open the breaker, got %s", state)
	}

	_ = b.Execute(failing, transientOnly)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	}, transientOnly)
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("expected open breaker to short-circuit, err=%v called=%t", err, called)
	}
}

func TestCircuitBreaker_DisabledAlwaysAdmits(t *testing.T) {
	b, _ := newTestBreaker(CircuitBreakerConfig{Enabled: false, FailureThreshold: 1})

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing, nil); !errors.Is(err, errGateway) {
			t.Fatalf("attempt %d: expected gateway error, got %v", i, err)
		}
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("disabled breaker must stay closed, got %s", state)
	}
}

func TestCircuitBreakerConfig_WithDefaults(t *testing.T) {
	got := CircuitBreakerConfig{Enabled: true}.withDefaults()
	if got != DefaultCircuitBreakerConfig() {
		t.Fatalf("withDefaults = %+v, want %+v", got, DefaultCircuitBreakerConfig())
	}
}
