package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errUnavailable = errors.New("profile store unavailable")

func fastConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func retryUnavailable(err error) ErrorClassification {
	return ErrorClassification{Retryable: errors.Is(err, errUnavailable), RecordFailure: true}
}

func TestExecuteRetryBudget(t *testing.T) {
	tests := []struct {
		name      string
		failFirst int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "recovers on third attempt", failFirst: 2, err: errUnavailable, wantCalls: 3},
		{name: "budget exhausted", failFirst: 5, err: errUnavailable, wantCalls: 3, wantErr: true},
		{name: "permanent error is not retried", failFirst: 5, err: errors.New("bad request"), wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := NewExecutor(fastConfig(3)).Execute(context.Background(), "scoring.list_profiles", func(context.Context) error {
				calls++
				if calls <= tt.failFirst {
					return tt.err
				}
				return nil
			}, retryUnavailable)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, calls)
			}
		})
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewExecutor(fastConfig(3)).Execute(ctx, "op", func(context.Context) error {
		t.Fatalf("operation must not run after cancellation")
		return nil
	}, retryUnavailable)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffGrowsUntilCap(t *testing.T) {
	cfg := Config{
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     350 * time.Millisecond,
		RetryMultiplier:     2,
	}.normalize()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := cfg.backoffAfter(i + 1); got != w {
			t.Fatalf("backoffAfter(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	got := Config{RetryInitialBackoff: time.Second, BreakerFailureRatio: 3}.normalize()
	if got.RetryMaxAttempts != 3 || got.RetryMultiplier != 2 {
		t.Fatalf("unexpected retry defaults %+v", got)
	}
	if got.RetryMaxBackoff != time.Second {
		t.Fatalf("expected max backoff raised to initial, got %v", got.RetryMaxBackoff)
	}
	if got.BreakerFailureRatio != 0.5 || got.BreakerMinRequests != 10 {
		t.Fatalf("unexpected breaker defaults %+v", got)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	cfg := fastConfig(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.BreakerHalfOpenMaxCalls = 1
	exec := NewExecutor(cfg)

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "scoring.list_profiles", func(context.Context) error {
			return errUnavailable
		}, retryUnavailable)
		if !errors.Is(err, errUnavailable) {
			t.Fatalf("expected unavailable error on call %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "scoring.list_profiles", func(context.Context) error {
		t.Fatalf("open circuit must not call the operation")
		return nil
	}, retryUnavailable)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	err = exec.Execute(context.Background(), "nats.publish", func(context.Context) error { return nil }, nil)
	if err != nil {
		t.Fatalf("breakers are per operation, got %v", err)
	}
}

func TestDoReturnsValueAfterRetry(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})

	calls := 0
	got, err := Do(context.Background(), exec, "list", func(context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("flaky")
		}
		return []string{"a", "b"}, nil
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(got) != 2 || calls != 2 {
		t.Fatalf("unexpected result %v after %d calls", got, calls)
	}
}

func TestStateListenerSeesBreakerOpen(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     1,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})
	var transitions []string
	exec.OnStateChange(func(operation string, from, to gobreaker.State) {
		transitions = append(transitions, operation+":"+from.String()+"->"+to.String())
	})

	_ = exec.Execute(context.Background(), "scoring.list_profiles", func(context.Context) error {
		return errors.New("down")
	}, nil)

	if len(transitions) != 1 || transitions[0] != "scoring.list_profiles:closed->open" {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}
