package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SuccessImmediate(t *testing.T) {
	calls := 0
	p := BackoffPolicy{MaxAttempts: 3}
	err := p.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	calls := 0
	p := BackoffPolicy{MaxAttempts: 3}
	err := p.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_PersistentFailure(t *testing.T) {
	calls := 0
	p := BackoffPolicy{MaxAttempts: 3}
	err := p.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("persistent")
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "persistent" {
		t.Fatalf("expected persistent error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ZeroAttemptsDefaultsToOne(t *testing.T) {
	calls := 0
	p := BackoffPolicy{}
	_ = p.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	p := BackoffPolicy{MaxAttempts: 3}
	err := p.Retry(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected 0 calls, got %d", calls)
	}
}

func TestRetry_CancellationNotRetried(t *testing.T) {
	calls := 0
	p := BackoffPolicy{MaxAttempts: 5}
	err := p.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryValue(t *testing.T) {
	calls := 0
	p := BackoffPolicy{MaxAttempts: 2}
	v, err := RetryValue(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestExponentialBackoff_DelayCapped(t *testing.T) {
	p := ExponentialBackoff(5, 10*time.Millisecond, 25*time.Millisecond)
	if d := p.Delay(0); d != 10*time.Millisecond {
		t.Fatalf("attempt 0: expected 10ms, got %v", d)
	}
	if d := p.Delay(1); d != 20*time.Millisecond {
		t.Fatalf("attempt 1: expected 20ms, got %v", d)
	}
	if d := p.Delay(3); d != 25*time.Millisecond {
		t.Fatalf("attempt 3: expected cap 25ms, got %v", d)
	}
}
