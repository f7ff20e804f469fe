package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), WithMaxAttempts(&ZeroBackoff{}, 5), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	wantErr := errors.New("always fails")
	err := Retry(context.Background(), WithMaxAttempts(&ZeroBackoff{}, 3), func() error {
		attempts++
		return wantErr
	}, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	cancel()
	err := Retry(ctx, NewConstantBackoff(time.Hour), func() error {
		attempts++
		return errors.New("fails")
	}, nil)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt before cancellation observed, got %d", attempts)
	}
}

func TestNoRetriesAttemptsOnce(t *testing.T) {
	attempts := 0
	Retry(context.Background(), NoRetries(), func() error {
		attempts++
		return errors.New("fails")
	}, nil)
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestNotifyCalledBeforeRetry(t *testing.T) {
	var notified int
	attempts := 0
	Retry(context.Background(), WithMaxAttempts(&ZeroBackoff{}, 3), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("fails")
		}
		return nil
	}, func(err error, d time.Duration) {
		notified++
	})
	if notified != 1 {
		t.Errorf("expected notify called once, got %d", notified)
	}
}
