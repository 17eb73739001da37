package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func noJitter(maxAttempts int) Config {
	c := EnableRetry(maxAttempts, time.Millisecond)
	c.Jitter = 0
	return c
}

func TestDo(t *testing.T) {
	tests := []struct {
		name         string
		config       Config
		failures     int // сколько первых попыток падает
		err          error
		wantAttempts int
		wantErr      bool
	}{
		{"first attempt", noJitter(3), 0, nil, 1, false},
		{"recovers", noJitter(5), 2, errors.New("upload timeout"), 3, false},
		{"exhausted", noJitter(3), 10, errors.New("broker unavailable"), 3, true},
		{"permanent", noJitter(5), 10, Permanent(errors.New("access denied")), 1, true},
		{"canceled is final", noJitter(5), 10, context.Canceled, 1, true},
		{"disabled", DefaultConfig(), 10, errors.New("fail"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRetryer(tt.config)
			if err != nil {
				t.Fatalf("NewRetryer: %v", err)
			}
			attempts := 0
			err = r.Do(context.Background(), func(context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Do() error = %v, wantErr %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestDo_ExhaustedError(t *testing.T) {
	r, err := NewRetryer(noJitter(3))
	if err != nil {
		t.Fatalf("NewRetryer: %v", err)
	}
	base := errors.New("broker unavailable")
	err = r.Do(context.Background(), func(context.Context) error { return base })

	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 3 {
		t.Fatalf("expected ExhaustedError with 3 attempts, got %v", err)
	}
	if !strings.Contains(err.Error(), "max retry attempts (3) exceeded") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestDo_PermanentKeepsSentinel(t *testing.T) {
	r, _ := NewRetryer(noJitter(5))
	err := r.Do(context.Background(), func(context.Context) error {
		return Permanent(errors.New("no such bucket"))
	})
	if !errors.Is(err, ErrPermanent) {
		t.Errorf("expected ErrPermanent, got %v", err)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) must be nil")
	}
}

func TestDo_OnRetry(t *testing.T) {
	config := noJitter(3)
	var seen []int
	config.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}
	r, err := NewRetryer(config)
	if err != nil {
		t.Fatalf("NewRetryer: %v", err)
	}

	_ = r.Do(context.Background(), func(context.Context) error { return errors.New("fail") })
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}

func TestDo_RetryablePatterns(t *testing.T) {
	config := noJitter(5)
	config.RetryableErrors = []string{"Timeout"}
	r, err := NewRetryer(config)
	if err != nil {
		t.Fatalf("NewRetryer: %v", err)
	}

	attempts := 0
	err = r.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("i/o timeout")
		}
		return errors.New("no such bucket")
	})
	if err == nil || !strings.Contains(err.Error(), "non-retryable") {
		t.Errorf("expected non-retryable error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (timeout retried, bucket error final)", attempts)
	}
}

func TestDo_ContextDeadline(t *testing.T) {
	config := EnableRetry(0, 50*time.Millisecond)
	r, err := NewRetryer(config)
	if err != nil {
		t.Fatalf("NewRetryer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = r.Do(ctx, func(context.Context) error { return errors.New("still failing") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestConfigDelay(t *testing.T) {
	tests := []struct {
		strategy BackoffStrategy
		attempt  int
		want     time.Duration
	}{
		{BackoffConstant, 3, 100 * time.Millisecond},
		{BackoffLinear, 3, 300 * time.Millisecond},
		{BackoffExponential, 1, 100 * time.Millisecond},
		{BackoffExponential, 3, 400 * time.Millisecond},
		{BackoffExponential, 10, time.Second}, // MaxDelay
		{"", 2, 200 * time.Millisecond},       // exponential по умолчанию
	}

	for _, tt := range tests {
		c := Config{Enabled: true, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Strategy: tt.strategy}.withDefaults()
		if got := c.delay(tt.attempt); got != tt.want {
			t.Errorf("%q attempt %d: delay %v, want %v", tt.strategy, tt.attempt, got, tt.want)
		}
	}
}

func TestWithJitterBounds(t *testing.T) {
	config := EnableRetry(3, 100*time.Millisecond)
	config.Jitter = 0.5
	r, err := NewRetryer(config)
	if err != nil {
		t.Fatalf("NewRetryer: %v", err)
	}
	for i := 0; i < 100; i++ {
		d := r.withJitter(100 * time.Millisecond)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %v outside [50ms, 150ms]", d)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	bad := []Config{
		{Enabled: true, MaxAttempts: -1},
		{Enabled: true, InitialDelay: time.Second, MaxDelay: time.Millisecond},
		{Enabled: true, Strategy: "random"},
		{Enabled: true, Jitter: 1.5},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}

	multi := Config{Enabled: true, MaxAttempts: -1, Jitter: 2}
	if err := multi.Validate(); err == nil || !strings.Contains(err.Error(), "jitter") || !strings.Contains(err.Error(), "max_attempts") {
		t.Errorf("expected both problems reported, got %v", err)
	}

	if err := (Config{MaxAttempts: -1}).Validate(); err != nil {
		t.Errorf("disabled config must be valid, got %v", err)
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig invalid: %v", err)
	}
}
