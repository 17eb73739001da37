package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// ErrPermanent помечает ошибки, которые повторять бессмысленно
// (нет бакета, нет прав, неверный формат).
var ErrPermanent = errors.New("permanent error")

// Permanent оборачивает err в ErrPermanent; nil остается nil
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// ExhaustedError - все MaxAttempts попыток завершились ошибкой
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retry attempts (%d) exceeded: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// RetryableFunc - одна попытка доставки
type RetryableFunc func(ctx context.Context) error

// Retryer повторяет RetryableFunc по политике Config. Безопасен для
// конкурентного использования.
type Retryer struct {
	config   Config
	patterns []string
}

// NewRetryer проверяет политику и подставляет значения по умолчанию
func NewRetryer(config Config) (*Retryer, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	patterns := make([]string, len(config.RetryableErrors))
	for i, p := range config.RetryableErrors {
		patterns[i] = strings.ToLower(p)
	}
	return &Retryer{config: config, patterns: patterns}, nil
}

// Do вызывает fn, пока она не вернет nil, ошибка не окажется неповторяемой,
// не кончатся попытки или ctx.
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) error {
	if !r.config.Enabled {
		return fn(ctx)
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		switch {
		case err == nil:
			return nil
		case !r.retryable(err):
			return fmt.Errorf("non-retryable error: %w", err)
		case r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts:
			return &ExhaustedError{Attempts: attempt, Last: err}
		}

		wait := r.withJitter(r.config.delay(attempt))
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, err)
		}
	}
}

func (r *Retryer) retryable(err error) bool {
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
		return false
	}
	if len(r.patterns) == 0 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range r.patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// withJitter сдвигает d на случайную долю в пределах ±Jitter
func (r *Retryer) withJitter(d time.Duration) time.Duration {
	if r.config.Jitter == 0 || d == 0 {
		return d
	}
	shift := float64(d) * r.config.Jitter * (2*rand.Float64() - 1)
	return max(d+time.Duration(shift), 0)
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
