package retry

import (
	"errors"
	"fmt"
	"time"
)

// BackoffStrategy - закон роста задержки между попытками
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"    // всегда InitialDelay
	BackoffLinear      BackoffStrategy = "linear"      // InitialDelay * n
	BackoffExponential BackoffStrategy = "exponential" // InitialDelay * multiplier^(n-1)
)

// Config - политика повторной доставки экспортов в sink'и.
// Нулевые Strategy и Multiplier заменяются на exponential и 2.
type Config struct {
	Enabled     bool `yaml:"enabled"`      // false = ровно одна попытка
	MaxAttempts int  `yaml:"max_attempts"` // включая первую; 0 = пока жив ctx

	InitialDelay time.Duration   `yaml:"initial_delay"`
	MaxDelay     time.Duration   `yaml:"max_delay"`
	Strategy     BackoffStrategy `yaml:"backoff"`
	Multiplier   float64         `yaml:"multiplier"`
	Jitter       float64         `yaml:"jitter"` // доля задержки, 0..1

	// RetryableErrors - подстроки текста ошибки (без учета регистра).
	// Пусто = повторяется любая ошибка, кроме Permanent.
	RetryableErrors []string `yaml:"retryable_errors"`

	// OnRetry вызывается перед сном; attempt - номер неудачной попытки
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// DefaultConfig - три попытки с экспоненциальной задержкой от 1s, выключено
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Strategy:     BackoffExponential,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

// EnableRetry - DefaultConfig с включенными повторами
func EnableRetry(maxAttempts int, initialDelay time.Duration) Config {
	c := DefaultConfig()
	c.Enabled = true
	c.MaxAttempts = maxAttempts
	c.InitialDelay = initialDelay
	c.MaxDelay = max(c.MaxDelay, initialDelay)
	return c
}

func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = BackoffExponential
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	return c
}

// Validate возвращает все найденные ошибки сразу. Выключенная политика всегда валидна.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts))
	}
	if c.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("initial_delay must be >= 0, got %v", c.InitialDelay))
	}
	if c.MaxDelay < c.InitialDelay {
		errs = append(errs, fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay))
	}
	switch c.Strategy {
	case "", BackoffConstant, BackoffLinear, BackoffExponential:
	default:
		errs = append(errs, fmt.Errorf("unknown backoff %q (constant, linear, exponential)", c.Strategy))
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		errs = append(errs, fmt.Errorf("jitter must be within [0, 1], got %g", c.Jitter))
	}
	return errors.Join(errs...)
}

// delay - задержка после неудачной попытки attempt (с 1), без jitter
func (c Config) delay(attempt int) time.Duration {
	var d float64
	base := float64(c.InitialDelay)
	switch c.Strategy {
	case BackoffLinear:
		d = base * float64(attempt)
	case BackoffExponential:
		d = base
		for i := 1; i < attempt && d < float64(c.MaxDelay); i++ {
			d *= c.Multiplier
		}
	default:
		d = base
	}
	if d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}
