package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config - конфигурация Circuit Breaker
type Config struct {
	// Enabled - включить Circuit Breaker; выключенный просто вызывает функцию
	Enabled bool `yaml:"enabled"`

	// Name - имя для логов и метрик
	Name string `yaml:"name"`

	// MaxFailures - количество последовательных ошибок для открытия
	MaxFailures uint32 `yaml:"max_failures"`

	// Timeout - время в Open перед переходом в Half-Open
	Timeout time.Duration `yaml:"timeout"`

	// SuccessThreshold - успешных вызовов в Half-Open для закрытия
	SuccessThreshold uint32 `yaml:"success_threshold"`

	// OnStateChange - callback при смене состояния (вызывается вне блокировки)
	OnStateChange func(name string, from, to State) `yaml:"-"`

	// IsFailure - какие ошибки считать сбоем бэкенда.
	// nil: все, кроме отмены контекста вызывающей стороной.
	IsFailure func(err error) bool `yaml:"-"`
}

// Validate - проверка и заполнение значений по умолчанию
func (c *Config) Validate() error {
	if c.MaxFailures == 0 {
		return fmt.Errorf("MaxFailures must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be greater than 0")
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 1
	}
	if c.Name == "" {
		c.Name = "circuit-breaker"
	}
	return nil
}

// DefaultConfig - 5 ошибок подряд открывают цепь на минуту
func DefaultConfig(name string) Config {
	return Config{
		Enabled:          true,
		Name:             name,
		MaxFailures:      5,
		Timeout:          60 * time.Second,
		SuccessThreshold: 2,
	}
}

// Counts - счетчики запросов в текущем состоянии
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func defaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}
