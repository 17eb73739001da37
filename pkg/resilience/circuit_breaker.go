package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen - circuit breaker открыт, вызов не выполнялся
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// State - состояние Circuit Breaker
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String - строковое представление состояния
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// ExecuteFunc - функция, выполняемая под защитой circuit breaker
type ExecuteFunc func(ctx context.Context) error

// CircuitBreaker - защита источника от каскадных сбоев
type CircuitBreaker struct {
	config Config

	mu         sync.Mutex
	state      State
	generation uint64 // растет при каждой смене состояния
	counts     Counts
	expiry     time.Time
	now        func() time.Time
}

// New - создать новый Circuit Breaker
func New(config Config) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	if config.IsFailure == nil {
		config.IsFailure = defaultIsFailure
	}
	return &CircuitBreaker{config: config, now: time.Now}, nil
}

// Execute - выполнить функцию с защитой circuit breaker.
// В Open состоянии возвращает ErrCircuitOpen не вызывая fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn ExecuteFunc) error {
	if !cb.config.Enabled {
		return fn(ctx)
	}

	generation, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.afterRequest(generation, false)
			panic(r)
		}
	}()

	err = fn(ctx)
	cb.afterRequest(generation, err == nil || !cb.config.IsFailure(err))
	return err
}

// State - текущее состояние (с учетом истекшего Open)
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireLocked()
	return cb.state
}

// Counts - счетчики текущего состояния
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Name - имя Circuit Breaker
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Reset - принудительно закрыть цепь
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setStateLocked(StateClosed)
}

// String - строковое представление
func (cb *CircuitBreaker) String() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return fmt.Sprintf("CircuitBreaker(%s state=%s failures=%d/%d)",
		cb.config.Name, cb.state, cb.counts.ConsecutiveFailures, cb.config.MaxFailures)
}

func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.expireLocked()
	if cb.state == StateOpen {
		return cb.generation, ErrCircuitOpen
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) afterRequest(generation uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// результат вызова, начатого в другом состоянии, не учитываем
	if generation != cb.generation {
		return
	}

	cb.counts.Requests++
	if success {
		cb.counts.TotalSuccesses++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.setStateLocked(StateClosed)
		}
		return
	}

	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0
	switch cb.state {
	case StateClosed:
		if cb.counts.ConsecutiveFailures >= cb.config.MaxFailures {
			cb.setStateLocked(StateOpen)
		}
	case StateHalfOpen:
		cb.setStateLocked(StateOpen)
	}
}

// expireLocked - Open -> Half-Open по истечении Timeout
func (cb *CircuitBreaker) expireLocked() {
	if cb.state == StateOpen && cb.now().After(cb.expiry) {
		cb.setStateLocked(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) setStateLocked(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.generation++
	cb.counts = Counts{}
	if to == StateOpen {
		cb.expiry = cb.now().Add(cb.config.Timeout)
	}
	if cb.config.OnStateChange != nil {
		go cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
