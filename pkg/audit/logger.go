package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrClosed - запись в закрытый логгер
var ErrClosed = errors.New("audit logger is closed")

var entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tdtpview",
	Subsystem: "audit",
	Name:      "entries_total",
	Help:      "Audit entries by operation and write result.",
}, []string{"operation", "result"})

// Logger - то, что видят компоненты просмотрщика
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	Flush() error
	Close() error
}

// LoggerConfig - режим записи и значения по умолчанию для записей
type LoggerConfig struct {
	AsyncMode     bool // запись в фоне через буферизованный канал
	BufferSize    int  // 0 = 1000; при переполнении запись идет синхронно
	DefaultUser   string
	DefaultSource string
	OnError       func(error) // ошибки фоновой записи
}

// DefaultConfig - асинхронный режим с буфером 1000
func DefaultConfig() LoggerConfig {
	return LoggerConfig{AsyncMode: true, BufferSize: 1000}
}

// SyncConfig - синхронная запись (тесты, одноразовый экспорт)
func SyncConfig() LoggerConfig {
	return LoggerConfig{}
}

// AuditLogger дополняет записи значениями по умолчанию и передает их appender'у
type AuditLogger struct {
	config LoggerConfig
	out    Appender

	mu     sync.RWMutex // защищает closed и отправку в queue
	closed bool
	queue  chan *Entry
	done   chan struct{}
}

// NewLogger создает логгер; несколько appenders объединяются в MultiAppender
func NewLogger(config LoggerConfig, appenders ...Appender) *AuditLogger {
	var out Appender = NewMultiAppender(appenders...)
	if len(appenders) == 1 {
		out = appenders[0]
	}

	l := &AuditLogger{config: config, out: out}
	if config.AsyncMode {
		size := config.BufferSize
		if size <= 0 {
			size = 1000
		}
		l.queue = make(chan *Entry, size)
		l.done = make(chan struct{})
		go l.drain()
	}
	return l
}

// Log записывает копию entry. В асинхронном режиме возвращается сразу,
// ошибки appender'а уходят в OnError.
func (l *AuditLogger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("audit: nil entry")
	}
	e := l.withDefaults(entry)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	if l.queue != nil {
		select {
		case l.queue <- e:
			return nil
		default: // очередь полна
		}
	}
	return l.write(ctx, e)
}

func (l *AuditLogger) withDefaults(entry *Entry) *Entry {
	e := entry.Clone()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.User == "" {
		e.User = l.config.DefaultUser
	}
	if e.Source == "" {
		e.Source = l.config.DefaultSource
	}
	return e
}

func (l *AuditLogger) write(ctx context.Context, e *Entry) error {
	if err := l.out.Append(ctx, e); err != nil {
		entriesTotal.WithLabelValues(string(e.Operation), "error").Inc()
		if l.config.OnError != nil {
			l.config.OnError(fmt.Errorf("audit %s %s: %w", e.Operation, e.ID, err))
		}
		return err
	}
	entriesTotal.WithLabelValues(string(e.Operation), "ok").Inc()
	return nil
}

func (l *AuditLogger) drain() {
	defer close(l.done)
	for e := range l.queue {
		_ = l.write(context.Background(), e)
	}
}

// Flush вызывает Flush у appender'а, если он его поддерживает
func (l *AuditLogger) Flush() error {
	if f, ok := l.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close дописывает очередь и закрывает appender. Повторный вызов ничего не делает.
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	if l.queue != nil {
		close(l.queue)
	}
	l.mu.Unlock()

	if l.done != nil {
		<-l.done
	}
	return errors.Join(l.Flush(), l.out.Close())
}

// NullLogger отбрасывает все записи
type NullLogger struct{}

func NewNullLogger() *NullLogger { return &NullLogger{} }

func (NullLogger) Log(context.Context, *Entry) error { return nil }
func (NullLogger) Flush() error                      { return nil }
func (NullLogger) Close() error                      { return nil }
