package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Appender - интерфейс для записи audit логов
type Appender interface {
	// Append - записать audit entry
	Append(ctx context.Context, entry *Entry) error

	// Close - закрыть appender
	Close() error
}

// MultiAppender - запись в несколько appenders
type MultiAppender struct {
	appenders []Appender
}

// NewMultiAppender - создать multi appender
func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{appenders: appenders}
}

// Append - записать во все appenders, возвращает первую ошибку
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var firstErr error
	for _, a := range ma.appenders {
		if err := a.Append(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
			// продолжаем записывать в остальные appenders
		}
	}
	return firstErr
}

// Flush - сбросить appenders, которые это умеют
func (ma *MultiAppender) Flush() error {
	var errs []error
	for _, a := range ma.appenders {
		if f, ok := a.(interface{ Flush() error }); ok {
			errs = append(errs, f.Flush())
		}
	}
	return errors.Join(errs...)
}

// Close - закрыть все appenders
func (ma *MultiAppender) Close() error {
	var firstErr error
	for _, a := range ma.appenders {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogAppender - запись аудита в zerolog (в общий поток логов сервиса)
type LogAppender struct {
	logger zerolog.Logger
	level  Level
}

// NewLogAppender - создать appender поверх zerolog
func NewLogAppender(logger zerolog.Logger, level Level) *LogAppender {
	return &LogAppender{logger: logger, level: level}
}

// Append - записать entry как событие zerolog
func (la *LogAppender) Append(_ context.Context, entry *Entry) error {
	e := entry.FilterByLevel(la.level)

	ev := la.logger.Info()
	if e.Status == StatusFailure {
		ev = la.logger.Warn()
	}
	ev = ev.Str("audit_id", e.ID).
		Str("operation", string(e.Operation)).
		Str("status", string(e.Status)).
		Str("resource", e.Resource).
		Int64("records", e.RecordsAffected).
		Dur("duration", e.Duration)
	if e.Target != "" {
		ev = ev.Str("target", e.Target)
	}
	if e.Source != "" {
		ev = ev.Str("source", e.Source)
	}
	if e.ErrorMessage != "" {
		ev = ev.Str("error", e.ErrorMessage)
	}
	if len(e.Metadata) > 0 {
		ev = ev.Interface("metadata", e.Metadata)
	}
	ev.Msg("audit")
	return nil
}

// Close - noop
func (la *LogAppender) Close() error {
	return nil
}

// MemoryAppender - хранит записи в памяти (для тестов и отладки)
type MemoryAppender struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewMemoryAppender - создать memory appender
func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{}
}

// Append - сохранить копию entry
func (ma *MemoryAppender) Append(_ context.Context, entry *Entry) error {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.entries = append(ma.entries, entry.Clone())
	return nil
}

// Entries - копия сохраненных записей
func (ma *MemoryAppender) Entries() []*Entry {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	out := make([]*Entry, len(ma.entries))
	copy(out, ma.entries)
	return out
}

// Close - noop
func (ma *MemoryAppender) Close() error {
	return nil
}
