package audit

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level - сколько полей записи попадает в appender
type Level int

const (
	LevelMinimal  Level = iota // операция, статус, ресурс, цель, счетчики
	LevelStandard              // + источник и метаданные
	LevelFull                  // + пользователь
)

var levelNames = [...]string{LevelMinimal: "minimal", LevelStandard: "standard", LevelFull: "full"}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("unknown(%d)", int(l))
}

// ParseLevel разбирает уровень из конфигурации; пустая строка - standard
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelStandard, nil
	}
	for l, name := range levelNames {
		if name == s {
			return Level(l), nil
		}
	}
	return LevelStandard, fmt.Errorf("unknown audit level %q (minimal/standard/full)", s)
}

// Operation - что делал просмотрщик
type Operation string

const (
	OpQuery   Operation = "query"   // выборка набора данных
	OpExport  Operation = "export"  // выгрузка текущего вида
	OpConnect Operation = "connect" // подключение к источнику
	OpList    Operation = "list"    // список наборов данных
)

// Status - итог операции
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusDiscarded Status = "discarded" // результат устарел и отброшен
)

// Entry - одна запись аудита. Duration сериализуется в миллисекундах.
type Entry struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Operation       Operation      `json:"operation"`
	Status          Status         `json:"status"`
	User            string         `json:"user,omitempty"`
	Source          string         `json:"source,omitempty"`   // тип источника (sqlite, postgres, ...)
	Resource        string         `json:"resource,omitempty"` // имя набора данных
	Target          string         `json:"target,omitempty"`   // формат или приемник выгрузки
	RecordsAffected int64          `json:"records_affected,omitempty"`
	Duration        time.Duration  `json:"-"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type entryJSON Entry

type entryWire struct {
	*entryJSON
	DurationMS float64 `json:"duration_ms,omitempty"`
}

func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryWire{
		entryJSON:  (*entryJSON)(e),
		DurationMS: float64(e.Duration) / float64(time.Millisecond),
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	w := entryWire{entryJSON: (*entryJSON)(e)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Duration = time.Duration(w.DurationMS * float64(time.Millisecond))
	return nil
}

// NewEntry - запись с новым ID и текущим временем
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
	}
}

func (e *Entry) WithUser(user string) *Entry         { e.User = user; return e }
func (e *Entry) WithSource(source string) *Entry     { e.Source = source; return e }
func (e *Entry) WithResource(resource string) *Entry { e.Resource = resource; return e }
func (e *Entry) WithTarget(target string) *Entry     { e.Target = target; return e }
func (e *Entry) WithRecordsAffected(n int64) *Entry  { e.RecordsAffected = n; return e }
func (e *Entry) WithDuration(d time.Duration) *Entry { e.Duration = d; return e }

// WithError записывает текст ошибки и переводит статус в failure; nil ничего не меняет
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.ErrorMessage = err.Error()
		e.Status = StatusFailure
	}
	return e
}

func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String - однострочный вид для текстового файла аудита
func (e *Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", e.Timestamp.Format(time.RFC3339), e.Operation, e.Status)
	if e.Resource != "" {
		fmt.Fprintf(&b, " resource=%s", e.Resource)
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " target=%s", e.Target)
	}
	fmt.Fprintf(&b, " records=%d duration=%v", e.RecordsAffected, e.Duration)
	if e.ErrorMessage != "" {
		fmt.Fprintf(&b, " error=%q", e.ErrorMessage)
	}
	return b.String()
}

// Clone - копия с собственной картой метаданных
func (e *Entry) Clone() *Entry {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

// FilterByLevel возвращает копию без полей, которые уровень не пропускает
func (e *Entry) FilterByLevel(level Level) *Entry {
	c := e.Clone()
	if level < LevelFull {
		c.User = ""
	}
	if level < LevelStandard {
		c.Source = ""
		c.Metadata = nil
	}
	return c
}
