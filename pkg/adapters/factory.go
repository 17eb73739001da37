package adapters

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// AdapterConstructor возвращает новый, еще не подключенный адаптер
type AdapterConstructor func() Adapter

// Factory - реестр адаптеров по типу источника.
// Типы сравниваются без учета регистра; псевдонимы ("postgresql", "sqlserver")
// разрешаются в канонический тип до поиска конструктора.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]AdapterConstructor
	aliases      map[string]string
}

// NewFactory создает пустой реестр
func NewFactory() *Factory {
	return &Factory{
		constructors: make(map[string]AdapterConstructor),
		aliases:      make(map[string]string),
	}
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Register добавляет конструктор. Повторная регистрация типа - ошибка программиста.
func (f *Factory) Register(sourceType string, constructor AdapterConstructor, aliases ...string) {
	key := normalizeType(sourceType)
	if constructor == nil {
		panic("adapters: Register constructor is nil for " + key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.constructors[key]; dup {
		panic("adapters: Register called twice for " + key)
	}
	f.constructors[key] = constructor
	for _, a := range aliases {
		f.aliases[normalizeType(a)] = key
	}
}

// resolve возвращает канонический тип; вызывающий держит f.mu
func (f *Factory) resolve(sourceType string) (string, bool) {
	key := normalizeType(sourceType)
	if canon, ok := f.aliases[key]; ok {
		key = canon
	}
	_, ok := f.constructors[key]
	return key, ok
}

// IsRegistered сообщает, известен ли тип (или его псевдоним)
func (f *Factory) IsRegistered(sourceType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.resolve(sourceType)
	return ok
}

// GetRegisteredTypes возвращает канонические типы по алфавиту
func (f *Factory) GetRegisteredTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Create создает адаптер и подключает его. cfg.Type в переданном адаптеру
// Config заменяется каноническим.
func (f *Factory) Create(ctx context.Context, cfg Config) (Adapter, error) {
	f.mu.RLock()
	key, ok := f.resolve(cfg.Type)
	constructor := f.constructors[key]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown source type: %q (available types: %v)", cfg.Type, f.GetRegisteredTypes())
	}

	cfg.Type = key
	adapter := constructor()
	if err := adapter.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("connect %s source: %w", key, err)
	}
	return adapter, nil
}

var defaultFactory = NewFactory()

// Register добавляет адаптер в общий реестр (из init() пакета адаптера)
func Register(sourceType string, constructor AdapterConstructor, aliases ...string) {
	defaultFactory.Register(sourceType, constructor, aliases...)
}

// IsRegistered проверяет общий реестр
func IsRegistered(sourceType string) bool { return defaultFactory.IsRegistered(sourceType) }

// GetRegisteredTypes - типы общего реестра
func GetRegisteredTypes() []string { return defaultFactory.GetRegisteredTypes() }

// New создает и подключает адаптер из общего реестра
func New(ctx context.Context, cfg Config) (Adapter, error) {
	return defaultFactory.Create(ctx, cfg)
}
