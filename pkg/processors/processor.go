package processors

import (
	"context"
	"fmt"
)

// RowProcessor обрабатывает текстовое представление таблицы перед экспортом.
// fields - имена колонок в порядке rows; каждая строка rows имеет len(fields) ячеек.
type RowProcessor interface {
	// Name возвращает имя процессора
	Name() string

	// Process возвращает обработанную копию строк
	Process(ctx context.Context, fields []string, rows [][]string) ([][]string, error)
}

// Chain - последовательность RowProcessor
type Chain struct {
	processors []RowProcessor
}

// NewChain создает цепочку процессоров
func NewChain(processors ...RowProcessor) *Chain {
	return &Chain{processors: processors}
}

// Process применяет процессоры по очереди
func (c *Chain) Process(ctx context.Context, fields []string, rows [][]string) ([][]string, error) {
	if c == nil {
		return rows, nil
	}
	var err error
	for _, p := range c.processors {
		rows, err = p.Process(ctx, fields, rows)
		if err != nil {
			return nil, fmt.Errorf("processor %s failed: %w", p.Name(), err)
		}
	}
	return rows, nil
}

// Len возвращает количество процессоров
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.processors)
}
