package xlsx

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/xuri/excelize/v2"
)

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register("xlsx", func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter представляет каждый лист книги Excel как набор данных.
//
// Первая непустая строка листа содержит имена полей, следующие строки - записи.
// Заголовки вида "name (TYPE)", которые пишет экспорт грида, читаются как "name".
type Adapter struct {
	mu   sync.Mutex
	file *excelize.File
	path string
}

// Connect открывает книгу по пути cfg.DSN
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	f, err := excelize.OpenFile(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	a.file = f
	a.path = cfg.DSN
	return nil
}

// Close закрывает книгу
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Ping проверяет, что книга открыта
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return adapters.ErrNotConnected
	}
	return nil
}

// GetDatabaseType возвращает "xlsx"
func (a *Adapter) GetDatabaseType() string {
	return "xlsx"
}

// GetTableNames возвращает имена листов в порядке книги
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil, adapters.ErrNotConnected
	}
	return a.file.GetSheetList(), nil
}

// FetchAll читает один лист
func (a *Adapter) FetchAll(ctx context.Context, table string) ([]dataset.Row, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil, adapters.ErrNotConnected
	}
	if idx, err := a.file.GetSheetIndex(table); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in %s", table, a.path)
	}

	rows, err := a.file.GetRows(table)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	result := make([]dataset.Row, 0)
	// заголовок - первая строка с непустой ячейкой
	start := slices.IndexFunc(rows, func(cells []string) bool { return !blankRow(cells) })
	if start < 0 {
		return result, nil
	}

	headers := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		headers[i] = parseHeader(h)
		if headers[i] == "" {
			headers[i] = "column_" + strconv.Itoa(i+1)
		}
	}

	for _, cells := range rows[start+1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values := make([]dataset.Value, len(headers))
		for i := range headers {
			if i < len(cells) {
				values[i] = convertFromExcel(cells[i])
			}
		}
		result = append(result, dataset.NewRow(headers, values))
	}

	return result, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseHeader убирает суффикс " (TYPE)" и маркер ключа
func parseHeader(header string) string {
	header = strings.TrimSpace(strings.TrimSuffix(header, " *"))
	if idx := strings.LastIndex(header, " ("); idx > 0 && strings.HasSuffix(header, ")") {
		return strings.TrimSpace(header[:idx])
	}
	return header
}

// convertFromExcel приводит текст ячейки к скаляру
func convertFromExcel(value string) dataset.Value {
	if value == "" {
		return nil
	}
	switch value {
	case "TRUE", "true":
		return true
	case "FALSE", "false":
		return false
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if t, ok := dataset.ParseTime(value); ok {
		return t
	}
	return value
}
