package base

import (
	"database/sql"
	"fmt"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// ValueConverter приводит значение драйвера с учетом типа колонки.
// Результат дополнительно проходит dataset.Normalize.
type ValueConverter func(column *sql.ColumnType, value any) any

// ScanRows читает все строки результата в порядке колонок SELECT.
// convert может быть nil.
func ScanRows(rows *sql.Rows, convert ValueConverter) ([]dataset.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var types []*sql.ColumnType
	if convert != nil {
		types, err = rows.ColumnTypes()
		if err != nil {
			return nil, fmt.Errorf("failed to get column types: %w", err)
		}
	}

	result := make([]dataset.Row, 0)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]dataset.Value, len(columns))
		for i, v := range values {
			if convert != nil && v != nil {
				v = convert(types[i], v)
			}
			row[i] = v
		}
		result = append(result, dataset.NewRow(columns, row))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}
