package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb" // драйвер MS SQL Server
	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/adapters/base"
)

// AdapterType - ключ адаптера MS SQL Server в фабрике
const AdapterType = "mssql"

// DefaultSchema используется, если Config.Schema пуст
const DefaultSchema = "dbo"

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	}, "sqlserver")
}

// Adapter читает наборы данных MS SQL Server
type Adapter struct {
	base.SQLAdapter
}

// Connect реализует интерфейс adapters.Adapter
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	a.Quoting = adapters.QuoteMSSQL
	a.Convert = convertValue
	a.Schema = cfg.Schema
	if a.Schema == "" {
		a.Schema = DefaultSchema
	}
	return a.Open(ctx, "mssql", cfg)
}

// GetDatabaseType возвращает тип адаптера
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// GetTableNames возвращает таблицы и представления текущей схемы
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	return a.QueryNames(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME
	`, a.Schema)
}

// convertValue форматирует UNIQUEIDENTIFIER и числовые типы, пришедшие байтами
func convertValue(column *sql.ColumnType, value any) any {
	raw, ok := value.([]byte)
	if !ok {
		return value
	}

	switch column.DatabaseTypeName() {
	case "UNIQUEIDENTIFIER":
		if len(raw) == 16 {
			return formatGUID(raw)
		}
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		var f float64
		if _, err := fmt.Sscan(string(raw), &f); err == nil {
			return f
		}
	}
	return value
}

// formatGUID учитывает порядок байт SQL Server: первые три группы little-endian
func formatGUID(b []byte) string {
	return fmt.Sprintf("%02X%02X%02X%02X-%02X%02X-%02X%02X-%X-%X",
		b[3], b[2], b[1], b[0], b[5], b[4], b[7], b[6], b[8:10], b[10:16])
}
