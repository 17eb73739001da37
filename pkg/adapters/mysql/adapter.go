package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/adapters/base"
)

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register("mysql", func() adapters.Adapter {
		return &Adapter{}
	}, "mariadb")
}

// Adapter читает таблицы текущей базы MySQL/MariaDB
type Adapter struct {
	base.SQLAdapter
}

// normalizeDSN включает parseTime, чтобы DATETIME приходил как time.Time,
// и фиксирует UTC, если DSN не задает loc.
func normalizeDSN(dsn string) (string, error) {
	c, err := driver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	c.ParseTime = true
	if c.Loc == nil {
		c.Loc = time.UTC
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	return c.FormatDSN(), nil
}

func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return err
	}
	cfg.DSN = dsn
	a.Quoting = adapters.QuoteMySQL
	a.Convert = convertValue
	return a.Open(ctx, "mysql", cfg)
}

func (a *Adapter) GetDatabaseType() string { return "mysql" }

// GetTableNames - таблицы и представления базы из DSN
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	return a.QueryNames(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY table_name`)
}

// convertValue: DECIMAL протокол отдает текстом ([]byte), остальное уже типизировано
func convertValue(column *sql.ColumnType, value any) any {
	raw, ok := value.([]byte)
	if !ok {
		return value
	}
	switch column.DatabaseTypeName() {
	case "DECIMAL":
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return f
		}
	case "CHAR", "VARCHAR", "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "ENUM", "SET", "JSON":
		return string(raw)
	}
	return value
}
