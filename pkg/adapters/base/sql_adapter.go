package base

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// SQLAdapter - общая часть адаптеров поверх database/sql.
// Конкретный адаптер встраивает SQLAdapter и задает диалект.
type SQLAdapter struct {
	DB      *sql.DB
	Quoting adapters.Quoting
	Schema  string
	Convert ValueConverter
}

// Open открывает пул и проверяет подключение
func (a *SQLAdapter) Open(ctx context.Context, driver string, cfg adapters.Config) error {
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.DB = db
	return nil
}

// Close закрывает пул
func (a *SQLAdapter) Close(ctx context.Context) error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// Ping проверяет доступность БД
func (a *SQLAdapter) Ping(ctx context.Context) error {
	if a.DB == nil {
		return adapters.ErrNotConnected
	}
	return a.DB.PingContext(ctx)
}

// QueryNames выполняет запрос, возвращающий одну строковую колонку
func (a *SQLAdapter) QueryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	if a.DB == nil {
		return nil, adapters.ErrNotConnected
	}

	rows, err := a.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return names, nil
}

// FetchAll читает весь набор данных через SELECT * FROM <table>
func (a *SQLAdapter) FetchAll(ctx context.Context, table string) ([]dataset.Row, error) {
	if a.DB == nil {
		return nil, adapters.ErrNotConnected
	}

	query, err := a.Quoting.SelectAll(table, a.Schema)
	if err != nil {
		return nil, err
	}

	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	return ScanRows(rows, a.Convert)
}
