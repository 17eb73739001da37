package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

const (
	// DefaultSchema используется, если Config.Schema пуст
	DefaultSchema = "public"

	defaultMaxConns = 10
	defaultMinConns = 2
)

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register("postgres", func() adapters.Adapter {
		return &Adapter{}
	}, "postgresql", "pgx")
}

// Adapter читает наборы данных PostgreSQL через pgxpool
type Adapter struct {
	pool   *pgxpool.Pool
	schema string
}

func poolConfig(cfg adapters.Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pc.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	pc.MinConns = min(int32(defaultMinConns), pc.MaxConns)
	if cfg.MinConns > 0 {
		pc.MinConns = int32(cfg.MinConns)
	}
	if pc.ConnConfig.RuntimeParams == nil {
		pc.ConnConfig.RuntimeParams = map[string]string{}
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "tdtpview"
	return pc, nil
}

// Connect создает пул и проверяет его
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	pc, err := poolConfig(cfg)
	if err != nil {
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	a.pool = pool
	a.schema = cfg.Schema
	if a.schema == "" {
		a.schema = DefaultSchema
	}
	return nil
}

// Close закрывает пул
func (a *Adapter) Close(_ context.Context) error {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return adapters.ErrNotConnected
	}
	return a.pool.Ping(ctx)
}

func (a *Adapter) GetDatabaseType() string { return "postgres" }

// Schema - схема, из которой читаются наборы данных
func (a *Adapter) Schema() string { return a.schema }

// GetTableNames возвращает таблицы и представления схемы по алфавиту
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	if a.pool == nil {
		return nil, adapters.ErrNotConnected
	}

	rows, err := a.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`, a.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", a.schema, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", a.schema, err)
	}
	return names, nil
}

// FetchAll читает все строки; порядок колонок - порядок результата запроса
func (a *Adapter) FetchAll(ctx context.Context, table string) ([]dataset.Row, error) {
	if a.pool == nil {
		return nil, adapters.ErrNotConnected
	}

	query, err := adapters.QuoteANSI.SelectAll(table, a.schema)
	if err != nil {
		return nil, err
	}
	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	var columns []string
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dataset.Row, error) {
		if columns == nil {
			fields := row.FieldDescriptions()
			columns = make([]string, len(fields))
			for i, f := range fields {
				columns[i] = f.Name
			}
		}
		values, err := row.Values()
		if err != nil {
			return dataset.Row{}, err
		}
		for i, v := range values {
			values[i] = pgValue(v)
		}
		return dataset.NewRow(columns, values), nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	if result == nil {
		result = []dataset.Row{}
	}
	return result, nil
}
