package sqlite

import (
	"context"
	"strings"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/adapters/base"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// ожидание блокировки, пока другой процесс пишет в файл
	busyTimeoutPragma = "_pragma=busy_timeout(5000)"
)

var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register("sqlite", func() adapters.Adapter {
		return &Adapter{}
	}, "sqlite3")
}

// Adapter читает таблицы и представления файла SQLite (драйвер modernc, без cgo)
type Adapter struct {
	base.SQLAdapter
}

// dsnWithPragmas добавляет busy_timeout, если DSN не задает его сам
func dsnWithPragmas(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + busyTimeoutPragma
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	a.Quoting = adapters.QuoteANSI
	memory := isMemory(cfg.DSN)
	cfg.DSN = dsnWithPragmas(cfg.DSN)
	if err := a.Open(ctx, driverName, cfg); err != nil {
		return err
	}
	if memory {
		// у каждого соединения своя in-memory база
		a.DB.SetMaxOpenConns(1)
	}
	return nil
}

func (a *Adapter) GetDatabaseType() string { return "sqlite" }

// GetTableNames - пользовательские таблицы и представления, служебные sqlite_* скрыты
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	return a.QueryNames(ctx, `
		SELECT name FROM sqlite_schema
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name`)
}
