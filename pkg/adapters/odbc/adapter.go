//go:build odbc

package odbc

import (
	"context"

	_ "github.com/alexbrainman/odbc" // ODBC driver (unixODBC / Windows ODBC)
	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/adapters/base"
)

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

// Регистрация адаптера в глобальной фабрике.
// Собирается только с тегом odbc: драйвер требует cgo и менеджер драйверов ODBC.
func init() {
	adapters.Register("odbc", func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter читает наборы данных через произвольный ODBC-источник
type Adapter struct {
	base.SQLAdapter
}

// Connect открывает ODBC DSN, например "DSN=warehouse;UID=viewer;PWD=secret"
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	a.Quoting = adapters.QuoteANSI
	a.Schema = cfg.Schema
	return a.Open(ctx, "odbc", cfg)
}

// GetDatabaseType возвращает тип источника
func (a *Adapter) GetDatabaseType() string {
	return "odbc"
}

// GetTableNames читает INFORMATION_SCHEMA; источники без нее возвращают ошибку
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	if a.Schema != "" {
		return a.QueryNames(ctx, `
			SELECT TABLE_NAME
			FROM INFORMATION_SCHEMA.TABLES
			WHERE TABLE_SCHEMA = ?
			ORDER BY TABLE_NAME
		`, a.Schema)
	}
	return a.QueryNames(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		ORDER BY TABLE_NAME
	`)
}
