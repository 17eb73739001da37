package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

func openTestDB(t *testing.T) adapters.Adapter {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "viewer.db")
	adapter, err := adapters.New(ctx, adapters.Config{Type: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	t.Cleanup(func() { adapter.Close(ctx) })

	db := adapter.(*Adapter).DB
	stmts := []string{
		`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT, price REAL, note TEXT)`,
		`INSERT INTO widgets (id, name, price, note) VALUES (1, 'bolt', 0.25, NULL)`,
		`INSERT INTO widgets (id, name, price, note) VALUES (2, 'nut', 0.1, 'metric')`,
		`CREATE TABLE empty_table (a INTEGER, b TEXT)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			t.Fatalf("Failed to exec %q: %v", s, err)
		}
	}
	return adapter
}

func TestAdapter_FetchAll(t *testing.T) {
	adapter := openTestDB(t)

	rows, err := adapter.FetchAll(context.Background(), "widgets")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	keys := rows[0].Keys()
	want := []string{"id", "name", "price", "note"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys = %v, want %v", keys, want)
		}
	}

	if v, _ := rows[0].Get("id"); v != int64(1) {
		t.Errorf("id = %#v, want int64(1)", v)
	}
	if v, _ := rows[0].Get("price"); v != 0.25 {
		t.Errorf("price = %#v, want 0.25", v)
	}
	if v, ok := rows[0].Get("note"); !ok || v != nil {
		t.Errorf("note = %#v (present %v), want NULL", v, ok)
	}

	schema := dataset.Infer(rows)
	if len(schema) != 4 || schema[1].Field != "name" {
		t.Errorf("Unexpected schema: %+v", schema)
	}
}

func TestAdapter_FetchAllEmpty(t *testing.T) {
	adapter := openTestDB(t)

	rows, err := adapter.FetchAll(context.Background(), "empty_table")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", rows)
	}
}

func TestAdapter_FetchAllUnknownTable(t *testing.T) {
	adapter := openTestDB(t)

	if _, err := adapter.FetchAll(context.Background(), "missing"); err == nil {
		t.Error("Expected error for unknown table")
	}
	if _, err := adapter.FetchAll(context.Background(), `w"; DROP TABLE widgets`); !errors.Is(err, adapters.ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
}

func TestAdapter_GetTableNames(t *testing.T) {
	adapter := openTestDB(t)

	names, err := adapter.GetTableNames(context.Background())
	if err != nil {
		t.Fatalf("GetTableNames: %v", err)
	}
	if len(names) != 2 || names[0] != "empty_table" || names[1] != "widgets" {
		t.Errorf("names = %v", names)
	}
	if adapter.GetDatabaseType() != "sqlite" {
		t.Errorf("GetDatabaseType = %s", adapter.GetDatabaseType())
	}
}

func TestDSNWithPragmas(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"viewer.db", "viewer.db?_pragma=busy_timeout(5000)"},
		{"file:app.db?mode=ro", "file:app.db?mode=ro&_pragma=busy_timeout(5000)"},
		{"app.db?_pragma=busy_timeout(100)", "app.db?_pragma=busy_timeout(100)"},
	}
	for _, tt := range tests {
		if got := dsnWithPragmas(tt.in); got != tt.want {
			t.Errorf("dsnWithPragmas(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAdapter_Memory(t *testing.T) {
	ctx := context.Background()
	adapter, err := adapters.New(ctx, adapters.Config{Type: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer adapter.Close(ctx)

	db := adapter.(*Adapter).DB
	if _, err := db.ExecContext(ctx, `CREATE TABLE t (a INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	names, err := adapter.GetTableNames(ctx)
	if err != nil || len(names) != 1 || names[0] != "t" {
		t.Errorf("GetTableNames = %v, %v; want [t]", names, err)
	}
}
