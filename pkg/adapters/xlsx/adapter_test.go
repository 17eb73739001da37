package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Orders")
	f.SetSheetRow("Orders", "A1", &[]any{"id (INTEGER) *", "customer", "amount", "paid"})
	f.SetSheetRow("Orders", "A2", &[]any{1, "ACME", 12.5, true})
	f.SetSheetRow("Orders", "A3", &[]any{2, "Globex"})

	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	f.SetSheetRow("Empty", "A1", &[]any{"a", "b"})

	path := filepath.Join(t.TempDir(), "orders.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestAdapter_FetchAll(t *testing.T) {
	ctx := context.Background()
	adapter, err := adapters.New(ctx, adapters.Config{Type: "xlsx", DSN: writeWorkbook(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer adapter.Close(ctx)

	names, err := adapter.GetTableNames(ctx)
	if err != nil {
		t.Fatalf("GetTableNames: %v", err)
	}
	if len(names) != 2 || names[0] != "Orders" || names[1] != "Empty" {
		t.Errorf("names = %v", names)
	}

	rows, err := adapter.FetchAll(ctx, "Orders")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	keys := rows[0].Keys()
	if len(keys) != 4 || keys[0] != "id" || keys[3] != "paid" {
		t.Errorf("keys = %v", keys)
	}
	if v, _ := rows[0].Get("id"); v != int64(1) {
		t.Errorf("id = %#v", v)
	}
	if v, _ := rows[0].Get("amount"); v != 12.5 {
		t.Errorf("amount = %#v", v)
	}
	if v, _ := rows[0].Get("paid"); v != true {
		t.Errorf("paid = %#v", v)
	}
	if v, ok := rows[1].Get("amount"); !ok || v != nil {
		t.Errorf("short row amount = %#v (present %v)", v, ok)
	}

	empty, err := adapter.FetchAll(ctx, "Empty")
	if err != nil {
		t.Fatalf("FetchAll(Empty): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no rows, got %d", len(empty))
	}

	if _, err := adapter.FetchAll(ctx, "Missing"); err == nil {
		t.Error("Expected error for missing sheet")
	}
}

func TestParseHeader(t *testing.T) {
	tests := map[string]string{
		"customer_name (TEXT)": "customer_name",
		"id (INTEGER) *":       "id",
		"plain":                "plain",
		"  spaced  ":           "spaced",
	}
	for in, want := range tests {
		if got := parseHeader(in); got != want {
			t.Errorf("parseHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAdapter_HeaderAfterBlankRows(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Report")
	f.SetSheetRow("Report", "A3", &[]any{"sku", "qty"})
	f.SetSheetRow("Report", "A4", &[]any{"B-1", 3})
	if _, err := f.NewSheet("Blank"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	f.SetCellValue("Blank", "A2", "")
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	ctx := context.Background()
	adapter, err := adapters.New(ctx, adapters.Config{Type: "xlsx", DSN: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer adapter.Close(ctx)

	rows, err := adapter.FetchAll(ctx, "Report")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if keys := rows[0].Keys(); len(keys) != 2 || keys[0] != "sku" || keys[1] != "qty" {
		t.Errorf("keys = %v, want [sku qty]", keys)
	}
	if v, _ := rows[0].Get("qty"); v != int64(3) {
		t.Errorf("qty = %#v", v)
	}

	blank, err := adapter.FetchAll(ctx, "Blank")
	if err != nil {
		t.Fatalf("FetchAll(Blank): %v", err)
	}
	if len(blank) != 0 {
		t.Errorf("blank sheet gave %d rows", len(blank))
	}
}
