package grid

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tdtp-viewer/pkg/export"
)

func TestExportDataAsExcel(t *testing.T) {
	g, exp := mounted(t)
	if err := g.SetFilter(Filter{Field: "price", Op: OpNotBlank}); err != nil {
		t.Fatal(err)
	}
	if err := g.SetSort(SortKey{Field: "id", Direction: Desc}); err != nil {
		t.Fatal(err)
	}
	if err := g.MoveColumn("name", 0); err != nil {
		t.Fatal(err)
	}

	if err := g.ExportDataAsExcel(context.Background()); err != nil {
		t.Fatalf("ExportDataAsExcel: %v", err)
	}
	a := exp.last(t)
	if a.Format != export.FormatXLSX || !strings.HasSuffix(a.FileName, ".xlsx") || a.ContentType != export.ContentTypeXLSX {
		t.Errorf("artifact = %+v", a)
	}

	f, err := excelize.OpenReader(bytes.NewReader(a.Body))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "widgets" {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows("widgets")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	wantHeader := []string{"name", "id", "price", "made"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	// id desc, row 2 (NULL price) filtered out
	for i, want := range []string{"4", "3", "1"} {
		if rows[i+1][1] != want {
			t.Errorf("row %d id = %q, want %q", i+1, rows[i+1][1], want)
		}
	}

	typ, err := f.GetCellType("widgets", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("id cell stored as text, type %v", typ)
	}

	style, err := f.GetCellStyle("widgets", "A1")
	if err != nil {
		t.Fatal(err)
	}
	if style == 0 {
		t.Error("header has no style")
	}

	// washer has a NULL date: the cell stays empty
	if v, _ := f.GetCellValue("widgets", "D3"); v != "" {
		t.Errorf("NULL cell = %q", v)
	}

	width, err := f.GetColWidth("widgets", "A")
	if err != nil {
		t.Fatal(err)
	}
	if width != columnWidth {
		t.Errorf("column width = %v", width)
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"widgets", "widgets"},
		{"dbo.Orders", "dbo.Orders"},
		{"a/b:c", "a_b_c"},
		{"[x]*?", "_x___"},
		{"", "Sheet1"},
		{"'quoted'", "quoted"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for _, tt := range tests {
		if got := SheetName(tt.in); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for in, want := range tests {
		if got := columnName(in); got != want {
			t.Errorf("columnName(%d) = %q, want %q", in, got, want)
		}
	}
}
