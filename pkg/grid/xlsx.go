package grid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/export"
)

const (
	maxSheetName = 31
	columnWidth  = 15

	// built-in number formats
	numFmtDate     = 14 // m/d/yy
	numFmtDatetime = 22 // m/d/yy h:mm
)

// ExportDataAsExcel exports the visible rows as a single-sheet workbook named
// after the dataset, with a styled header row and typed cells.
func (g *Grid) ExportDataAsExcel(ctx context.Context) error {
	return g.exportXLSX(ctx, 0)
}

func (g *Grid) exportXLSX(ctx context.Context, epoch uint64) error {
	t, err := g.snapshot(ctx, epoch)
	if err != nil {
		return err
	}
	body, err := encodeXLSX(t)
	if err != nil {
		return err
	}
	return g.deliver(ctx, t, export.FormatXLSX, body)
}

func encodeXLSX(t *table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(t.name)
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDate})
	if err != nil {
		return nil, fmt.Errorf("date style: %w", err)
	}
	datetimeStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDatetime})
	if err != nil {
		return nil, fmt.Errorf("datetime style: %w", err)
	}

	for col, field := range t.columns {
		cell := columnName(col+1) + "1"
		if err := f.SetCellValue(sheet, cell, field); err != nil {
			return nil, fmt.Errorf("write header %s: %w", field, err)
		}
	}
	if len(t.columns) > 0 {
		last := columnName(len(t.columns)) + "1"
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	for i, row := range t.cells {
		rowNum := strconv.Itoa(i + 2)
		for j, v := range row {
			cell := columnName(j+1) + rowNum

			if s, ok := t.override(i, j); ok {
				if err := f.SetCellStr(sheet, cell, s); err != nil {
					return nil, fmt.Errorf("write %s: %w", cell, err)
				}
				continue
			}

			if v == nil {
				continue
			}
			if err := f.SetCellValue(sheet, cell, excelValue(v)); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
			if tm, ok := v.(time.Time); ok {
				style := datetimeStyle
				if isDate(tm) {
					style = dateStyle
				}
				if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
					return nil, fmt.Errorf("style %s: %w", cell, err)
				}
			}
		}
	}

	for col := range t.columns {
		name := columnName(col + 1)
		if err := f.SetColWidth(sheet, name, name, columnWidth); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// excelValue maps a normalized value onto what excelize stores natively.
func excelValue(v dataset.Value) any {
	switch x := v.(type) {
	case []byte:
		return dataset.FormatValue(x)
	default:
		return x
	}
}

func isDate(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// SheetName applies Excel sheet naming rules: no []:*?/\ characters, at most
// 31 characters, not empty.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")

	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	if strings.TrimSpace(name) == "" {
		return "Sheet1"
	}
	return name
}

// columnName converts a 1-based column index to letters (1 -> A, 27 -> AA).
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
