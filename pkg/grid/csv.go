package grid

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/export"
)

// ExportDataAsCsv exports the visible rows of the current mount in column
// order. NULL is an empty cell.
func (g *Grid) ExportDataAsCsv(ctx context.Context) error {
	return g.exportCSV(ctx, 0)
}

func (g *Grid) exportCSV(ctx context.Context, epoch uint64) error {
	t, err := g.snapshot(ctx, epoch)
	if err != nil {
		return err
	}
	body, err := encodeCSV(t)
	if err != nil {
		return err
	}
	return g.deliver(ctx, t, export.FormatCSV, body)
}

func encodeCSV(t *table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.columns))
	for i, row := range t.cells {
		for j, v := range row {
			if s, ok := t.override(i, j); ok {
				record[j] = s
				continue
			}
			record[j] = dataset.FormatValue(v)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
