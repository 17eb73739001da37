// Package grid is the in-process tabular renderer: it holds the mounted rows,
// applies client-side sort, filters and column order, and exports the visible
// rows as CSV or XLSX.
package grid

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/export"
	"github.com/ruslano69/tdtp-viewer/pkg/processors"
	"github.com/ruslano69/tdtp-viewer/pkg/viewer"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrNotSortable   = errors.New("column is not sortable")
	ErrNotFilterable = errors.New("column is not filterable")
)

// Exporter receives finished artifacts. *export.Pipeline implements it.
type Exporter interface {
	Deliver(ctx context.Context, a *export.Artifact) error
}

// Option configures a Grid.
type Option func(*Grid)

// WithRowProcessors runs chain over the text form of exported cells (masking).
// The grid view itself is never altered.
func WithRowProcessors(chain *processors.Chain) Option {
	return func(g *Grid) { g.chain = chain }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Grid) { g.logger = l }
}

// Grid renders one mounted dataset.
type Grid struct {
	exporter Exporter
	chain    *processors.Chain
	logger   zerolog.Logger

	mu      sync.RWMutex
	mounted bool
	epoch   uint64 // bumped by every Mount and Unmount
	name    string
	schema  dataset.Schema
	rows    []dataset.Row
	columns []string
	sort    []SortKey
	filters []Filter
}

var (
	_ viewer.Renderer     = (*Grid)(nil)
	_ viewer.ExportHandle = (*Grid)(nil)
)

// New creates an unmounted grid delivering exports to exporter.
func New(exporter Exporter, opts ...Option) *Grid {
	g := &Grid{exporter: exporter, logger: log.Logger}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With().Str("component", "grid").Logger()
	return g
}

// Mount implements viewer.Renderer. Sort, filters and column order start
// fresh for every mount. The handle passed to ready exports only this mount
// and reports viewer.ErrRendererDetached once the grid is unmounted or
// mounted again.
func (g *Grid) Mount(name string, schema dataset.Schema, rows []dataset.Row, ready func(viewer.ExportHandle)) {
	g.mu.Lock()
	g.epoch++
	epoch := g.epoch
	g.mounted = true
	g.name = name
	g.schema = schema.Clone()
	g.rows = rows
	g.columns = schema.Fields()
	g.sort = nil
	g.filters = nil
	g.mu.Unlock()

	g.logger.Debug().Str("dataset", name).Int("rows", len(rows)).Int("columns", len(schema)).
		Uint64("epoch", epoch).Msg("mounted")
	ready(&mountHandle{grid: g, epoch: epoch})
}

// mountHandle is the export handle of a single mount.
type mountHandle struct {
	grid  *Grid
	epoch uint64
}

func (h *mountHandle) ExportDataAsCsv(ctx context.Context) error {
	return h.grid.exportCSV(ctx, h.epoch)
}

func (h *mountHandle) ExportDataAsExcel(ctx context.Context) error {
	return h.grid.exportXLSX(ctx, h.epoch)
}

// Unmount implements viewer.Renderer.
func (g *Grid) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.epoch++
	g.mounted = false
	g.name = ""
	g.schema = nil
	g.rows = nil
	g.columns = nil
	g.sort = nil
	g.filters = nil
}

// Mounted reports whether a dataset is displayed.
func (g *Grid) Mounted() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mounted
}

// SetSort replaces the sort model. No keys clears sorting.
func (g *Grid) SetSort(keys ...SortKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.mounted {
		return viewer.ErrRendererDetached
	}

	normalized := make([]SortKey, 0, len(keys))
	for _, k := range keys {
		col, err := g.columnLocked(k.Field)
		if err != nil {
			return err
		}
		if !col.Sortable {
			return fmt.Errorf("%w: %s", ErrNotSortable, k.Field)
		}
		nk, err := k.normalize()
		if err != nil {
			return err
		}
		normalized = append(normalized, nk)
	}
	g.sort = normalized
	return nil
}

// SetFilter sets the filter for f.Field, replacing a previous one on that column.
func (g *Grid) SetFilter(f Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.mounted {
		return viewer.ErrRendererDetached
	}
	col, err := g.columnLocked(f.Field)
	if err != nil {
		return err
	}
	if !col.Filterable {
		return fmt.Errorf("%w: %s", ErrNotFilterable, f.Field)
	}

	for i := range g.filters {
		if g.filters[i].Field == f.Field {
			g.filters[i] = f
			return nil
		}
	}
	g.filters = append(g.filters, f)
	return nil
}

// ClearFilter removes the filter on field, if any.
func (g *Grid) ClearFilter(field string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filters = slices.DeleteFunc(g.filters, func(f Filter) bool { return f.Field == field })
}

// ClearFilters removes all filters.
func (g *Grid) ClearFilters() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filters = nil
}

// MoveColumn moves field to position index in the column order.
func (g *Grid) MoveColumn(field string, index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.mounted {
		return viewer.ErrRendererDetached
	}

	from := slices.Index(g.columns, field)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	if index < 0 || index >= len(g.columns) {
		return fmt.Errorf("column index %d out of range [0, %d)", index, len(g.columns))
	}

	cols := slices.Delete(slices.Clone(g.columns), from, from+1)
	g.columns = slices.Insert(cols, index, field)
	return nil
}

// Columns returns the current column order.
func (g *Grid) Columns() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.columns)
}

// VisibleRows returns the mounted rows after filters and sort.
func (g *Grid) VisibleRows() []dataset.Row {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.visibleLocked()
}

// View is a display snapshot. Rows carry only the displayed columns, in
// column order; fields missing from a row are null.
type View struct {
	Mounted bool          `json:"mounted"`
	Dataset string        `json:"dataset"`
	Columns []string      `json:"columns"`
	Rows    []dataset.Row `json:"rows"`
	Total   int           `json:"total"`
	Visible int           `json:"visible"`
	Sort    []SortKey     `json:"sort"`
	Filters []Filter      `json:"filters"`
}

// View returns the current display snapshot.
func (g *Grid) View() View {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v := View{
		Mounted: g.mounted,
		Dataset: g.name,
		Columns: slices.Clone(g.columns),
		Rows:    []dataset.Row{},
		Total:   len(g.rows),
		Sort:    slices.Clone(g.sort),
		Filters: slices.Clone(g.filters),
	}
	if v.Columns == nil {
		v.Columns = []string{}
	}
	if v.Sort == nil {
		v.Sort = []SortKey{}
	}
	if v.Filters == nil {
		v.Filters = []Filter{}
	}

	for _, r := range g.visibleLocked() {
		v.Rows = append(v.Rows, dataset.NewRow(v.Columns, r.Values(v.Columns)))
	}
	v.Visible = len(v.Rows)
	return v
}

func (g *Grid) visibleLocked() []dataset.Row {
	out := make([]dataset.Row, 0, len(g.rows))
	for _, r := range g.rows {
		if matchAll(r, g.filters) {
			out = append(out, r)
		}
	}
	sortRows(out, g.sort)
	return out
}

func (g *Grid) columnLocked(field string) (dataset.Column, error) {
	i := g.schema.Index(field)
	if i < 0 {
		return dataset.Column{}, fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	return g.schema[i], nil
}

// table is the export input: visible rows as cells in column order.
type table struct {
	name    string
	columns []string
	cells   [][]dataset.Value
	masked  [][]string // non-nil when row processors changed the text form
}

// snapshot captures the visible rows. A non-zero epoch must match the
// current mount.
func (g *Grid) snapshot(ctx context.Context, epoch uint64) (*table, error) {
	g.mu.RLock()
	if !g.mounted || (epoch != 0 && epoch != g.epoch) {
		g.mu.RUnlock()
		return nil, viewer.ErrRendererDetached
	}
	t := &table{name: g.name, columns: slices.Clone(g.columns)}
	for _, r := range g.visibleLocked() {
		t.cells = append(t.cells, r.Values(t.columns))
	}
	g.mu.RUnlock()

	if g.chain.Len() == 0 {
		return t, nil
	}

	text := make([][]string, len(t.cells))
	for i, row := range t.cells {
		text[i] = make([]string, len(row))
		for j, v := range row {
			text[i][j] = dataset.FormatValue(v)
		}
	}
	processed, err := g.chain.Process(ctx, t.columns, text)
	if err != nil {
		return nil, fmt.Errorf("process export rows: %w", err)
	}
	t.masked = processed
	return t, nil
}

// override returns the processed text for cell (i, j) when processors changed it.
func (t *table) override(i, j int) (string, bool) {
	if t.masked == nil || i >= len(t.masked) || j >= len(t.masked[i]) {
		return "", false
	}
	s := t.masked[i][j]
	if s == dataset.FormatValue(t.cells[i][j]) {
		return "", false
	}
	return s, true
}

func (g *Grid) deliver(ctx context.Context, t *table, format string, body []byte) error {
	a := export.NewArtifact(t.name, format, body)
	a.Rows = len(t.cells)
	a.Columns = t.columns

	if err := g.exporter.Deliver(ctx, a); err != nil {
		return err
	}
	g.logger.Debug().Str("dataset", t.name).Str("format", format).Int("rows", a.Rows).
		Str("artifact", a.ID).Msg("export handed to pipeline")
	return nil
}
