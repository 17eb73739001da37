package viewer

import (
	"context"
	"errors"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// ErrRendererDetached is returned by an export handle whose renderer was
// unmounted. The controller treats it as an unavailable export.
var ErrRendererDetached = errors.New("renderer detached")

// ExportHandle is the export capability a mounted renderer hands back.
// Both operations serialize the currently visible rows in the current column order.
type ExportHandle interface {
	ExportDataAsCsv(ctx context.Context) error
	ExportDataAsExcel(ctx context.Context) error
}

// Renderer displays a loaded dataset.
//
// Mount is called only for a non-empty result. The renderer calls ready once
// its export handle can be used; ready may be called synchronously from Mount.
type Renderer interface {
	Mount(name string, schema dataset.Schema, rows []dataset.Row, ready func(ExportHandle))
	Unmount()
}

type nopRenderer struct{}

func (nopRenderer) Mount(string, dataset.Schema, []dataset.Row, func(ExportHandle)) {}
func (nopRenderer) Unmount()                                                        {}
