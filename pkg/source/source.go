// Package source provides the dataset fetch capability consumed by the viewer
// controller, plus read-through cache and circuit-breaker decorators.
package source

import (
	"context"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

// Source fetches the full contents of a named dataset.
// No pagination, filter or ordering parameters are sent.
type Source interface {
	FetchAll(ctx context.Context, name string) ([]dataset.Row, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, name string) ([]dataset.Row, error)

// FetchAll calls f.
func (f Func) FetchAll(ctx context.Context, name string) ([]dataset.Row, error) {
	return f(ctx, name)
}

// FromAdapter exposes a connected adapter as a Source.
func FromAdapter(a adapters.Adapter) Source {
	return Func(a.FetchAll)
}
