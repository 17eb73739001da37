package source

import (
	"context"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/resilience"
)

// WithBreaker guards src with a circuit breaker. While the circuit is open
// FetchAll fails immediately with resilience.ErrCircuitOpen.
func WithBreaker(src Source, cb *resilience.CircuitBreaker) Source {
	return Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		var rows []dataset.Row
		err := cb.Execute(ctx, func(ctx context.Context) error {
			var err error
			rows, err = src.FetchAll(ctx, name)
			return err
		})
		if err != nil {
			return nil, err
		}
		return rows, nil
	})
}
