package export

import (
	"context"
	"sync"
)

type receiptKey struct{}

// Receipt collects the artifact delivered within one export call.
type Receipt struct {
	mu       sync.Mutex
	artifact *Artifact
}

// WithReceipt returns a context whose successful deliveries are recorded in the
// returned Receipt.
func WithReceipt(ctx context.Context) (context.Context, *Receipt) {
	r := &Receipt{}
	return context.WithValue(ctx, receiptKey{}, r), r
}

// Artifact returns the last delivered artifact, or nil when nothing was delivered.
func (r *Receipt) Artifact() *Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifact
}

func recordReceipt(ctx context.Context, a *Artifact) {
	r, ok := ctx.Value(receiptKey{}).(*Receipt)
	if !ok {
		return
	}
	r.mu.Lock()
	r.artifact = a
	r.mu.Unlock()
}
