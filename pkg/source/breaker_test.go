package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/resilience"
)

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	cfg := resilience.DefaultConfig("source")
	cfg.MaxFailures = 2
	cfg.Timeout = time.Hour
	cb, err := resilience.New(cfg)
	if err != nil {
		t.Fatalf("resilience.New: %v", err)
	}

	boom := errors.New("db down")
	calls := 0
	src := WithBreaker(Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		calls++
		return nil, boom
	}), cb)

	for i := 0; i < 2; i++ {
		if _, err := src.FetchAll(context.Background(), "widgets"); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected source error, got %v", i, err)
		}
	}

	_, err = src.FetchAll(context.Background(), "widgets")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Open circuit must not call source, calls=%d", calls)
	}
}

func TestWithBreaker_PassesRows(t *testing.T) {
	cb, err := resilience.New(resilience.DefaultConfig("source"))
	if err != nil {
		t.Fatalf("resilience.New: %v", err)
	}
	src := WithBreaker(Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		return widgets(), nil
	}), cb)

	rows, err := src.FetchAll(context.Background(), "widgets")
	if err != nil || len(rows) != 2 {
		t.Errorf("rows=%d err=%v", len(rows), err)
	}
}
