package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
)

func widgets() []dataset.Row {
	when := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	return []dataset.Row{
		dataset.NewRow([]string{"id", "name", "price", "added"}, []dataset.Value{1, "bolt", 0.25, when}),
		dataset.NewRow([]string{"id", "name", "price", "added"}, []dataset.Value{2, "nut", nil, when}),
	}
}

func newCache(t *testing.T, src Source) (*CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return Cached(src, rdb, CacheOptions{Prefix: "test", TTL: time.Minute}), mr
}

func TestCached_ReadThrough(t *testing.T) {
	var calls atomic.Int32
	src := Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		calls.Add(1)
		return widgets(), nil
	})
	cache, mr := newCache(t, src)
	ctx := context.Background()

	first, err := cache.FetchAll(ctx, "widgets")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	second, err := cache.FetchAll(ctx, "widgets")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("Expected 1 source call, got %d", calls.Load())
	}
	if !mr.Exists("test:dataset:widgets") {
		t.Error("Expected cache key test:dataset:widgets")
	}
	if ttl := mr.TTL("test:dataset:widgets"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	if len(second) != len(first) {
		t.Fatalf("Cached rows = %d, want %d", len(second), len(first))
	}
	keys := second[0].Keys()
	if len(keys) != 4 || keys[3] != "added" {
		t.Errorf("Key order lost: %v", keys)
	}
	if v, _ := second[0].Get("id"); v != int64(1) {
		t.Errorf("id = %#v", v)
	}
	if v, _ := second[0].Get("added"); !v.(time.Time).Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("added = %#v", v)
	}
	if v, ok := second[1].Get("price"); !ok || v != nil {
		t.Errorf("NULL lost: %#v", v)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	boom := errors.New("connection refused")
	var calls atomic.Int32
	src := Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		calls.Add(1)
		return nil, boom
	})
	cache, mr := newCache(t, src)

	for i := 0; i < 2; i++ {
		if _, err := cache.FetchAll(context.Background(), "widgets"); !errors.Is(err, boom) {
			t.Fatalf("Expected source error, got %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 source calls, got %d", calls.Load())
	}
	if mr.Exists("test:dataset:widgets") {
		t.Error("Errors must not be cached")
	}
}

func TestCached_CorruptEntryIsMiss(t *testing.T) {
	var calls atomic.Int32
	src := Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		calls.Add(1)
		return widgets(), nil
	})
	cache, mr := newCache(t, src)

	mr.Set("test:dataset:widgets", "garbage")

	rows, err := cache.FetchAll(context.Background(), "widgets")
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 || calls.Load() != 1 {
		t.Errorf("Expected fallthrough to source, rows=%d calls=%d", len(rows), calls.Load())
	}
}

func TestCached_RedisDownFallsThrough(t *testing.T) {
	src := Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		return widgets(), nil
	})
	cache, mr := newCache(t, src)
	mr.Close()

	rows, err := cache.FetchAll(context.Background(), "widgets")
	if err != nil {
		t.Fatalf("FetchAll with redis down: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}
}

func TestCached_EmptyDataset(t *testing.T) {
	src := Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		return []dataset.Row{}, nil
	})
	cache, _ := newCache(t, src)
	ctx := context.Background()

	if _, err := cache.FetchAll(ctx, "empty"); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	rows, err := cache.FetchAll(ctx, "empty")
	if err != nil {
		t.Fatalf("FetchAll (cached): %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("Expected empty non-nil rows, got %#v", rows)
	}
}

func TestCached_Invalidate(t *testing.T) {
	var calls atomic.Int32
	src := Func(func(ctx context.Context, name string) ([]dataset.Row, error) {
		calls.Add(1)
		return widgets(), nil
	})
	cache, _ := newCache(t, src)
	ctx := context.Background()

	cache.FetchAll(ctx, "widgets")
	if err := cache.Invalidate(ctx, "widgets"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	cache.FetchAll(ctx, "widgets")

	if calls.Load() != 2 {
		t.Errorf("Expected 2 source calls after invalidate, got %d", calls.Load())
	}
}
