package source

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/processors"
)

func init() {
	gob.Register(time.Time{})
}

// CacheOptions configures the Redis read-through cache.
type CacheOptions struct {
	// Prefix is prepended to every key: <prefix>:dataset:<name>.
	Prefix string
	// TTL of a cached dataset. Zero keeps entries until evicted.
	TTL time.Duration
	// Level is the zstd level for stored entries.
	Level int
	// Logger receives cache errors; defaults to the global logger.
	Logger *zerolog.Logger
}

// CachedSource serves datasets from Redis and falls through to the wrapped
// source on a miss, a corrupt entry or a Redis failure.
type CachedSource struct {
	src    Source
	rdb    *redis.Client
	opts   CacheOptions
	logger zerolog.Logger
}

// cacheEntry is the stored envelope: Payload is zstd(gob(rows)).
type cacheEntry struct {
	Checksum string
	Payload  []byte
}

type cachedRow struct {
	Keys   []string
	Values []dataset.Value
}

// Cached wraps src with a Redis read-through cache.
func Cached(src Source, rdb *redis.Client, opts CacheOptions) *CachedSource {
	if opts.Prefix == "" {
		opts.Prefix = "tdtpview"
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &CachedSource{
		src:    src,
		rdb:    rdb,
		opts:   opts,
		logger: logger.With().Str("component", "dataset_cache").Logger(),
	}
}

// Key returns the Redis key for a dataset.
func (c *CachedSource) Key(name string) string {
	return c.opts.Prefix + ":dataset:" + name
}

// FetchAll returns the cached rows or fetches and stores them.
// Fetch errors are returned as is and never cached.
func (c *CachedSource) FetchAll(ctx context.Context, name string) ([]dataset.Row, error) {
	key := c.Key(name)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		rows, decErr := decodeEntry(data)
		if decErr == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			return rows, nil
		}
		cacheLookups.WithLabelValues("corrupt").Inc()
		c.logger.Warn().Err(decErr).Str("dataset", name).Msg("discarding corrupt cache entry")
	case errors.Is(err, redis.Nil):
		cacheLookups.WithLabelValues("miss").Inc()
	default:
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("dataset", name).Msg("cache read failed, fetching from source")
	}

	rows, err := c.src.FetchAll(ctx, name)
	if err != nil {
		return nil, err
	}

	encoded, err := encodeEntry(rows, c.opts.Level)
	if err != nil {
		c.logger.Warn().Err(err).Str("dataset", name).Msg("cache encode failed")
		return rows, nil
	}
	if err := c.rdb.Set(ctx, key, encoded, c.opts.TTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("dataset", name).Msg("cache write failed")
	}

	return rows, nil
}

// Invalidate removes a cached dataset so the next fetch hits the source.
func (c *CachedSource) Invalidate(ctx context.Context, name string) error {
	if err := c.rdb.Del(ctx, c.Key(name)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", name, err)
	}
	return nil
}

func encodeEntry(rows []dataset.Row, level int) ([]byte, error) {
	out := make([]cachedRow, len(rows))
	for i, r := range rows {
		keys := r.Keys()
		out[i] = cachedRow{Keys: keys, Values: r.Values(keys)}
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	payload, err := processors.Compress(raw.Bytes(), level)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	entry := cacheEntry{Checksum: processors.ComputeChecksum(payload), Payload: payload}
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) ([]dataset.Row, error) {
	var entry cacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if err := processors.ValidateChecksum(entry.Payload, entry.Checksum); err != nil {
		return nil, err
	}

	raw, err := processors.Decompress(entry.Payload)
	if err != nil {
		return nil, err
	}

	var stored []cachedRow
	if len(raw) > 0 {
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&stored); err != nil {
			return nil, fmt.Errorf("failed to decode rows: %w", err)
		}
	}

	rows := make([]dataset.Row, len(stored))
	for i, r := range stored {
		rows[i] = dataset.NewRow(r.Keys, r.Values)
	}
	return rows, nil
}
