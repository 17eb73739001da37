package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog/log"
)

// devEnv is the self-contained dev setup: an in-process Redis and a seeded
// SQLite database under a temp directory.
type devEnv struct {
	redis *miniredis.Miniredis
	dir   string
}

// devSeed creates a few tables covering the viewer states: rows of mixed
// kinds, an empty table and a view.
var devSeed = []string{
	`CREATE TABLE widgets (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price REAL,
		in_stock INTEGER,
		created_at TEXT
	)`,
	`INSERT INTO widgets (id, name, price, in_stock, created_at) VALUES
		(1, 'Sprocket', 9.99, 1, '2024-01-15 10:00:00'),
		(2, 'Gear', 4.5, 0, '2024-02-01 08:30:00'),
		(3, 'Flange', NULL, 1, '2024-03-10 17:45:00'),
		(4, 'Bolt', 0.25, 1, NULL),
		(5, 'Washer', 0.1, 0, '2024-03-11 09:00:00')`,
	`CREATE TABLE orders (
		order_id INTEGER PRIMARY KEY,
		customer TEXT,
		email TEXT,
		widget_id INTEGER,
		qty INTEGER,
		total REAL
	)`,
	`INSERT INTO orders (order_id, customer, email, widget_id, qty, total) VALUES
		(100, 'Alice', 'alice@example.com', 1, 3, 29.97),
		(101, 'Bob', 'bob@example.com', 2, 10, 45.0),
		(102, 'Carol', NULL, 4, 200, 50.0)`,
	`CREATE TABLE archive (id INTEGER PRIMARY KEY, note TEXT)`,
	`CREATE VIEW big_orders AS SELECT order_id, customer, total FROM orders WHERE total >= 45`,
}

// setupDev starts miniredis, seeds dev.db and points cfg at both.
func setupDev(ctx context.Context, cfg *Config) (*devEnv, error) {
	dir, err := os.MkdirTemp("", "tdtpview-dev-*")
	if err != nil {
		return nil, fmt.Errorf("dev: temp dir: %w", err)
	}

	dbPath := filepath.Join(dir, "dev.db")
	if err := seedSQLite(ctx, dbPath); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	mr, err := miniredis.Run()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("dev: miniredis: %w", err)
	}

	cfg.Source.Type = "sqlite"
	cfg.Source.DSN = "file:" + dbPath
	if cfg.Source.Dataset == "" {
		cfg.Source.Dataset = "widgets"
	}
	cfg.Cache.Enabled = true
	cfg.Cache.Redis = RedisConfig{Addr: mr.Addr()}
	cfg.ResultLog.Enabled = true
	cfg.ResultLog.Address = mr.Addr()
	cfg.Export.Dir = filepath.Join(dir, "exports")
	cfg.Export.Mask = map[string]string{"email": "partial"}

	log.Info().Str("dir", dir).Str("redis", mr.Addr()).Msg("dev environment ready")
	return &devEnv{redis: mr, dir: dir}, nil
}

func seedSQLite(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return fmt.Errorf("dev: open %s: %w", path, err)
	}
	defer db.Close()

	for _, stmt := range devSeed {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dev: seed: %w", err)
		}
	}
	return nil
}

func (d *devEnv) Close() {
	d.redis.Close()
	_ = os.RemoveAll(d.dir)
}
