package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id          TEXT PRIMARY KEY,
	code        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	kind        INTEGER NOT NULL,
	unit        INTEGER NOT NULL,
	stock       REAL NOT NULL DEFAULT 0,
	min_stock   REAL NOT NULL DEFAULT 0,
	unit_cost   TEXT NOT NULL DEFAULT '0',
	sale_price  TEXT NOT NULL DEFAULT '0',
	loss_pct    REAL NOT NULL DEFAULT 0,
	cook_factor REAL NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS recipes (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL UNIQUE REFERENCES items(id),
	lines      TEXT NOT NULL DEFAULT '[]',
	method     TEXT NOT NULL DEFAULT '',
	photo_ref  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS production_orders (
	id                 TEXT PRIMARY KEY,
	number             INTEGER NOT NULL UNIQUE,
	created_at         TEXT NOT NULL,
	recipe_id          TEXT NOT NULL,
	product_id         TEXT NOT NULL,
	quantity           INTEGER NOT NULL,
	status             TEXT NOT NULL,
	note               TEXT NOT NULL DEFAULT '',
	consumed           TEXT NOT NULL DEFAULT '[]',
	shortages          TEXT NOT NULL DEFAULT '[]',
	lot_number         INTEGER NOT NULL DEFAULT 0,
	closed_at          TEXT,
	linked_purchase_id TEXT NOT NULL DEFAULT '',
	allow_insufficient INTEGER NOT NULL DEFAULT 0,
	archived           INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS purchase_orders (
	id                   TEXT PRIMARY KEY,
	number               INTEGER NOT NULL UNIQUE,
	created_at           TEXT NOT NULL,
	status               TEXT NOT NULL,
	note                 TEXT NOT NULL DEFAULT '',
	lines                TEXT NOT NULL DEFAULT '[]',
	source_production_id TEXT NOT NULL DEFAULT '',
	archived             INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sequences (
	kind TEXT PRIMARY KEY,
	last INTEGER NOT NULL DEFAULT 0
);
`

// Store wraps the SQLite handle shared by the repositories. modernc's pure
// Go driver serializes writes itself; one open handle with a small pool is
// enough for this workload.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database file and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const timeFormat = time.RFC3339Nano
