// Package hypothesis is the persisted hypothesis graph.
//
// Hypotheses, their ordered "depends on" edges, evidence, refutations,
// watchers and the activity feed live in one SQLite database. Writes go
// through Store.Update, which runs a callback inside a single immediate
// transaction so read-then-write sequences (max order + 1, delete across
// five tables) never interleave with another writer.
package hypothesis

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level var so tests can control timestamps.
var timeNow = time.Now

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir     string
	DBPath      string // when set, used instead of DataDir/hypograph.db
	BusyTimeout time.Duration
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:     filepath.Join(home, ".hypograph"),
		BusyTimeout: 5 * time.Second,
	}
}

// Path returns the database file location for the config.
func (c Config) Path() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "hypograph.db")
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the hypothesis graph persistence layer backed by SQLite.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type storeHooks struct {
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		beginTx: func(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
			return db.BeginTx(ctx, nil)
		},
		commit: func(tx *sql.Tx) error {
			return tx.Commit()
		},
	}
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens (creating if needed) the database described by cfg and runs
// migrations.
//
// Pragmas go in the DSN so every pooled connection gets them. _txlock=immediate
// makes BEGIN take the write lock up front: two concurrent "max order + 1"
// inserts under the same parent serialize instead of both reading the same max.
func New(cfg Config) (*Store, error) {
	path := cfg.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("hypothesis: create data dir: %w", err)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)&_txlock=immediate",
		path, busy.Milliseconds(),
	)

	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("hypothesis: open database: %w", err)
	}

	s := &Store{db: db, cfg: cfg, hooks: defaultStoreHooks()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("hypothesis: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Read returns a Queries bound to the connection pool, outside any
// transaction. Use it for reads only.
func (s *Store) Read() *Queries {
	return &Queries{c: s.db}
}

// Update runs fn inside one transaction. If fn returns an error nothing it
// wrote is kept and the error is returned unchanged.
func (s *Store) Update(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&Queries{c: tx}); err != nil {
		return err
	}

	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Queries carries every SQL operation. It is bound either to the pool
// (Store.Read) or to a transaction (inside Store.Update).
type Queries struct {
	c conn
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT    NOT NULL,
			email      TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS hypotheses (
			id                                  TEXT PRIMARY KEY,
			statement                           TEXT    NOT NULL,
			description                         TEXT    NOT NULL DEFAULT '',
			confidence                          INTEGER NOT NULL DEFAULT 50 CHECK (confidence BETWEEN 0 AND 100),
			confidence_mode                     TEXT    NOT NULL DEFAULT 'auto' CHECK (confidence_mode IN ('auto', 'manual')),
			tags                                TEXT    NOT NULL DEFAULT '[]',
			sort_order                          INTEGER NOT NULL DEFAULT 0,
			is_archived                         INTEGER NOT NULL DEFAULT 0,
			owner_id                            TEXT,
			owner_name                          TEXT,
			content_updated_at                  INTEGER NOT NULL,
			graph_x                             REAL,
			graph_y                             REAL,
			exec_summary                        TEXT,
			exec_summary_generated_at           INTEGER,
			validation_suggestions              TEXT,
			validation_suggestions_generated_at INTEGER,
			created_at                          INTEGER NOT NULL,
			updated_at                          INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_hyp_order    ON hypotheses(sort_order, created_at);
		CREATE INDEX IF NOT EXISTS idx_hyp_archived ON hypotheses(is_archived);

		CREATE TABLE IF NOT EXISTS hypothesis_edges (
			id         TEXT PRIMARY KEY,
			parent_id  TEXT    NOT NULL,
			child_id   TEXT    NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			label      TEXT,
			created_at INTEGER NOT NULL,
			CHECK (parent_id <> child_id),
			FOREIGN KEY (parent_id) REFERENCES hypotheses(id) ON DELETE CASCADE,
			FOREIGN KEY (child_id)  REFERENCES hypotheses(id) ON DELETE CASCADE
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_edge_unique ON hypothesis_edges(parent_id, child_id);
		CREATE INDEX IF NOT EXISTS idx_edge_child         ON hypothesis_edges(child_id);

		CREATE TABLE IF NOT EXISTS evidence (
			id            TEXT PRIMARY KEY,
			hypothesis_id TEXT    NOT NULL,
			direction     TEXT    NOT NULL CHECK (direction IN ('SUPPORTS', 'WEAKLY_SUPPORTS', 'NEUTRAL', 'WEAKLY_REFUTES', 'REFUTES')),
			strength      INTEGER NOT NULL,
			quality       INTEGER NOT NULL DEFAULT 3,
			summary       TEXT    NOT NULL,
			source_url    TEXT,
			owner_name    TEXT,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL,
			FOREIGN KEY (hypothesis_id) REFERENCES hypotheses(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_evidence_hyp ON evidence(hypothesis_id);

		CREATE TABLE IF NOT EXISTS refutations (
			id            TEXT PRIMARY KEY,
			hypothesis_id TEXT    NOT NULL,
			type          TEXT    NOT NULL,
			summary       TEXT    NOT NULL,
			proposed_test TEXT,
			impact        TEXT,
			created_at    INTEGER NOT NULL,
			FOREIGN KEY (hypothesis_id) REFERENCES hypotheses(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_refutation_hyp ON refutations(hypothesis_id);

		CREATE TABLE IF NOT EXISTS watchers (
			hypothesis_id TEXT    NOT NULL,
			user_id       TEXT    NOT NULL,
			created_at    INTEGER NOT NULL,
			PRIMARY KEY (hypothesis_id, user_id),
			FOREIGN KEY (hypothesis_id) REFERENCES hypotheses(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS activity_logs (
			id            TEXT PRIMARY KEY,
			hypothesis_id TEXT    NOT NULL,
			actor_id      TEXT,
			actor_name    TEXT,
			type          TEXT    NOT NULL,
			summary       TEXT    NOT NULL,
			metadata      TEXT    NOT NULL DEFAULT '{}',
			created_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_activity_hyp ON activity_logs(hypothesis_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}
