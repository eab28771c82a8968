// Package store persists teams, check-ins, sessions and responses in
// SQLite. It is the engine's inbound accessor: daily aggregates per team
// and all responses per session.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level var so tests can freeze timestamps.
var timeNow = time.Now

// ErrNotFound is returned when a team or session does not exist.
var ErrNotFound = errors.New("not found")

// DBFile is the database file name inside the data directory.
const DBFile = "teampulse.db"

// connParams apply to every pooled connection, not just the first one.
// _txlock=immediate makes BeginTx take the write lock up front, so a
// read-then-write transaction cannot interleave with another writer.
const connParams = "?_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_txlock=immediate"

// Config holds store configuration.
type Config struct {
	DataDir string
}

// Store is the SQLite-backed response store.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens (or creates) the database under cfg.DataDir and runs
// migrations.
func New(cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, DBFile)
	db, err := openDB("sqlite", dbPath+connParams)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	log.Info("store opened", zap.String("path", dbPath))
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS teams (
			id                 TEXT PRIMARY KEY,
			name               TEXT    NOT NULL DEFAULT '',
			expected_team_size INTEGER NOT NULL DEFAULT 0,
			level              TEXT    NOT NULL DEFAULT 'shu',
			plan               TEXT    NOT NULL DEFAULT 'free',
			created_at         TEXT    NOT NULL,
			updated_at         TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS checkins (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id    TEXT    NOT NULL REFERENCES teams(id),
			device_id  TEXT    NOT NULL,
			score      INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
			day        TEXT    NOT NULL,
			created_at TEXT    NOT NULL,
			UNIQUE (team_id, device_id, day)
		);

		CREATE INDEX IF NOT EXISTS idx_checkins_team_day ON checkins(team_id, day);

		CREATE TABLE IF NOT EXISTS sessions (
			id                 TEXT PRIMARY KEY,
			team_id            TEXT    NOT NULL REFERENCES teams(id),
			angle              TEXT    NOT NULL,
			level              TEXT    NOT NULL,
			status             TEXT    NOT NULL DEFAULT 'draft',
			focus_area         TEXT,
			experiment         TEXT,
			experiment_owner   TEXT,
			followup_date      TEXT,
			followup_outcome   TEXT,
			overall_score      REAL,
			participation_rate INTEGER,
			response_count     INTEGER NOT NULL DEFAULT 0,
			created_at         TEXT    NOT NULL,
			closed_at          TEXT,
			synthesis          TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_team_status ON sessions(team_id, status);

		CREATE TABLE IF NOT EXISTS responses (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			device_id  TEXT NOT NULL,
			answers    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (session_id, device_id)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.addMissingColumns()
}

// columnMigrations lists columns added after a table first shipped.
// CREATE TABLE IF NOT EXISTS leaves older files without them.
var columnMigrations = []struct {
	table, column, def string
}{
	{"sessions", "synthesis", "TEXT"},
}

func (s *Store) addMissingColumns() error {
	for _, m := range columnMigrations {
		ok, err := s.columnExists(m.table, m.column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.def)); err != nil {
			return fmt.Errorf("add %s.%s: %w", m.table, m.column, err)
		}
		s.log.Info("column added", zap.String("table", m.table), zap.String("column", m.column))
	}
	return nil
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("table info %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func now() string {
	return timeNow().UTC().Format(time.RFC3339)
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
