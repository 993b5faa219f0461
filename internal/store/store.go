package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite result cache: checked files, their hook calls and
// findings.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled. An empty
// dbPath opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	memory := dbPath == "" || dbPath == ":memory:"
	if memory {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  config_hash     TEXT,
  last_checked    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS calls (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  hook            TEXT NOT NULL,
  state           TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  start_byte      INTEGER,
  end_byte        INTEGER
);

CREATE TABLE IF NOT EXISTS findings (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  call_id         INTEGER NOT NULL REFERENCES calls(id),
  kind            TEXT NOT NULL,
  dependency      TEXT NOT NULL,
  hook            TEXT NOT NULL,
  reason          TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  start_byte      INTEGER,
  end_byte        INTEGER
);

CREATE TABLE IF NOT EXISTS finding_references (
  id              INTEGER PRIMARY KEY,
  finding_id      INTEGER NOT NULL REFERENCES findings(id),
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_calls_file ON calls(file_id);
CREATE INDEX IF NOT EXISTS idx_findings_file ON findings(file_id);
CREATE INDEX IF NOT EXISTS idx_findings_kind ON findings(kind);
CREATE INDEX IF NOT EXISTS idx_findings_call ON findings(call_id);
CREATE INDEX IF NOT EXISTS idx_finding_refs_finding ON finding_references(finding_id);
`

// DeleteFileData transactionally removes a file and everything cached for
// it. Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		"DELETE FROM finding_references WHERE finding_id IN (SELECT id FROM findings WHERE file_id = ?)",
		"DELETE FROM findings WHERE file_id = ?",
		"DELETE FROM calls WHERE file_id = ?",
		"DELETE FROM files WHERE id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, fileID); err != nil {
			return fmt.Errorf("store: delete file data: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteMissingFiles removes every cached file whose path starts with prefix
// and is not listed in keep. It returns the number of files removed.
func (s *Store) DeleteMissingFiles(prefix string, keep []string) (int, error) {
	files, err := s.Files()
	if err != nil {
		return 0, err
	}
	kept := make(map[string]bool, len(keep))
	for _, p := range keep {
		kept[p] = true
	}
	removed := 0
	for _, f := range files {
		if kept[f.Path] || !hasPathPrefix(f.Path, prefix) {
			continue
		}
		if err := s.DeleteFileData(f.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// GetMetadata returns the value stored under key, or "" when unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store: set metadata %s: %w", key, err)
	}
	return nil
}
