package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

const fileColumns = "id, path, language, hash, config_hash, last_checked"

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, config_hash, last_checked) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.ConfigHash, f.LastChecked,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func scanFile(row interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash, configHash sql.NullString
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &hash, &configHash, &f.LastChecked); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.ConfigHash = configHash.String
	return f, nil
}

// FileByPath returns nil, nil when path has not been checked.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	return s.queryFiles("SELECT "+fileColumns+" FROM files WHERE language = ? ORDER BY path", language)
}

// Files returns every cached file ordered by path.
func (s *Store) Files() ([]*File, error) {
	return s.queryFiles("SELECT " + fileColumns + " FROM files ORDER BY path")
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Call operations ---

func (s *Store) InsertCall(c *Call) (int64, error) {
	id, err := insertCallTx(s.db, c)
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (s *Store) CallsByFile(fileID int64) ([]*Call, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, hook, state, start_line, start_col, end_line, end_col, start_byte, end_byte
		 FROM calls WHERE file_id = ? ORDER BY start_byte`, fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: calls by file: %w", err)
	}
	defer rows.Close()
	var calls []*Call
	for rows.Next() {
		c := &Call{}
		if err := rows.Scan(&c.ID, &c.FileID, &c.Hook, &c.State,
			&c.StartLine, &c.StartCol, &c.EndLine, &c.EndCol, &c.StartByte, &c.EndByte); err != nil {
			return nil, fmt.Errorf("store: scan call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// --- Finding operations ---

func (s *Store) InsertFinding(f *Finding) (int64, error) {
	id, err := insertFindingTx(s.db, f)
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

func (s *Store) InsertFindingReference(r *FindingReference) (int64, error) {
	id, err := insertFindingReferenceTx(s.db, r)
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

const findingColumns = `f.id, f.file_id, f.call_id, f.kind, f.dependency, f.hook, f.reason,
	f.start_line, f.start_col, f.end_line, f.end_col, f.start_byte, f.end_byte`

func scanFinding(row interface{ Scan(...any) error }, extra ...any) (*Finding, error) {
	f := &Finding{}
	var reason sql.NullString
	dest := []any{&f.ID, &f.FileID, &f.CallID, &f.Kind, &f.Dependency, &f.Hook, &reason,
		&f.StartLine, &f.StartCol, &f.EndLine, &f.EndCol, &f.StartByte, &f.EndByte}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	f.Reason = reason.String
	return f, nil
}

func (s *Store) FindingsByFile(fileID int64) ([]*Finding, error) {
	rows, err := s.db.Query(
		"SELECT "+findingColumns+" FROM findings f WHERE f.file_id = ? ORDER BY f.id", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: findings by file: %w", err)
	}
	defer rows.Close()
	var out []*Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan finding: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) FindingReferences(findingID int64) ([]*FindingReference, error) {
	rows, err := s.db.Query(
		`SELECT id, finding_id, start_line, start_col, end_line, end_col
		 FROM finding_references WHERE finding_id = ? ORDER BY id`, findingID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: finding references: %w", err)
	}
	defer rows.Close()
	var out []*FindingReference
	for rows.Next() {
		r := &FindingReference{}
		if err := rows.Scan(&r.ID, &r.FindingID, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("store: scan finding reference: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Tx-compatible insert helpers shared by the direct and batched paths ---

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func lastID(res sql.Result, err error, what string) (int64, error) {
	if err != nil {
		return 0, fmt.Errorf("store: insert %s: %w", what, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	return id, nil
}

func insertCallTx(db execer, c *Call) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO calls (file_id, hook, state, start_line, start_col, end_line, end_col, start_byte, end_byte)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FileID, c.Hook, c.State, c.StartLine, c.StartCol, c.EndLine, c.EndCol, c.StartByte, c.EndByte,
	)
	return lastID(res, err, "call")
}

func insertFindingTx(db execer, f *Finding) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO findings (file_id, call_id, kind, dependency, hook, reason,
			start_line, start_col, end_line, end_col, start_byte, end_byte)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FileID, f.CallID, f.Kind, f.Dependency, f.Hook, f.Reason,
		f.StartLine, f.StartCol, f.EndLine, f.EndCol, f.StartByte, f.EndByte,
	)
	return lastID(res, err, "finding")
}

func insertFindingReferenceTx(db execer, r *FindingReference) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO finding_references (finding_id, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?)`,
		r.FindingID, r.StartLine, r.StartCol, r.EndLine, r.EndCol,
	)
	return lastID(res, err, "finding reference")
}
