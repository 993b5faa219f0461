package store

import (
	"fmt"
	"strings"
)

// where renders the filter as a WHERE clause over findings f joined with
// files fl.
func (ff FindingFilter) where() (string, []any) {
	var conds []string
	var args []any
	if len(ff.Paths) > 0 {
		conds = append(conds, "fl.path IN ("+placeholderList(len(ff.Paths))+")")
		args = append(args, stringsToArgs(ff.Paths)...)
	}
	if ff.PathPrefix != "" {
		conds = append(conds, "(fl.path = ? OR fl.path LIKE ? ESCAPE '\\')")
		prefix := strings.TrimSuffix(ff.PathPrefix, "/")
		args = append(args, prefix, escapeLike(prefix)+"/%")
	}
	if ff.Language != "" {
		conds = append(conds, "fl.language = ?")
		args = append(args, ff.Language)
	}
	if len(ff.Kinds) > 0 {
		conds = append(conds, "f.kind IN ("+placeholderList(len(ff.Kinds))+")")
		args = append(args, stringsToArgs(ff.Kinds)...)
	}
	if ff.Hook != "" {
		conds = append(conds, "f.hook = ?")
		args = append(args, ff.Hook)
	}
	if ff.Dependency != "" {
		conds = append(conds, "f.dependency = ?")
		args = append(args, ff.Dependency)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// QueryFindings returns the cached findings matching ff ordered by file
// path and position.
func (s *Store) QueryFindings(ff FindingFilter) ([]*FileFinding, error) {
	where, args := ff.where()
	rows, err := s.db.Query(
		"SELECT "+findingColumns+", fl.path, fl.language FROM findings f JOIN files fl ON fl.id = f.file_id"+
			where+" ORDER BY fl.path, f.id", args...,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query findings: %w", err)
	}
	defer rows.Close()
	var out []*FileFinding
	for rows.Next() {
		ffd := &FileFinding{}
		f, err := scanFinding(rows, &ffd.Path, &ffd.Language)
		if err != nil {
			return nil, fmt.Errorf("store: scan finding: %w", err)
		}
		ffd.Finding = *f
		out = append(out, ffd)
	}
	return out, rows.Err()
}

// Summary counts files, calls by state and findings by kind. Paths,
// PathPrefix and Language narrow all three counts; Kinds, Hook and
// Dependency narrow the findings only.
func (s *Store) Summary(ff FindingFilter) (*Summary, error) {
	sum := &Summary{Calls: map[string]int{}, Findings: map[string]int{}}

	fileOnly := FindingFilter{Paths: ff.Paths, PathPrefix: ff.PathPrefix, Language: ff.Language}
	fileWhere, fileArgs := fileOnly.where()

	if err := s.db.QueryRow("SELECT COUNT(*) FROM files fl"+fileWhere, fileArgs...).Scan(&sum.Files); err != nil {
		return nil, fmt.Errorf("store: count files: %w", err)
	}
	if err := s.countBy(sum.Calls,
		"SELECT c.state, COUNT(*) FROM calls c JOIN files fl ON fl.id = c.file_id"+fileWhere+" GROUP BY c.state",
		fileArgs...); err != nil {
		return nil, err
	}
	where, args := ff.where()
	if err := s.countBy(sum.Findings,
		"SELECT f.kind, COUNT(*) FROM findings f JOIN files fl ON fl.id = f.file_id"+where+" GROUP BY f.kind",
		args...); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) countBy(into map[string]int, query string, args ...any) error {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("store: summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("store: scan summary: %w", err)
		}
		into[key] = n
	}
	return rows.Err()
}
