package hookdeps

import (
	"fmt"
	"sort"

	"github.com/jward/hookdeps/internal/store"
)

// QueryBuilder reads cached results.
type QueryBuilder struct {
	store *store.Store
}

// pathChunk bounds the IN list of a single query.
const pathChunk = 500

// Findings returns the cached findings matching filter, ordered by file and
// position within the file.
func (q *QueryBuilder) Findings(filter FindingFilter) ([]Finding, error) {
	rows, err := q.store.QueryFindings(filter)
	if err != nil {
		return nil, fmt.Errorf("findings: %w", err)
	}
	return q.hydrate(rows)
}

// FindingsForFiles returns the cached findings of the given files.
func (q *QueryBuilder) FindingsForFiles(paths []string) ([]Finding, error) {
	out := []Finding{}
	for start := 0; start < len(paths); start += pathChunk {
		end := min(start+pathChunk, len(paths))
		rows, err := q.store.QueryFindings(FindingFilter{Paths: paths[start:end]})
		if err != nil {
			return nil, fmt.Errorf("findings for files: %w", err)
		}
		found, err := q.hydrate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

// Summary counts cached files, calls by state and findings by kind.
func (q *QueryBuilder) Summary(filter FindingFilter) (*Summary, error) {
	sum, err := q.store.Summary(filter)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

// Files returns the paths of every cached file.
func (q *QueryBuilder) Files() ([]string, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out, nil
}

// hydrate attaches call spans and reference sites to finding rows.
func (q *QueryBuilder) hydrate(rows []*store.FileFinding) ([]Finding, error) {
	calls := make(map[int64]map[int64]*store.Call)
	out := make([]Finding, 0, len(rows))
	for _, r := range rows {
		byID, ok := calls[r.FileID]
		if !ok {
			list, err := q.store.CallsByFile(r.FileID)
			if err != nil {
				return nil, fmt.Errorf("calls: %w", err)
			}
			byID = make(map[int64]*store.Call, len(list))
			for _, c := range list {
				byID[c.ID] = c
			}
			calls[r.FileID] = byID
		}

		fd := Finding{
			File:       r.Path,
			Kind:       r.Kind,
			Dependency: r.Dependency,
			Hook:       r.Hook,
			Reason:     r.Reason,
			Span:       Span{StartLine: r.StartLine, StartCol: r.StartCol, EndLine: r.EndLine, EndCol: r.EndCol},
		}
		if c, ok := byID[r.CallID]; ok {
			fd.Call = Span{StartLine: c.StartLine, StartCol: c.StartCol, EndLine: c.EndLine, EndCol: c.EndCol}
		}
		if r.Kind == KindMissing {
			refs, err := q.store.FindingReferences(r.ID)
			if err != nil {
				return nil, fmt.Errorf("references: %w", err)
			}
			for _, ref := range refs {
				fd.References = append(fd.References, Span{
					StartLine: ref.StartLine, StartCol: ref.StartCol, EndLine: ref.EndLine, EndCol: ref.EndCol,
				})
			}
		}
		out = append(out, fd)
	}
	return out, nil
}
