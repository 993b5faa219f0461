package store

// DataStore is the write interface for analysis results. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering for parallel checking)
// implement it.
type DataStore interface {
	// Inserts return the assigned ID.
	InsertCall(c *Call) (int64, error)
	InsertFinding(f *Finding) (int64, error)
	InsertFindingReference(r *FindingReference) (int64, error)

	FindingsByFile(fileID int64) ([]*Finding, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
