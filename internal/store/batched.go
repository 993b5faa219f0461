package store

import "sync"

// BatchedStore buffers analysis results in memory using fake (negative)
// IDs. A finding may point at a call and a reference at a finding by fake
// ID; CommitBatch rewrites them.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// FindingsByFile merges buffered rows with the underlying Store, which is
// safe for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Calls      []Call
	Findings   []Finding
	References []FindingReference

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertCall(c *Call) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Calls = append(b.Calls, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertFinding(f *Finding) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Findings = append(b.Findings, *f)
	return fakeID, nil
}

func (b *BatchedStore) InsertFindingReference(r *FindingReference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	r.ID = fakeID
	b.References = append(b.References, *r)
	return fakeID, nil
}

// FindingsByFile returns findings for a file, merging any buffered (not yet
// committed) findings with those already in the database.
func (b *BatchedStore) FindingsByFile(fileID int64) ([]*Finding, error) {
	dbFindings, err := b.store.FindingsByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Findings {
		if b.Findings[i].FileID == fileID {
			dbFindings = append(dbFindings, &b.Findings[i])
		}
	}
	return dbFindings, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Calls) + len(b.Findings) + len(b.References)
}
