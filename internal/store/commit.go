package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and the references within the batch are rewritten using the
// fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Calls (depend on file_id only, which is already real)
//  2. Findings (depend on file_id, call_id)
//  3. FindingReferences (depend on finding_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id int64) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("unknown batch id %d", id)
		}
		return realID, nil
	}

	// 1. Calls
	for _, c := range batch.Calls {
		realID, err := insertCallTx(tx, &c)
		if err != nil {
			return fmt.Errorf("store: commit batch: call %s: %w", c.Hook, err)
		}
		fakeToReal[c.ID] = realID
	}

	// 2. Findings
	for _, f := range batch.Findings {
		callID, err := remap(f.CallID)
		if err != nil {
			return fmt.Errorf("store: commit batch: finding %s: %w", f.Dependency, err)
		}
		f.CallID = callID
		realID, err := insertFindingTx(tx, &f)
		if err != nil {
			return fmt.Errorf("store: commit batch: finding %s: %w", f.Dependency, err)
		}
		fakeToReal[f.ID] = realID
	}

	// 3. FindingReferences
	for _, r := range batch.References {
		findingID, err := remap(r.FindingID)
		if err != nil {
			return fmt.Errorf("store: commit batch: reference: %w", err)
		}
		r.FindingID = findingID
		if _, err := insertFindingReferenceTx(tx, &r); err != nil {
			return fmt.Errorf("store: commit batch: reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit batch: %w", err)
	}
	return nil
}
