package hookdeps

import (
	"context"
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/hookdeps/internal/depcheck"
	"github.com/jward/hookdeps/internal/semantic"
	"github.com/jward/hookdeps/internal/store"
)

// workItem holds everything a checking worker needs.
type workItem struct {
	path    string
	lang    string
	content []byte
	fileID  int64
	batch   *store.BatchedStore
	err     error
}

// checkFiles runs the three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete stale results, insert file records.
//	Phase B (parallel): Parse, run hook scripts and analyze on a bounded pool.
//	Phase C (serial):   Commit batches to SQLite in input order.
func (e *Engine) checkFiles(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{Files: paths}
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []*workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			report.Cached++
			continue
		}
		items = append(items, item)
	}

	// ---- Phase B: Parallel analysis ----
	limit := 1
	if e.useParallel {
		limit = e.parallelism
		if limit <= 0 {
			limit = goruntime.NumCPU()
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Per-file failures are reported in Phase C; only
			// cancellation stops the pool.
			item.err = e.checkItem(gctx, item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.discard(items)
		return nil, fmt.Errorf("hookdeps: %w", err)
	}

	// ---- Phase C: Serial commit ----
	for _, item := range items {
		if item.err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", item.path, item.err))
			e.forget(item)
			continue
		}
		if err := e.store.CommitBatch(item.batch); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", item.path, err))
			e.forget(item)
			continue
		}
		report.Checked++
	}
	e.logger.Info("checked files", "checked", report.Checked, "cached", report.Cached, "errors", len(errs))

	if len(errs) > 0 {
		return report, fmt.Errorf("hookdeps: checking had %d error(s): %w", len(errs), errs[0])
	}
	return report, nil
}

// prepareFile does Phase A work for a single file: hash check, cleanup,
// file record. Returns (item, skip, error). skip=true means the cached
// results are current.
func (e *Engine) prepareFile(path string) (*workItem, bool, error) {
	lang, ok := semantic.LanguageForFile(path)
	if !ok {
		return nil, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ComputeContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && existing.ConfigHash == e.configHash {
		return nil, true, nil // unchanged
	}

	if existing != nil {
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return nil, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	// Insert new file record (real ID assigned by SQLite).
	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		ConfigHash:  e.configHash,
		LastChecked: time.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert file: %w", err)
	}

	return &workItem{
		path:    path,
		lang:    lang,
		content: content,
		fileID:  fileID,
		batch:   store.NewBatchedStore(e.store),
	}, false, nil
}

// checkItem parses and analyzes one file into its BatchedStore. Each call
// parses its own tree, so workers share nothing but the read-only registry.
func (e *Engine) checkItem(ctx context.Context, item *workItem) error {
	f, err := semantic.ParseLanguage(ctx, item.path, item.lang, item.content)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := e.analyze(ctx, f)
	if err != nil {
		return err
	}
	return recordResult(item.batch, item.fileID, res)
}

// forget removes the file record of a failed item so the next run retries
// the file instead of serving an empty result from the cache.
func (e *Engine) forget(item *workItem) {
	if err := e.store.DeleteFileData(item.fileID); err != nil {
		e.logger.Warn("drop failed file record", "path", item.path, "error", err)
	}
}

func (e *Engine) discard(items []*workItem) {
	for _, item := range items {
		e.forget(item)
	}
}

// recordResult writes a file's calls and findings. Findings are inserted in
// result order so row IDs preserve it.
func recordResult(ds store.DataStore, fileID int64, res depcheck.Result) error {
	type spanKey struct{ start, end uint32 }
	callIDs := make(map[spanKey]int64, len(res.Calls))
	for _, c := range res.Calls {
		row := &store.Call{
			FileID:    fileID,
			Hook:      c.Hook,
			State:     c.State.String(),
			StartLine: c.Span.StartLine,
			StartCol:  c.Span.StartCol,
			EndLine:   c.Span.EndLine,
			EndCol:    c.Span.EndCol,
			StartByte: int(c.Span.StartByte),
			EndByte:   int(c.Span.EndByte),
		}
		id, err := ds.InsertCall(row)
		if err != nil {
			return err
		}
		callIDs[spanKey{c.Span.StartByte, c.Span.EndByte}] = id
	}

	for _, fd := range res.Findings {
		callID, ok := callIDs[spanKey{fd.Call.StartByte, fd.Call.EndByte}]
		if !ok {
			return fmt.Errorf("finding %s %q has no call", fd.Kind, fd.Path)
		}
		row := &store.Finding{
			FileID:     fileID,
			CallID:     callID,
			Kind:       fd.Kind.String(),
			Dependency: fd.Path,
			Hook:       fd.Hook,
			Reason:     fd.Reason,
			StartLine:  fd.Span.StartLine,
			StartCol:   fd.Span.StartCol,
			EndLine:    fd.Span.EndLine,
			EndCol:     fd.Span.EndCol,
			StartByte:  int(fd.Span.StartByte),
			EndByte:    int(fd.Span.EndByte),
		}
		id, err := ds.InsertFinding(row)
		if err != nil {
			return err
		}
		for _, ref := range fd.References {
			if _, err := ds.InsertFindingReference(&store.FindingReference{
				FindingID: id,
				StartLine: ref.StartLine,
				StartCol:  ref.StartCol,
				EndLine:   ref.EndLine,
				EndCol:    ref.EndCol,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
