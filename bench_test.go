package hookdeps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// benchComponentSource is a realistic component with a mix of effects,
// memos, callbacks and a custom hook.
const benchComponentSource = `import { useState, useEffect, useMemo, useCallback, useRef } from 'react';
import { useQuery } from './data';

const PAGE_SIZE = 20;

export function Inbox({ account, filter, onOpen, onArchive }) {
  const [page, setPage] = useState(0);
  const [selected, setSelected] = useState(null);
  const listRef = useRef(null);
  const { data, refetch } = useQuery(account.id, filter);

  const visible = useMemo(() => {
    if (!data) return [];
    return data.messages
      .filter((m) => filter.unread ? !m.read : true)
      .slice(page * PAGE_SIZE, (page + 1) * PAGE_SIZE);
  }, [data, page]);

  const open = useCallback((id) => {
    setSelected(id);
    onOpen(account.id, id);
  }, [account.id]);

  const archive = useCallback(async (id) => {
    await onArchive(id);
    refetch();
  }, [onArchive, refetch, setSelected]);

  useEffect(() => {
    listRef.current?.scrollTo(0, 0);
  }, [page]);

  useEffect(() => {
    const timer = setInterval(() => refetch(), 30000);
    return () => clearInterval(timer);
  }, [account]);

  useEffect(() => {
    if (selected && !visible.some((m) => m.id === selected)) {
      setSelected(null);
    }
  }, [visible, selected, visible]);

  return null;
}
`

// setupBenchEngine creates an Engine and n component files, returning the
// engine and the file paths. Caller must close the engine.
func setupBenchEngine(b *testing.B, n int, opts ...Option) (*Engine, []string) {
	b.Helper()
	dir := b.TempDir()

	e, err := New(filepath.Join(dir, "bench.db"), opts...)
	if err != nil {
		b.Fatal(err)
	}

	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("Inbox%d.jsx", i))
		if err := os.WriteFile(paths[i], []byte(benchComponentSource), 0644); err != nil {
			e.Close()
			b.Fatal(err)
		}
	}
	return e, paths
}

// BenchmarkCheckSource measures parse plus analysis of one component
// without touching the cache tables.
func BenchmarkCheckSource(b *testing.B) {
	e, err := New("")
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()
	ctx := context.Background()
	src := []byte(benchComponentSource)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.CheckSource(ctx, "Inbox.jsx", src); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCheckFiles_Cold measures a full check of 50 files into an empty
// cache, serial and parallel.
func BenchmarkCheckFiles_Cold(b *testing.B) {
	for _, parallel := range []bool{false, true} {
		b.Run(fmt.Sprintf("parallel=%t", parallel), func(b *testing.B) {
			ctx := context.Background()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				e, paths := setupBenchEngine(b, 50, WithParallel(parallel))
				b.StartTimer()

				if _, err := e.CheckFiles(ctx, paths); err != nil {
					e.Close()
					b.Fatal(err)
				}

				b.StopTimer()
				e.Close()
				b.StartTimer()
			}
		})
	}
}

// BenchmarkCheckFiles_Cached measures a re-check where every file is served
// from the cache.
func BenchmarkCheckFiles_Cached(b *testing.B) {
	e, paths := setupBenchEngine(b, 50)
	defer e.Close()
	ctx := context.Background()

	if _, err := e.CheckFiles(ctx, paths); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		report, err := e.CheckFiles(ctx, paths)
		if err != nil {
			b.Fatal(err)
		}
		if report.Cached != len(paths) {
			b.Fatalf("cached = %d, want %d", report.Cached, len(paths))
		}
	}
}

// BenchmarkQueryFindings measures a filtered read of cached findings.
func BenchmarkQueryFindings(b *testing.B) {
	e, paths := setupBenchEngine(b, 50)
	defer e.Close()

	if _, err := e.CheckFiles(context.Background(), paths); err != nil {
		b.Fatal(err)
	}
	q := e.Query()
	filter := FindingFilter{Kinds: []string{KindMissing}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := q.Findings(filter); err != nil {
			b.Fatal(err)
		}
	}
}
