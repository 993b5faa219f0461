package hookdeps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/hookdeps/internal/store"
)

const counterSource = `import { useEffect, useMemo, useState } from 'react';
export function Counter({ step }) {
  const [count, setCount] = useState(0);
  useEffect(() => {
    setCount(count + step);
  }, [count]);
  const label = useMemo(() => 'n', [step]);
  return label;
}
`

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ptr[T any](v T) *T { return &v }

// summarize renders findings as "kind:dependency".
func summarize(fs []Finding) []string {
	out := []string{}
	for _, f := range fs {
		out = append(out, f.Kind+":"+f.Dependency)
	}
	return out
}

func TestNew_CreatesStore(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NotNil(t, e.Store())

	// Verify the DB is usable (migration ran).
	_, err := e.Store().InsertFile(&store.File{
		Path: "/tmp/a.jsx", Language: "javascript", Hash: "abc", LastChecked: time.Now(),
	})
	require.NoError(t, err)
}

func TestNew_InMemory(t *testing.T) {
	t.Parallel()
	e, err := New("")
	require.NoError(t, err)
	defer e.Close()

	path := writeFile(t, filepath.Join(t.TempDir(), "c.jsx"), counterSource)
	report, err := e.CheckFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
}

func TestNew_CreatesCacheDirectory(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "nested", ".hookdeps", "cache.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	defer e.Close()
	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestNew_InvalidHookConfig(t *testing.T) {
	t.Parallel()
	_, err := New("", WithHooks(HookConfig{Name: "useThing", ClosureIndex: ptr(1), DependenciesIndex: ptr(1)}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestHooks_UserOverridesBuiltin(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithHooks(HookConfig{Name: "useEffect", ClosureIndex: ptr(1), DependenciesIndex: ptr(0)}))

	var found bool
	for _, d := range e.Hooks() {
		if d.Name == "useEffect" {
			found = true
			assert.Equal(t, 1, d.ClosureIndex)
			assert.False(t, d.Builtin)
		}
	}
	assert.True(t, found)
	assert.Equal(t, []string{"preact/compat", "preact/hooks", "react"}, e.Sources())
}

func TestCheckSource(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	report, err := e.CheckSource(context.Background(), "counter.jsx", []byte(counterSource))
	require.NoError(t, err)
	assert.Equal(t, "javascript", report.Language)
	require.Len(t, report.Calls, 2)
	assert.Equal(t, "useEffect", report.Calls[0].Hook)
	assert.Equal(t, "analyzed", report.Calls[0].State)

	assert.Equal(t, []string{"missing:step", "unnecessary:step"}, summarize(report.Findings))
	missing := report.Findings[0]
	assert.Equal(t, "counter.jsx", missing.File)
	assert.Equal(t, Span{StartLine: 4, StartCol: 21, EndLine: 4, EndCol: 25}, missing.Span)
	assert.Equal(t, 3, missing.Call.StartLine)
	require.Len(t, missing.References, 1)
}

func TestCheckSource_UnsupportedFile(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	_, err := e.CheckSource(context.Background(), "README.md", []byte("# hi"))
	require.Error(t, err)
}

func TestCheckSource_ReportOptions(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithReportOptions(ReportOptions{ReportMissingArray: true}))

	src := `import { useEffect } from 'react';
function C({ a }) {
  useEffect(() => { console.log(a); });
  return null;
}`
	report, err := e.CheckSource(context.Background(), "c.jsx", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"missing-array:"}, summarize(report.Findings))
	assert.Equal(t, "unverifiable", report.Calls[0].State)
}

func TestCheckSource_TooDeepEntry(t *testing.T) {
	t.Parallel()
	src := `import { useEffect } from 'react';
function C({ user }) {
  useEffect(() => { console.log(user.profile); }, [user.profile.name]);
  return null;
}`
	plain := newTestEngine(t)
	report, err := plain.CheckSource(context.Background(), "c.jsx", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"missing:user.profile", "unnecessary:user.profile.name"}, summarize(report.Findings))

	deep := newTestEngine(t, WithReportOptions(ReportOptions{ReportUnnecessary: true, ReportTooDeep: true}))
	report, err = deep.CheckSource(context.Background(), "c.jsx", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"missing:user.profile", "too-deep:user.profile.name"}, summarize(report.Findings))
	assert.NotEqual(t, plain.configHash, deep.configHash)
}

func TestCheckFiles_SkipsUnsupportedExtensions(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	tmp := writeFile(t, filepath.Join(t.TempDir(), "readme.txt"), "hello")
	report, err := e.CheckFiles(context.Background(), []string{tmp})
	require.NoError(t, err)
	assert.Empty(t, report.Files)

	f, err := e.Store().FileByPath(tmp)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestCheckFiles_CachesUnchangedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "counter.jsx"), counterSource)
	ctx := context.Background()

	first, err := e.CheckFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Checked)
	assert.Equal(t, 0, first.Cached)

	second, err := e.CheckFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Checked)
	assert.Equal(t, 1, second.Cached)
	assert.Equal(t, first.Findings, second.Findings, "cached findings round-trip")
	assert.Equal(t, []string{"missing:step", "unnecessary:step"}, summarize(second.Findings))
}

func TestCheckFiles_RechecksChangedFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "counter.jsx"), counterSource)
	ctx := context.Background()

	_, err := e.CheckFiles(ctx, []string{path})
	require.NoError(t, err)

	fixed := `import { useEffect, useState } from 'react';
export function Counter({ step }) {
  const [count, setCount] = useState(0);
  useEffect(() => {
    setCount(count + step);
  }, [count, step]);
  return null;
}
`
	writeFile(t, path, fixed)
	report, err := e.CheckFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.Findings)

	sum, err := e.Query().Summary(FindingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, map[string]int{"analyzed": 1}, sum.Calls, "old calls are deleted")
}

func TestCheckFiles_ConfigChangeInvalidatesCache(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	path := writeFile(t, filepath.Join(t.TempDir(), "counter.jsx"), counterSource)
	ctx := context.Background()

	e1, err := New(dbPath)
	require.NoError(t, err)
	assert.True(t, e1.ConfigChanged(), "empty cache")
	_, err = e1.CheckFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.False(t, e1.ConfigChanged())
	require.NoError(t, e1.Close())

	e2, err := New(dbPath, WithReportOptions(ReportOptions{}))
	require.NoError(t, err)
	defer e2.Close()
	assert.True(t, e2.ConfigChanged())

	report, err := e2.CheckFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, []string{"missing:step"}, summarize(report.Findings))
}

func TestCheckFiles_SerialMatchesParallel(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.jsx", "b.tsx", "c.js", "e.ts"} {
		paths = append(paths, writeFile(t, filepath.Join(dir, name), counterSource))
	}
	ctx := context.Background()

	serial := newTestEngine(t, WithParallel(false))
	sr, err := serial.CheckFiles(ctx, paths)
	require.NoError(t, err)

	parallel := newTestEngine(t, WithParallelism(3))
	pr, err := parallel.CheckFiles(ctx, paths)
	require.NoError(t, err)

	assert.Equal(t, 4, sr.Checked)
	assert.Equal(t, sr.Findings, pr.Findings)
	assert.Len(t, pr.Findings, 8)
}

func TestCheckFiles_CollectsPerFileErrors(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "good.jsx"), counterSource)
	missing := filepath.Join(dir, "missing.jsx")

	report, err := e.CheckFiles(context.Background(), []string{missing, good})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "had 1 error(s)")
	assert.Contains(t, err.Error(), "missing.jsx")
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Checked)
	assert.Len(t, report.Findings, 2)
}

func TestCheckFiles_ScriptErrorDropsFileRecord(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithScriptsFS(fstest.MapFS{}), WithHookScripts("nope.risor"))
	path := writeFile(t, filepath.Join(t.TempDir(), "counter.jsx"), counterSource)

	_, err := e.CheckFiles(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.risor")

	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	assert.Nil(t, f, "a failed file is retried next run")
}

func TestCheckFiles_HookScripts(t *testing.T) {
	t.Parallel()
	scripts := fstest.MapFS{
		"hooks/motion.risor": &fstest.MapFile{Data: []byte(`
for i := 0; i < len(imports); i++ {
    imp := imports[i]
    if imp["source"] == "motion" {
        define_hook({"name": imp["name"], "closureIndex": 0, "dependenciesIndex": 1})
    }
}
`)},
	}
	src := `import { useAnimate } from 'motion';
export function Box({ x }) {
  useAnimate(() => { console.log(x); }, []);
  return null;
}
`
	path := writeFile(t, filepath.Join(t.TempDir(), "box.jsx"), src)
	ctx := context.Background()

	plain := newTestEngine(t)
	report, err := plain.CheckFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Empty(t, report.Findings)

	scripted := newTestEngine(t, WithScriptsFS(scripts), WithHookScripts("hooks/motion.risor"))
	report, err = scripted.CheckFiles(ctx, []string{path})
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, []string{"missing:x"}, summarize(report.Findings))
	assert.Equal(t, "useAnimate", report.Findings[0].Hook)
	assert.NotEqual(t, plain.configHash, scripted.configHash)
}

func TestCheckDirectory_SkipsHiddenAndVendoredDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "counter.jsx"), counterSource)
	writeFile(t, filepath.Join(root, "node_modules", "lib", "index.js"), counterSource)
	writeFile(t, filepath.Join(root, ".cache", "x.js"), counterSource)
	writeFile(t, filepath.Join(root, "README.md"), "docs")

	e := newTestEngine(t)
	report, err := e.CheckDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, filepath.Join(root, "src", "counter.jsx"), report.Files[0])
	assert.Len(t, report.Findings, 2)
}

func TestCheckDirectory_PrunesDeletedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a.jsx"), counterSource)
	writeFile(t, filepath.Join(root, "b.jsx"), counterSource)
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CheckDirectory(ctx, root)
	require.NoError(t, err)
	require.NoError(t, os.Remove(a))

	report, err := e.CheckDirectory(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cached)

	files, err := e.Query().Files()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "b.jsx")}, files)
}

func TestQuery_Findings(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "a.jsx"), counterSource)
	writeFile(t, filepath.Join(root, "lib", "b.tsx"), counterSource)
	e := newTestEngine(t)

	_, err := e.CheckDirectory(context.Background(), root)
	require.NoError(t, err)

	q := e.Query()
	all, err := q.Findings(FindingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	missing, err := q.Findings(FindingFilter{Kinds: []string{KindMissing}, PathPrefix: filepath.Join(root, "app")})
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "step", missing[0].Dependency)
	assert.Equal(t, "useEffect", missing[0].Hook)
	assert.Equal(t, 3, missing[0].Call.StartLine)
	assert.Len(t, missing[0].References, 1)

	tsx, err := q.Findings(FindingFilter{Language: "tsx", Hook: "useMemo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"unnecessary:step"}, summarize(tsx))

	sum, err := q.Summary(FindingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Files)
	assert.Equal(t, map[string]int{"missing": 2, "unnecessary": 2}, sum.Findings)
}
