package hookdeps

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jward/hookdeps/internal/depcheck"
	"github.com/jward/hookdeps/internal/directive"
	"github.com/jward/hookdeps/internal/hooks"
	"github.com/jward/hookdeps/internal/runtime"
	"github.com/jward/hookdeps/internal/semantic"
	"github.com/jward/hookdeps/internal/store"
)

// Engine orchestrates the hookdeps pipeline: file discovery, change
// detection, hook scripts, dependency analysis, and query access to cached
// results.
type Engine struct {
	store    *store.Store
	registry *hooks.Registry
	analyzer *depcheck.Analyzer
	logger   *slog.Logger

	hookConfigs []hooks.Config
	sources     []string
	report      depcheck.Options
	hookScripts []string
	scriptsDir  string
	scriptsFS   fs.FS

	// configHash identifies everything besides file content that affects
	// results. Cached files with a different hash are re-checked.
	configHash string

	// useParallel enables the parallel checking pipeline.
	useParallel bool
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks adds user hook definitions. Later entries with the same name
// win; a definition named like a built-in replaces it.
func WithHooks(cfgs ...HookConfig) Option {
	return func(e *Engine) {
		e.hookConfigs = append(e.hookConfigs, cfgs...)
	}
}

// WithSources replaces the import sources built-in hooks are recognized
// from. Empty keeps the defaults.
func WithSources(sources ...string) Option {
	return func(e *Engine) {
		e.sources = sources
	}
}

// WithReportOptions switches the optional finding kinds.
func WithReportOptions(opts ReportOptions) Option {
	return func(e *Engine) {
		e.report = opts
	}
}

// WithHookScripts runs the given Risor scripts against every file before
// analysis. Hooks a script defines apply to that file only.
func WithHookScripts(paths ...string) Option {
	return func(e *Engine) {
		e.hookScripts = append(e.hookScripts, paths...)
	}
}

// WithScriptsDir sets the directory hook script paths and imports resolve
// against.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from disk. This enables embedding scripts via
// go:embed. When set, the scripts directory is ignored.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithParallel controls parallel checking. When true (default), CheckFiles
// analyzes files on a bounded worker pool and commits results from a single
// goroutine. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithParallelism bounds the worker pool. Zero or less uses the CPU count.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithLogger routes engine and script logging to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine backed by a SQLite result cache at dbPath. An empty
// dbPath keeps the cache in memory for the Engine's lifetime.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		report:      depcheck.DefaultOptions(),
		logger:      slog.New(slog.DiscardHandler),
		useParallel: true, // default to parallel checking
	}
	for _, opt := range opts {
		opt(e)
	}

	reg, err := hooks.NewRegistry(e.hookConfigs, e.sources)
	if err != nil {
		return nil, fmt.Errorf("hookdeps: %w", err)
	}
	e.registry = reg
	e.analyzer = depcheck.New(reg, e.report)

	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("hookdeps: create cache directory: %w", err)
		}
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("hookdeps: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("hookdeps: migrate: %w", err)
	}
	e.store = s
	e.configHash = e.computeConfigHash()
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Hooks returns the effective hook table: built-ins overridden by
// configured hooks, sorted by name. Hooks defined by scripts are per file
// and not included.
func (e *Engine) Hooks() []HookDefinition {
	return e.registry.Definitions()
}

// Sources returns the import sources built-in hooks are recognized from.
func (e *Engine) Sources() []string {
	return e.registry.Sources()
}

// newRuntime builds a Runtime for one file. Runtimes are cheap and keep
// per-run source state, so workers never share one.
func (e *Engine) newRuntime() *runtime.Runtime {
	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	return runtime.NewRuntime(e.scriptsDir, rtOpts...)
}

// computeConfigHash hashes the effective hook table, the report switches
// and the content of every hook script.
func (e *Engine) computeConfigHash() string {
	var parts []string
	for _, d := range e.registry.Definitions() {
		parts = append(parts, fmt.Sprintf("hook:%s:%d:%d:%s:%t", d.Name, d.ClosureIndex, d.DepsIndex, d.Stable, d.Builtin))
	}
	parts = append(parts, "sources:"+strings.Join(e.registry.Sources(), ","))
	parts = append(parts, fmt.Sprintf("report:%t:%t:%t:%t",
		e.report.ReportUnnecessary, e.report.ReportMissingArray, e.report.ReportUnstable, e.report.ReportTooDeep))
	parts = append(parts, "scripts:"+strings.Join(e.hookScripts, ","), "scripts_hash:"+e.scriptsHash())
	return store.ComputeHash(parts...)
}

// scriptsHash computes a SHA-256 hash of the configured hook scripts and
// every .risor file they could import. Walks the scriptsFS or scriptsDir,
// sorts by path, and hashes the concatenated contents.
func (e *Engine) scriptsHash() string {
	if len(e.hookScripts) == 0 {
		return ""
	}
	seen := make(map[string]bool)
	paths := append([]string(nil), e.hookScripts...)
	for _, p := range paths {
		seen[p] = true
	}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				add(path)
			}
			return nil
		})
	} else if e.scriptsDir != "" {
		filepath.WalkDir(e.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(e.scriptsDir, path)
				add(rel)
			}
			return nil
		})
	}
	sort.Strings(paths)

	rt := e.newRuntime()
	var parts []string
	for _, p := range paths {
		src, err := rt.LoadScript(p)
		if err != nil {
			// Missing scripts fail at check time; hash the absence.
			parts = append(parts, p, "<missing>")
			continue
		}
		parts = append(parts, p, src)
	}
	return store.ComputeHash(parts...)
}

// ConfigChanged reports whether the cache was last written with a
// different configuration. Returns true for an empty cache.
func (e *Engine) ConfigChanged() bool {
	stored, err := e.store.GetMetadata("config_hash")
	if err != nil || stored == "" {
		return true
	}
	return stored != e.configHash
}

// storeConfigHash persists the current configuration hash to the database.
func (e *Engine) storeConfigHash() {
	if err := e.store.SetMetadata("config_hash", e.configHash); err != nil {
		e.logger.Warn("store config hash", "error", err)
	}
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// CheckSource analyzes src as the file at path without touching the cache.
func (e *Engine) CheckSource(ctx context.Context, path string, src []byte) (*FileReport, error) {
	f, err := semantic.Parse(ctx, path, src)
	if err != nil {
		return nil, fmt.Errorf("hookdeps: %w", err)
	}
	defer f.Close()

	res, err := e.analyze(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("hookdeps: %s: %w", path, err)
	}
	return newFileReport(path, f.Language, res), nil
}

// analyze runs the hook scripts against f and checks every hook call.
func (e *Engine) analyze(ctx context.Context, f *semantic.File) (depcheck.Result, error) {
	an := e.analyzer
	if len(e.hookScripts) > 0 {
		rt := e.newRuntime()
		var defs []hooks.Definition
		for _, script := range e.hookScripts {
			d, err := rt.HookScript(ctx, script, f)
			if err != nil {
				return depcheck.Result{}, err
			}
			defs = append(defs, d...)
		}
		if len(defs) > 0 {
			e.logger.Debug("script hooks", "file", f.Path, "count", len(defs))
			an = depcheck.New(e.registry.With(defs...), e.report)
		}
	}
	return an.Analyze(f, directive.Suppressions(f)), nil
}

// CheckFiles checks the given file paths and returns their findings,
// including those served from the cache. When WithParallel is enabled,
// uses a worker pool for concurrent analysis with batched SQLite writes.
//
// For each file:
// 1. Detect language from extension; skip unsupported files
// 2. Skip unchanged files (same content and configuration hash)
// 3. Delete stale results, insert the file record
// 4. Parse, run hook scripts, analyze
// 5. Commit calls and findings
//
// Errors on individual files are collected; processing continues and the
// first error is returned with the count.
func (e *Engine) CheckFiles(ctx context.Context, paths []string) (*Report, error) {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := semantic.LanguageForFile(p); !ok {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("hookdeps: %s: %w", p, err)
		}
		abs = append(abs, a)
	}

	report, checkErr := e.checkFiles(ctx, abs)
	if report == nil {
		return nil, checkErr
	}
	e.storeConfigHash()

	findings, err := e.Query().FindingsForFiles(abs)
	if err != nil {
		return nil, err
	}
	report.Findings = findings
	return report, checkErr
}

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// CheckDirectory walks root and checks all files with supported extensions.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to a filesystem walk (skipping hidden dirs, node_modules,
// vendor and build output) if git is unavailable. Cached results for files
// under root that no longer exist are dropped.
func (e *Engine) CheckDirectory(ctx context.Context, root string) (*Report, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("hookdeps: %w", err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", "root", root, "error", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	if removed, err := e.store.DeleteMissingFiles(root, paths); err != nil {
		return nil, fmt.Errorf("hookdeps: prune cache: %w", err)
	} else if removed > 0 {
		e.logger.Info("pruned cached files", "count", removed)
	}
	return e.CheckFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = unquoteGitPath(line)
		absPath := filepath.Join(root, line)
		if _, ok := semantic.LanguageForFile(absPath); !ok {
			continue
		}
		// Deleted but still tracked files are listed until committed.
		if _, err := os.Stat(absPath); err != nil {
			continue
		}
		paths = append(paths, absPath)
	}
	sort.Strings(paths)
	return paths, nil
}

// unquoteGitPath undoes git's C-style quoting of unusual file names.
func unquoteGitPath(p string) string {
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if s, err := strconv.Unquote(p); err == nil {
			return s
		}
	}
	return p
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := semantic.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hookdeps: walk directory: %w", err)
	}
	return paths, nil
}
