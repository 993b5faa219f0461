// Package hookdeps checks that hook calls such as useEffect, useMemo and
// useCallback list exactly the values their closure captures in the
// dependency array passed next to it.
//
// # Pipeline
//
// For every JavaScript or TypeScript file hookdeps:
//
//  1. Parses the file with tree-sitter and builds a scope model that
//     resolves each identifier to its declaration.
//  2. Runs the configured Risor hook scripts, which may declare additional
//     hooks for that file.
//  3. Finds calls to dependency-checked hooks, collects the closure's
//     captures, drops the stable ones and diffs the rest against the
//     declared array.
//  4. Applies hookdeps-ignore comments and writes calls and findings to a
//     SQLite cache.
//
// # Usage
//
//	e, err := hookdeps.New(".hookdeps/cache.db", hookdeps.WithHooks(hookdeps.HookConfig{
//		Name: "useAsyncEffect", ClosureIndex: ptr(0), DependenciesIndex: ptr(1),
//	}))
//	if err != nil { ... }
//	defer e.Close()
//
//	report, err := e.CheckDirectory(ctx, "src")
//	for _, f := range report.Findings { ... }
//
// [Engine.CheckSource] analyzes a single buffer without the cache.
//
// # Findings
//
// Each [Finding] carries a kind, the printed dependency path and spans; the
// engine never renders messages. Kinds are missing, unnecessary, duplicate
// and incorrect-suppression, plus the opt-in missing-array, unstable and
// too-deep.
//
// # Incremental Checking
//
// [Engine.CheckFiles] skips files whose content and configuration hash match
// the cache and serves their findings from it. [Engine.Query] reads cached
// findings without checking anything.
package hookdeps
