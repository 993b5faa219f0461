package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/hookdeps"
)

func (c *cli) newCheckCmd() *cobra.Command {
	var (
		force       bool
		parallelism int
		serial      bool
	)
	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Check hook dependency arrays",
		Long: `Checks every JavaScript and TypeScript file under the given directories
(default: the current directory) and any files named directly. Files whose
content and configuration are unchanged are served from the cache.

Exits with status 1 when findings are reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if len(args) == 0 {
				args = []string{"."}
			}

			targets := make([]string, len(args))
			for i, a := range args {
				p, err := c.resolvePath(a)
				if err != nil {
					return err
				}
				targets[i] = p
			}

			repoRoot, err := repoRootFor(targets[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(repoRoot, c.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			dbPath := cfg.DBPath()

			if force && dbPath != "" {
				for _, suffix := range []string{"", "-wal", "-shm"} {
					if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
						return fmt.Errorf("removing cache for --force: %w", err)
					}
				}
				c.logger.Info("cleared cache", "path", dbPath)
			}

			opts := append(cfg.Options(), hookdeps.WithLogger(c.logger), hookdeps.WithParallel(!serial))
			if parallelism > 0 {
				opts = append(opts, hookdeps.WithParallelism(parallelism))
			}
			engine, err := hookdeps.New(dbPath, opts...)
			if err != nil {
				return fmt.Errorf("creating engine: %w", err)
			}
			defer engine.Close()

			report, checkErrs, err := runChecks(cmd.Context(), engine, targets)
			if err != nil {
				return err
			}

			wd, err := c.workDir()
			if err != nil {
				return err
			}
			totals := &CLICheckTotals{
				Files:    len(report.Files),
				Checked:  report.Checked,
				Cached:   report.Cached,
				Findings: len(report.Findings),
			}
			result := CLIResult{
				Command: "check",
				Results: toCLIFindings(wd, report.Findings),
				Summary: totals,
			}
			for _, e := range checkErrs {
				result.Errors = append(result.Errors, e.Error())
			}
			if err := outputResult(cmd.OutOrStdout(), c.format, result); err != nil {
				return err
			}
			c.logger.Info("check finished",
				"files", totals.Files, "checked", totals.Checked, "cached", totals.Cached,
				"findings", totals.Findings, "duration", time.Since(start).Round(time.Millisecond))

			if len(checkErrs) > 0 {
				return fmt.Errorf("checking had %d error(s): %w", len(checkErrs), checkErrs[0])
			}
			if len(report.Findings) > 0 {
				return errFindingsReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete the cache and check everything")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "concurrent files (default: number of CPUs)")
	cmd.Flags().BoolVar(&serial, "serial", false, "check one file at a time")
	return cmd
}

// runChecks checks directories one by one and named files together, and
// merges the reports. Per-file errors are returned separately; the
// returned error means nothing could be reported.
func runChecks(ctx context.Context, engine *hookdeps.Engine, targets []string) (*hookdeps.Report, []error, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	merged := &hookdeps.Report{Files: []string{}, Findings: []hookdeps.Finding{}}
	var checkErrs []error
	add := func(r *hookdeps.Report, err error) error {
		if r == nil {
			return err
		}
		if err != nil {
			checkErrs = append(checkErrs, err)
		}
		merged.Files = append(merged.Files, r.Files...)
		merged.Checked += r.Checked
		merged.Cached += r.Cached
		merged.Findings = append(merged.Findings, r.Findings...)
		return nil
	}

	var files []string
	for _, t := range targets {
		info, err := os.Stat(t)
		if err != nil {
			return nil, nil, fmt.Errorf("path not found: %s", t)
		}
		if !info.IsDir() {
			files = append(files, t)
			continue
		}
		if err := add(engine.CheckDirectory(ctx, t)); err != nil {
			return nil, nil, err
		}
	}
	if len(files) > 0 {
		if err := add(engine.CheckFiles(ctx, files)); err != nil {
			return nil, nil, err
		}
	}
	return merged, checkErrs, nil
}

// repoRootFor returns the repository root above target, which may be a
// file or a directory.
func repoRootFor(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("path not found: %s", target)
	}
	dir := target
	if !info.IsDir() {
		dir = filepath.Dir(target)
	}
	return findRepoRoot(dir), nil
}
