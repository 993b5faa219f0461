package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// errFindingsReported makes the process exit with status 1 without printing
// an error: the findings themselves are the output.
var errFindingsReported = errors.New("findings reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errFindingsReported) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}
}

// cli holds the persistent flags and the per-run logger.
type cli struct {
	dir        string
	configPath string
	dbPath     string
	format     string
	logFile    string
	verbose    bool
	noCache    bool

	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "hookdeps",
		Short: "Check hook dependency arrays in JavaScript and TypeScript",
		Long: `hookdeps checks that useEffect, useMemo, useCallback and configured hooks
list exactly the values their closure captures in the dependency array.
Results are cached in a SQLite database so unchanged files are not re-checked.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(c.format); err != nil {
				return err
			}
			c.logger, c.logCloser = newLogger(c.logFile, c.verbose, cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logCloser != nil {
				c.logCloser.Close()
			}
		},
		// No Run: prints help by default.
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.dir, "dir", "C", "", "run as if started in this directory")
	flags.StringVar(&c.configPath, "config", "", "configuration file (default: hookdeps.yaml at the repository root)")
	flags.StringVar(&c.dbPath, "db", "", "cache database path (default: .hookdeps/cache.db relative to repo root)")
	flags.BoolVar(&c.noCache, "no-cache", false, "keep results in memory only")
	flags.StringVar(&c.format, "format", "text", "output format: json|text")
	flags.StringVar(&c.logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(
		c.newCheckCmd(),
		c.newFindingsCmd(),
		c.newSummaryCmd(),
		c.newHooksCmd(),
		c.newInitCmd(),
	)
	return root
}

// workDir returns the absolute directory relative paths resolve against.
func (c *cli) workDir() (string, error) {
	dir := c.dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	return abs, nil
}

// resolvePath makes p absolute against the working directory.
func (c *cli) resolvePath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	wd, err := c.workDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// displayPath shortens p relative to base when p lies below it.
func displayPath(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return p
	}
	return rel
}
