package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/hookdeps"
)

// queryFlags are the filters shared by findings and summary.
type queryFlags struct {
	kinds      []string
	hook       string
	dependency string
	path       string
	language   string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&q.kinds, "kind", nil, "finding kinds to include (repeatable)")
	cmd.Flags().StringVar(&q.hook, "hook", "", "only findings of this hook")
	cmd.Flags().StringVar(&q.dependency, "dependency", "", "only findings about this dependency path")
	cmd.Flags().StringVar(&q.path, "path", "", "only files at or below this path")
	cmd.Flags().StringVar(&q.language, "language", "", "only files of this language (javascript, typescript, tsx)")
}

func (c *cli) filter(q *queryFlags) (hookdeps.FindingFilter, error) {
	f := hookdeps.FindingFilter{
		Kinds:      q.kinds,
		Hook:       q.hook,
		Dependency: q.dependency,
		Language:   q.language,
	}
	if q.path != "" {
		p, err := c.resolvePath(q.path)
		if err != nil {
			return f, err
		}
		f.PathPrefix = p
	}
	return f, nil
}

// openCache opens the existing cache of the repository containing the
// working directory. Querying never checks files, so a missing cache is an
// error rather than an empty result.
func (c *cli) openCache(cmd *cobra.Command) (*hookdeps.Engine, error) {
	wd, err := c.workDir()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(findRepoRoot(wd), c.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	dbPath := cfg.DBPath()
	if dbPath == "" {
		return nil, fmt.Errorf("the cache is disabled; nothing to query")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no cache at %s; run hookdeps check first", dbPath)
	}
	engine, err := hookdeps.New(dbPath, append(cfg.Options(), hookdeps.WithLogger(c.logger))...)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	if engine.ConfigChanged() {
		c.logger.Warn("configuration changed since the last check; cached findings may be stale")
	}
	return engine, nil
}

func (c *cli) newFindingsCmd() *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "findings",
		Short: "List cached findings",
		Long:  "Lists findings from the last check without re-checking any file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := c.filter(q)
			if err != nil {
				return err
			}
			engine, err := c.openCache(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			found, err := engine.Query().Findings(filter)
			if err != nil {
				return err
			}
			wd, err := c.workDir()
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), c.format, CLIResult{
				Command: "findings",
				Results: toCLIFindings(wd, found),
			})
		},
	}
	q.register(cmd)
	return cmd
}

func (c *cli) newSummaryCmd() *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count cached files, hook calls and findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := c.filter(q)
			if err != nil {
				return err
			}
			engine, err := c.openCache(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			sum, err := engine.Query().Summary(filter)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), c.format, CLIResult{
				Command: "summary",
				Results: CLISummary{Files: sum.Files, Calls: sum.Calls, Findings: sum.Findings},
			})
		},
	}
	q.register(cmd)
	return cmd
}
