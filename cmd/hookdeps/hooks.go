package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jward/hookdeps"
)

func (c *cli) newHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "Show the effective hook table",
		Long: `Shows the built-in hooks merged with the configured ones. Hooks defined by
hook scripts depend on each file's imports and are not listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := c.workDir()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(findRepoRoot(wd), c.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			engine, err := hookdeps.New("", append(cfg.Options(), hookdeps.WithLogger(c.logger))...)
			if err != nil {
				return err
			}
			defer engine.Close()

			return outputResult(cmd.OutOrStdout(), c.format, CLIResult{
				Command: "hooks",
				Results: toCLIHooks(engine.Hooks(), engine.Sources()),
			})
		},
	}
}

func (c *cli) newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default hookdeps.yaml",
		Long: `Creates hookdeps.yaml in the given directory (default: the repository
root) populated with the default configuration so it can be edited.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := c.workDir()
			if err != nil {
				return err
			}
			dir := findRepoRoot(wd)
			if len(args) > 0 {
				if dir, err = c.resolvePath(args[0]); err != nil {
					return err
				}
			}
			target := filepath.Join(dir, configFileName)

			if !force {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", target)
				}
			}

			data, err := yaml.Marshal(hookdeps.DefaultConfig())
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			return outputResult(cmd.OutOrStdout(), c.format, CLIResult{
				Command: "init",
				Results: "Wrote " + displayPath(wd, target),
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
