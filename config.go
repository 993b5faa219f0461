package hookdeps

import (
	"fmt"

	"github.com/jward/hookdeps/internal/depcheck"
	"github.com/jward/hookdeps/internal/hooks"
)

// Config is the decoded hookdeps.yaml.
type Config struct {
	Hooks   []HookConfig  `mapstructure:"hooks" yaml:"hooks"`
	Sources []string      `mapstructure:"sources" yaml:"sources,omitempty"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Scripts ScriptsConfig `mapstructure:"scripts" yaml:"scripts"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
}

// ReportConfig switches the optional finding kinds.
type ReportConfig struct {
	Unnecessary  bool `mapstructure:"unnecessary" yaml:"unnecessary"`
	MissingArray bool `mapstructure:"missingArray" yaml:"missingArray"`
	Unstable     bool `mapstructure:"unstable" yaml:"unstable"`
	TooDeep      bool `mapstructure:"tooDeep" yaml:"tooDeep"`
}

// ScriptsConfig lists Risor hook scripts run against every file. Files are
// relative to Dir.
type ScriptsConfig struct {
	Dir   string   `mapstructure:"dir" yaml:"dir,omitempty"`
	Files []string `mapstructure:"files" yaml:"files,omitempty"`
}

// CacheConfig locates the result cache.
type CacheConfig struct {
	Path     string `mapstructure:"path" yaml:"path"`
	Disabled bool   `mapstructure:"disabled" yaml:"disabled"`
}

// DefaultCachePath is where the CLI keeps its cache unless configured.
const DefaultCachePath = ".hookdeps/cache.db"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Hooks:   []HookConfig{},
		Sources: append([]string(nil), hooks.DefaultSources...),
		Report:  ReportConfig{Unnecessary: true},
		Cache:   CacheConfig{Path: DefaultCachePath},
	}
}

// Validate checks every hook entry.
func (c Config) Validate() error {
	if _, err := hooks.NewRegistry(c.Hooks, c.Sources); err != nil {
		return fmt.Errorf("hookdeps: invalid configuration: %w", err)
	}
	for i, f := range c.Scripts.Files {
		if f == "" {
			return fmt.Errorf("hookdeps: invalid configuration: scripts.files[%d] is empty", i)
		}
	}
	return nil
}

// ReportOptions converts the report section.
func (c Config) ReportOptions() ReportOptions {
	return depcheck.Options{
		ReportUnnecessary:  c.Report.Unnecessary,
		ReportMissingArray: c.Report.MissingArray,
		ReportUnstable:     c.Report.Unstable,
		ReportTooDeep:      c.Report.TooDeep,
	}
}

// DBPath returns the cache path New should open; "" for an in-memory cache.
func (c Config) DBPath() string {
	if c.Cache.Disabled {
		return ""
	}
	if c.Cache.Path == "" {
		return DefaultCachePath
	}
	return c.Cache.Path
}

// Options returns the Engine options the configuration implies.
func (c Config) Options() []Option {
	opts := []Option{
		WithHooks(c.Hooks...),
		WithSources(c.Sources...),
		WithReportOptions(c.ReportOptions()),
	}
	if c.Scripts.Dir != "" {
		opts = append(opts, WithScriptsDir(c.Scripts.Dir))
	}
	if len(c.Scripts.Files) > 0 {
		opts = append(opts, WithHookScripts(c.Scripts.Files...))
	}
	return opts
}
