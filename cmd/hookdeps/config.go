package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jward/hookdeps"
)

const (
	configBaseName = "hookdeps"
	configFileName = configBaseName + ".yaml"

	envPrefix = "HOOKDEPS"

	cachePathKey     = "cache.path"
	cacheDisabledKey = "cache.disabled"

	logMaxSize    = 10
	logMaxBackups = 3
	logMaxAge     = 28
)

// loadConfig reads the configuration for the repository at root. An
// explicit file must exist; otherwise hookdeps.yaml at root is optional.
// Environment variables (HOOKDEPS_REPORT_UNSTABLE, ...) and the --db and
// --no-cache flags override the file. Relative paths resolve against root.
func loadConfig(root, file string, flags *pflag.FlagSet) (hookdeps.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := hookdeps.DefaultConfig()
	v.SetDefault("hooks", []any{})
	v.SetDefault("sources", def.Sources)
	v.SetDefault("report.unnecessary", def.Report.Unnecessary)
	v.SetDefault("report.missingArray", def.Report.MissingArray)
	v.SetDefault("report.unstable", def.Report.Unstable)
	v.SetDefault("report.tooDeep", def.Report.TooDeep)
	v.SetDefault("scripts.dir", "")
	v.SetDefault("scripts.files", []string{})
	v.SetDefault(cachePathKey, def.Cache.Path)
	v.SetDefault(cacheDisabledKey, def.Cache.Disabled)

	if flags != nil {
		for key, name := range map[string]string{cachePathKey: "db", cacheDisabledKey: "no-cache"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return hookdeps.Config{}, fmt.Errorf("binding --%s: %w", name, err)
				}
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return hookdeps.Config{}, fmt.Errorf("reading %s: %w", file, err)
		}
	} else {
		v.SetConfigName(configBaseName)
		v.AddConfigPath(root)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return hookdeps.Config{}, fmt.Errorf("reading %s: %w", configFileName, err)
			}
		}
	}

	var cfg hookdeps.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return hookdeps.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return hookdeps.Config{}, err
	}

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = hookdeps.DefaultCachePath
	}
	if !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(root, cfg.Cache.Path)
	}
	if cfg.Scripts.Dir == "" && len(cfg.Scripts.Files) > 0 {
		cfg.Scripts.Dir = root
	} else if cfg.Scripts.Dir != "" && !filepath.IsAbs(cfg.Scripts.Dir) {
		cfg.Scripts.Dir = filepath.Join(root, cfg.Scripts.Dir)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Without a log file only warnings reach
// stderr; --verbose lowers the level to debug either way.
func newLogger(logFile string, verbose bool, stderr io.Writer) (*slog.Logger, io.Closer) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	if strings.TrimSpace(logFile) == "" {
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})), nil
	}

	if !verbose {
		level = slog.LevelInfo
	}
	w := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAge,
		Compress:   true,
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: verbose,
		Level:     level,
	})
	return slog.New(handler), w
}
