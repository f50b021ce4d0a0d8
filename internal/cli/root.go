// Package cli implements the ls2fonduer command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/irgroup/labelstudio-to-fonduer/internal/cache"
	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
	"github.com/irgroup/labelstudio-to-fonduer/internal/store"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ls2fonduer",
	Short: "Reconcile annotation-tool spans with a sentence store",
	Long: `ls2fonduer moves span annotations between a web annotation tool and a
sentence-segmented document store.

The annotation tool reports spans as element paths relative to the rendered
HTML plus character offsets. The store keys sentences by absolute element
paths. ls2fonduer normalizes the corpus so both sides see identical bytes,
aligns exported annotations with stored sentences, builds gold tables for
candidate evaluation, and projects candidates back into the tool's import
format.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.ls2fonduer/config.yaml)")
	rootCmd.PersistentFlags().String("store", "", "sentence store database file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text or json)")

	// Bind flags to viper
	_ = viper.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.ls2fonduer")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match LS2FD_*
	viper.SetEnvPrefix("LS2FD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// loadConfig materializes the effective configuration: defaults, then the
// config file, then LS2FD_* environment variables, then bound flags.
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	setDefaults(cfg)
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = model.DefaultConfig().Store.DSN
	}
	return cfg, nil
}

// setDefaults registers every key with viper so environment overrides
// resolve even when the config file omits them.
func setDefaults(d model.Config) {
	viper.SetDefault("store.driver", d.Store.Driver)
	viper.SetDefault("labelstudio.url", d.LabelStudio.URL)
	viper.SetDefault("labelstudio.api_key", d.LabelStudio.APIKey)
	viper.SetDefault("labelstudio.timeout", d.LabelStudio.Timeout)
	viper.SetDefault("labelstudio.rate_limit", d.LabelStudio.RateLimit)
	viper.SetDefault("labelstudio.burst", d.LabelStudio.Burst)
	viper.SetDefault("labelstudio.proxy", d.LabelStudio.Proxy)
	viper.SetDefault("align.wrappers", d.Align.Wrappers)
	viper.SetDefault("align.ambiguous", d.Align.Ambiguous)
	viper.SetDefault("align.workers", d.Align.Workers)
	viper.SetDefault("convert.flatten", d.Convert.Flatten)
	viper.SetDefault("convert.glob", d.Convert.Glob)
	viper.SetDefault("ingest.glob", d.Ingest.Glob)
	viper.SetDefault("gold.unordered", d.Gold.Unordered)
	viper.SetDefault("gold.with_candidates", d.Gold.WithCandidates)
	viper.SetDefault("cache.enabled", d.Cache.Enabled)
	viper.SetDefault("cache.ttl", d.Cache.TTL)
	viper.SetDefault("watch.debounce", d.Watch.Debounce)
	viper.SetDefault("watch.metrics_addr", d.Watch.MetricsAddr)
}

// newLogger builds the process logger from config. Components receive it
// explicitly; there is no package-level logger.
func newLogger(cfg model.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func openStore(cfg model.Config) (*store.SQLite, error) {
	st, err := store.NewSQLite(cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.DSN, err)
	}
	return st, nil
}

// newTrees returns the parsed-tree cache, or nil when caching is disabled.
func newTrees(cfg model.CacheConfig) *cache.Trees {
	if !cfg.Enabled {
		return nil
	}
	return cache.NewTrees(cfg.TTL)
}
