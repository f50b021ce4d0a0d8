package model

import "time"

// Config is the full runtime configuration, assembled from defaults, the
// config file, LS2FD_* environment variables and CLI flags.
type Config struct {
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
	LabelStudio LabelStudioConfig `mapstructure:"labelstudio" yaml:"labelstudio"`
	Align       AlignConfig       `mapstructure:"align" yaml:"align"`
	Convert     ConvertConfig     `mapstructure:"convert" yaml:"convert"`
	Ingest      IngestConfig      `mapstructure:"ingest" yaml:"ingest"`
	Gold        GoldConfig        `mapstructure:"gold" yaml:"gold"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Watch       WatchConfig       `mapstructure:"watch" yaml:"watch"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// StoreConfig locates the downstream sentence store.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // Only sqlite3 is supported
	DSN    string `mapstructure:"dsn" yaml:"dsn"`       // Database file path
}

// LabelStudioConfig configures the annotation tool API client.
type LabelStudioConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Burst     int           `mapstructure:"burst" yaml:"burst"`
	Proxy     string        `mapstructure:"proxy" yaml:"proxy"` // Empty means environment proxy
}

// AlignConfig tunes the alignment engine.
type AlignConfig struct {
	// Wrappers are inline tags whose text the downstream parser folds into
	// the enclosing container. Resolved paths never end at one of these.
	Wrappers []string `mapstructure:"wrappers" yaml:"wrappers"`
	// Ambiguous picks the policy for entities matching more than one
	// sentence: "discard" records a failure, "lowest-unit" keeps the
	// sentence with the smallest id.
	Ambiguous string `mapstructure:"ambiguous" yaml:"ambiguous"`
	Workers   int    `mapstructure:"workers" yaml:"workers"` // Batch-mode concurrency
}

// ConvertConfig tunes the HTML normalizer.
type ConvertConfig struct {
	Flatten []string `mapstructure:"flatten" yaml:"flatten"` // Tags spliced away entirely
	Glob    string   `mapstructure:"glob" yaml:"glob"`
}

// IngestConfig tunes the sentence ingester.
type IngestConfig struct {
	Glob string `mapstructure:"glob" yaml:"glob"`
}

// GoldConfig tunes gold table construction and the oracle.
type GoldConfig struct {
	// Unordered makes relation matching ignore endpoint order.
	Unordered bool `mapstructure:"unordered" yaml:"unordered"`
	// WithCandidates adds every considered sentence to the CSV export.
	WithCandidates bool `mapstructure:"with_candidates" yaml:"with_candidates"`
}

// CacheConfig tunes the parsed-tree cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce    time.Duration `mapstructure:"debounce" yaml:"debounce"`
	MetricsAddr string        `mapstructure:"metrics_addr" yaml:"metrics_addr"` // Empty disables the endpoint
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Driver: "sqlite3",
			DSN:    "ls2fonduer.db",
		},
		LabelStudio: LabelStudioConfig{
			URL:       "http://localhost:8080",
			Timeout:   30 * time.Second,
			RateLimit: 5,
			Burst:     5,
		},
		Align: AlignConfig{
			Wrappers:  []string{"span", "em"},
			Ambiguous: AmbiguousDiscard,
			Workers:   4,
		},
		Convert: ConvertConfig{
			Flatten: []string{"em"},
			Glob:    "**/*.html",
		},
		Ingest: IngestConfig{
			Glob: "**/*.html",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Ambiguity policies accepted by AlignConfig.Ambiguous.
const (
	AmbiguousDiscard    = "discard"
	AmbiguousLowestUnit = "lowest-unit"
)
