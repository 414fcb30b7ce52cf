// Package config defines the configuration object consumed by every
// component in this module. Loading it from a file or the environment is
// an external collaborator's job; this package only defines the struct,
// its sub-structures, and sane defaults, following the "config object
// fan-in" pattern: every knob is enumerated up front and grouped by the
// component that reads it, with no dynamic lookups at call sites.
package config

import "time"

// RateLimitConfig holds C1's dual token-bucket knobs.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	TokensPerMinute   int           `yaml:"tokens_per_minute"`
	MaxRetries        int           `yaml:"max_retries"`
	BaseBackoff       time.Duration `yaml:"base_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
}

// ConcurrencyConfig holds the only concurrency knobs in the system.
type ConcurrencyConfig struct {
	MaxConcurrentFiles     int `yaml:"max_concurrent_files"`
	MaxConcurrentFunctions int `yaml:"max_concurrent_functions"`
}

// PAConfig holds C7's convergence-loop knobs.
type PAConfig struct {
	MaxIterations  int `yaml:"max_iterations"`
	BatchSize      int `yaml:"batch_size"`
	MaxFileBytes   int `yaml:"max_file_bytes"`
	Retries        int `yaml:"retries"`
	StopHigh       int `yaml:"stop_high"`
	StopOK         int `yaml:"stop_ok"`
	StopAvg        int `yaml:"stop_avg"`
	TreeMaxDepth   int `yaml:"tree_max_depth"`
	TreeMaxPerDir  int `yaml:"tree_max_per_dir"`
}

// ChunkConfig holds C8's splitting knobs.
type ChunkConfig struct {
	MaxTokens     int `yaml:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// ScannerConfig holds C4's walk knobs.
type ScannerConfig struct {
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// StorageConfig names where C2 and C3 persist state.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// Config is the fully-populated configuration object whose sub-structures
// the CLI hands to the component constructors; no component reads Scanner
// (every scanner.Scan call builds its own scanner.Config). Construction, file parsing, and
// environment overlay are out of scope here; callers hand in a *Config
// already resolved.
type Config struct {
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	PA          PAConfig          `yaml:"pa"`
	Chunk       ChunkConfig       `yaml:"chunk"`
	Scanner     ScannerConfig     `yaml:"scanner"`
	Storage     StorageConfig     `yaml:"storage"`
}

// Default returns a Config with the values spec'd as plausible defaults
// for the PA convergence thresholds and the concurrency/rate-limit knobs.
func Default() *Config {
	return &Config{
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			TokensPerMinute:   90000,
			MaxRetries:        5,
			BaseBackoff:       time.Second,
			MaxBackoff:        2 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			MaxConcurrentFiles:     5,
			MaxConcurrentFunctions: 4,
		},
		PA: PAConfig{
			MaxIterations: 12,
			BatchSize:     5,
			MaxFileBytes:  20000,
			Retries:       3,
			StopHigh:      90,
			StopOK:        70,
			StopAvg:       80,
			TreeMaxDepth:  4,
			TreeMaxPerDir: 30,
		},
		Chunk: ChunkConfig{
			MaxTokens:     6000,
			OverlapTokens: 500,
		},
		Scanner: ScannerConfig{
			Include:     []string{"**"},
			Exclude:     DefaultExcludes,
			MaxFileSize: 2 << 20,
		},
		Storage: StorageConfig{
			Root: ".semindex",
		},
	}
}

// DefaultExcludes are the glob patterns Default puts in Scanner.Exclude.
// Scans do not apply them; the scanner skips its own DefaultExcludeDirs
// plus whatever include/exclude globs its caller passes.
var DefaultExcludes = []string{
	".git/**",
	"vendor/**",
	"node_modules/**",
	"__pycache__/**",
	"dist/**",
	"build/**",
	".next/**",
	"target/**",
	".venv/**",
	".idea/**",
	".vscode/**",
	"*.min.js",
	"*.min.css",
	"*.lock",
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	switch {
	case c.RateLimit.RequestsPerMinute <= 0:
		return errInvalid("rate_limit.requests_per_minute must be positive")
	case c.RateLimit.TokensPerMinute <= 0:
		return errInvalid("rate_limit.tokens_per_minute must be positive")
	case c.Concurrency.MaxConcurrentFiles <= 0:
		return errInvalid("concurrency.max_concurrent_files must be positive")
	case c.Concurrency.MaxConcurrentFunctions <= 0:
		return errInvalid("concurrency.max_concurrent_functions must be positive")
	case c.Chunk.MaxTokens <= 0:
		return errInvalid("chunk.max_tokens must be positive")
	case c.Chunk.OverlapTokens < 0 || c.Chunk.OverlapTokens >= c.Chunk.MaxTokens:
		return errInvalid("chunk.overlap_tokens must be in [0, max_tokens)")
	case c.Storage.Root == "":
		return errInvalid("storage.root is required")
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return string(e) }

func errInvalid(msg string) error { return validationError(msg) }
