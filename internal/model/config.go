package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the full runtime configuration. Values are layered by the
// CLI: flags over PLAINVIEW_* environment variables over the config file
// over DefaultConfig.
type Config struct {
	Mode   string `yaml:"mode" mapstructure:"mode"`
	Format string `yaml:"format" mapstructure:"format"` // text, json, or both

	Rules  RulesConfig  `yaml:"rules" mapstructure:"rules"`
	Oracle OracleConfig `yaml:"oracle" mapstructure:"oracle"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Audit  AuditConfig  `yaml:"audit" mapstructure:"audit"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
}

// RulesConfig controls ruleset loading and confidence policy.
type RulesConfig struct {
	// Path points at an external ruleset file or directory. Empty means
	// the embedded default ruleset.
	Path string `yaml:"path" mapstructure:"path"`

	// ConfidenceFloor downgrades any classification whose confidence
	// falls below it to unknown rather than presenting it as settled.
	ConfidenceFloor float64 `yaml:"confidence_floor" mapstructure:"confidence_floor"`

	// DefaultCameraConfidence is reported for events that pass every
	// camera gate without a rule supplying its own confidence.
	DefaultCameraConfidence float64 `yaml:"default_camera_confidence" mapstructure:"default_camera_confidence"`

	// EventThreshold is the minimum camera confidence for an event to be
	// presented as observed rather than as a narrative excerpt.
	EventThreshold float64 `yaml:"event_threshold" mapstructure:"event_threshold"`
}

// OracleConfig selects and tunes the decomposition oracle.
type OracleConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"` // heuristic, openai, ollama
	Model      string        `yaml:"model" mapstructure:"model"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey     string        `yaml:"-" mapstructure:"api_key"` // env only, never written to disk
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// FetchConfig tunes URL ingestion.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	Proxy         string        `yaml:"proxy" mapstructure:"proxy"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"` // for self-signed certs
}

// CacheConfig tunes the oracle response cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir        string        `yaml:"dir" mapstructure:"dir"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
}

// ServerConfig tunes the HTTP transform service.
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	WatchRules   bool          `yaml:"watch_rules" mapstructure:"watch_rules"`
}

// AuditConfig controls the local run ledger.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DBPath  string `yaml:"db_path" mapstructure:"db_path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// BatchConfig tunes parallel batch transforms.
type BatchConfig struct {
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
	FailFast    bool `yaml:"fail_fast" mapstructure:"fail_fast"`
}

// OutputConfig controls report emission.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults, the lowest layer of the
// configuration hierarchy.
func DefaultConfig() *Config {
	return &Config{
		Mode:   string(ModeStrict),
		Format: "text",
		Rules: RulesConfig{
			Path:                    "",
			ConfidenceFloor:         0.3,
			DefaultCameraConfidence: 0.9,
			EventThreshold:          0.7,
		},
		Oracle: OracleConfig{
			Provider:   "heuristic",
			Model:      "gpt-4o-mini",
			BaseURL:    "",
			Timeout:    60 * time.Second,
			MaxRetries: 2,
		},
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "plainview/1.0 (+https://github.com/plainview/plainview)",
			RateLimit:     1.0,
			RespectRobots: true,
			MaxBodyBytes:  10 << 20,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Dir:        filepath.Join(configHome(), "cache"),
			TTL:        24 * time.Hour,
			MaxEntries: 10000,
		},
		Server: ServerConfig{
			Addr:         ":8787",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxBodyBytes: 1 << 20,
			WatchRules:   false,
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  filepath.Join(configHome(), "audit.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Batch: BatchConfig{
			Concurrency: 4,
			FailFast:    false,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}

// configHome is ~/.plainview, falling back to the working directory
// when the home directory cannot be determined.
func configHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".plainview"
	}
	return filepath.Join(home, ".plainview")
}
