package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment variables that override file values. Secrets belong here rather
// than in the JSON file.
const (
	EnvGoogleAPIKey = "MASTATUS_GOOGLE_API_KEY"
	EnvGoogleCX     = "MASTATUS_GOOGLE_CX"
	EnvDisableAPI   = "MASTATUS_DISABLE_API"
	EnvDBPath       = "MASTATUS_DB_PATH"
)

// DefaultUserAgent mimics a desktop browser; many company sites reject bot agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all runtime configuration parameters
type Config struct {
	InputFiles       []string `json:"input_files"`
	RequestTimeoutMs int      `json:"request_timeout_ms" validate:"min=1000"`
	RetryAttempts    int      `json:"retry_attempts" validate:"min=1,max=10"`
	RetryDelayMs     int      `json:"retry_delay_ms" validate:"min=0"`
	MaxRedirects     int      `json:"max_redirects" validate:"min=1,max=50"`
	DelayMs          int      `json:"delay_between_requests_ms" validate:"min=0"`
	UserAgent        string   `json:"user_agent"`
	CheckpointEvery  int      `json:"checkpoint_every" validate:"min=1"`
	DBPath           string   `json:"db_path" validate:"required"`
	ResultsPath      string   `json:"results_path" validate:"required"`
	CheckpointPath   string   `json:"checkpoint_path"`
	XLSXPath         string   `json:"xlsx_path"`
	SummaryPath      string   `json:"summary_path" validate:"required"`
	MetricsPath      string   `json:"metrics_path"`
	TablesPath       string   `json:"tables_path"`
	Search           Search   `json:"search"`

	// Tables is populated from DefaultTables and TablesPath, never from the
	// main config file.
	Tables Tables `json:"-"`
}

// Search configures the corroborating web search backends.
type Search struct {
	APIKey         string `json:"api_key"`
	EngineID       string `json:"engine_id"`
	APIEndpoint    string `json:"api_endpoint" validate:"omitempty,url"`
	DisableAPI     bool   `json:"disable_api"`
	APITimeoutMs   int    `json:"api_timeout_ms" validate:"min=1000"`
	HTMLEndpoint   string `json:"html_endpoint" validate:"required,url"`
	HTMLTimeoutMs  int    `json:"html_timeout_ms" validate:"min=1000"`
	ResultsPerCall int    `json:"results_per_call" validate:"min=1,max=10"`
	BaseDelayMs    int    `json:"base_delay_ms" validate:"min=0"`
	MaxDelayMs     int    `json:"max_delay_ms" validate:"gtefield=BaseDelayMs"`
}

// RequestTimeout returns the site probe timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// RetryDelay returns the pause between probe attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Delay returns the mandatory pause after each company.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// APIEnabled reports whether the search API backend can be tried at all.
func (s *Search) APIEnabled() bool {
	return !s.DisableAPI && s.APIKey != ""
}

// Default returns a configuration with every default applied and no file loaded.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnv(cfg)
	cfg.Tables = DefaultTables()
	return cfg
}

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	// Defaults go in first so that fields absent from the file keep them and
	// an explicit 0 (no delay, no retry pause) is honored.
	var cfg Config
	applyDefaults(&cfg)

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyEnv(&cfg)

	cfg.Tables = DefaultTables()
	if cfg.TablesPath != "" {
		tables, err := LoadTables(cfg.TablesPath)
		if err != nil {
			return nil, err
		}
		cfg.Tables = tables
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 12000
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryDelayMs == 0 {
		cfg.RetryDelayMs = 1000
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.DelayMs == 0 {
		cfg.DelayMs = 1500
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.CheckpointEvery == 0 {
		cfg.CheckpointEvery = 20
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "mastatus.db"
	}
	if cfg.ResultsPath == "" {
		cfg.ResultsPath = "merger_analysis_results.csv"
	}
	if cfg.CheckpointPath == "" {
		cfg.CheckpointPath = "merger_results_temp.csv"
	}
	if cfg.SummaryPath == "" {
		cfg.SummaryPath = "merger_analysis_summary.json"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.json"
	}

	s := &cfg.Search
	if s.APITimeoutMs == 0 {
		s.APITimeoutMs = 10000
	}
	if s.HTMLEndpoint == "" {
		s.HTMLEndpoint = "https://www.google.com/search"
	}
	if s.HTMLTimeoutMs == 0 {
		s.HTMLTimeoutMs = 10000
	}
	if s.ResultsPerCall == 0 {
		s.ResultsPerCall = 10
	}
	if s.BaseDelayMs == 0 {
		s.BaseDelayMs = 1000
	}
	if s.MaxDelayMs == 0 {
		s.MaxDelayMs = 5000
	}
}

// applyEnv overlays environment variables on top of file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvGoogleAPIKey); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv(EnvGoogleCX); v != "" {
		cfg.Search.EngineID = v
	}
	if v := os.Getenv(EnvDisableAPI); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			cfg.Search.DisableAPI = disabled
		}
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
}

// Validate checks that values are present and sensible.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if err := cfg.Tables.validate(); err != nil {
		return err
	}
	return nil
}
