package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFilename is the default per-file name template
	DefaultFilename = "[post_id]_[file_id]"
	// DefaultSubdirName is the default per-post directory template
	DefaultSubdirName = "[fanclub_name]（[creator_name]）/[posted_short]_[title]_[post_id]"
	// DefaultUserAgent is sent with every Fantia request
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Config holds all configuration options for fantiadl
type Config struct {
	Fantia    FantiaConfig    `yaml:"fantia" json:"fantia"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Batch     BatchConfig     `yaml:"batch" json:"batch"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// FantiaConfig holds session settings for fantia.jp
type FantiaConfig struct {
	SessionID string `yaml:"session_id" json:"session_id"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
}

// OutputConfig holds the download layout
type OutputConfig struct {
	Directory  string `yaml:"directory" json:"directory"`
	Filename   string `yaml:"filename" json:"filename"`
	SubdirName string `yaml:"subdir_name" json:"subdir_name"`
}

// DownloadConfig holds per-post download behaviour
type DownloadConfig struct {
	Quiet               bool          `yaml:"quiet" json:"quiet"`
	ContinueOnError     bool          `yaml:"continue_on_error" json:"continue_on_error"`
	PostLimit           int           `yaml:"post_limit" json:"post_limit"`
	Month               string        `yaml:"month" json:"month"`
	ExcludeFile         string        `yaml:"exclude_file" json:"exclude_file"`
	DumpMetadata        bool          `yaml:"dump_metadata" json:"dump_metadata"`
	ParseExternalLinks  bool          `yaml:"parse_external_links" json:"parse_external_links"`
	DownloadThumbnail   bool          `yaml:"download_thumbnail" json:"download_thumbnail"`
	UseServerFilenames  bool          `yaml:"use_server_filenames" json:"use_server_filenames"`
	MarkIncompletePosts bool          `yaml:"mark_incomplete_posts" json:"mark_incomplete_posts"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
}

// BatchConfig holds the batch runner artifact locations
type BatchConfig struct {
	FanlistFile     string `yaml:"fanlist_file" json:"fanlist_file"`
	CompleteLogFile string `yaml:"complete_log_file" json:"complete_log_file"`
}

// RateLimitConfig holds the request token bucket settings
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds the HTTP retry policy
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay      time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" json:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fantia: FantiaConfig{
			UserAgent: DefaultUserAgent,
			BaseURL:   "https://fantia.jp",
		},
		Output: OutputConfig{
			Directory:  ".",
			Filename:   DefaultFilename,
			SubdirName: DefaultSubdirName,
		},
		Download: DownloadConfig{
			Timeout: 60 * time.Second,
		},
		Batch: BatchConfig{
			FanlistFile:     "fanList.json",
			CompleteLogFile: "fantia_complete.json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         5,
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialDelay:      2 * time.Second,
			MaxDelay:          30 * time.Second,
			BackoffMultiplier: 2.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from FANTIADL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	setString("FANTIADL_SESSION_ID", &c.Fantia.SessionID)
	setString("FANTIADL_USER_AGENT", &c.Fantia.UserAgent)
	setString("FANTIADL_OUTPUT_DIR", &c.Output.Directory)
	setString("FANTIADL_FILENAME", &c.Output.Filename)
	setString("FANTIADL_SUBDIR_NAME", &c.Output.SubdirName)
	setString("FANTIADL_FANLIST_FILE", &c.Batch.FanlistFile)
	setString("FANTIADL_COMPLETE_LOG_FILE", &c.Batch.CompleteLogFile)
	setString("FANTIADL_EXCLUDE_FILE", &c.Download.ExcludeFile)
	setString("FANTIADL_LOG_LEVEL", &c.Logging.Level)
	setString("FANTIADL_LOG_FILE", &c.Logging.File)
	setInt("FANTIADL_REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	setInt("FANTIADL_MAX_RETRIES", &c.Retry.MaxAttempts)
	setInt("FANTIADL_POST_LIMIT", &c.Download.PostLimit)
	setBool("FANTIADL_DUMP_METADATA", &c.Download.DumpMetadata)
	setBool("FANTIADL_CONTINUE_ON_ERROR", &c.Download.ContinueOnError)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"fantiadl.yaml",
		"fantiadl.yml",
		filepath.Join(home, ".config", "fantiadl", "config.yaml"),
		filepath.Join(home, ".config", "fantiadl", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.Filename == "" {
		errs = append(errs, errors.New("filename template is required"))
	}
	if c.Output.SubdirName == "" {
		errs = append(errs, errors.New("subdirectory template is required"))
	}

	if c.Download.PostLimit < 0 {
		errs = append(errs, errors.New("post limit cannot be negative"))
	}
	if c.Download.Month != "" && !monthPattern.MatchString(c.Download.Month) {
		errs = append(errs, fmt.Errorf("download month %q must be in YYYY-MM format", c.Download.Month))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Batch.FanlistFile == "" {
		errs = append(errs, errors.New("fan club list file is required"))
	}
	if c.Batch.CompleteLogFile == "" {
		errs = append(errs, errors.New("completion log file is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// MergeCommandLineFlags applies explicitly set command line flags.
// Keys use the long flag names; only present keys override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	str := func(key string, dst *string) {
		if v, ok := flags[key].(string); ok && v != "" {
			*dst = v
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := flags[key].(bool); ok {
			*dst = v
		}
	}

	str("cookie", &c.Fantia.SessionID)
	str("output-directory", &c.Output.Directory)
	str("download-month", &c.Download.Month)
	str("exclude", &c.Download.ExcludeFile)
	str("fanlist", &c.Batch.FanlistFile)
	str("complete-log", &c.Batch.CompleteLogFile)
	str("log-level", &c.Logging.Level)

	flag("quiet", &c.Download.Quiet)
	flag("ignore-errors", &c.Download.ContinueOnError)
	flag("use-server-filenames", &c.Download.UseServerFilenames)
	flag("mark-incomplete-posts", &c.Download.MarkIncompletePosts)
	flag("dump-metadata", &c.Download.DumpMetadata)
	flag("parse-for-external-links", &c.Download.ParseExternalLinks)
	flag("download-thumbnail", &c.Download.DownloadThumbnail)

	if v, ok := flags["limit"].(int); ok {
		c.Download.PostLimit = v
	}

	if c.Download.Quiet {
		c.Logging.Level = "error"
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".fantiadl.env"))
	}

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
