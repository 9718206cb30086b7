package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ATIM_COMPOSER_API_KEY.
const EnvPrefix = "ATIM"

// Config represents the complete application configuration
type Config struct {
	Trends   TrendsConfig   `mapstructure:"trends"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Composer ComposerConfig `mapstructure:"composer"`
	Context  ContextConfig  `mapstructure:"context"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Output   OutputConfig   `mapstructure:"output"`
}

// TrendsConfig holds trend source API configuration
type TrendsConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeframe         string        `mapstructure:"timeframe"`
	Geo               string        `mapstructure:"geo"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheSize         int           `mapstructure:"cache_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
	Concurrency       int           `mapstructure:"concurrency"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
}

// AnalysisConfig holds the default run parameters
type AnalysisConfig struct {
	MaxKeywords        int      `mapstructure:"max_keywords"`
	MinConfidence      float64  `mapstructure:"min_confidence"`
	FallbackSampleSize int      `mapstructure:"fallback_sample_size"`
	AdditionalKeywords []string `mapstructure:"additional_keywords"`
	DefaultKeywords    []string `mapstructure:"default_keywords"` // scored when the inventory names no products
}

// ComposerConfig selects and configures the recommendation writer
type ComposerConfig struct {
	Provider    string        `mapstructure:"provider"` // ollama or template
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
}

// ContextConfig holds the seasonal context passed to the composer
type ContextConfig struct {
	Season         string   `mapstructure:"season"`
	UpcomingEvents []string `mapstructure:"upcoming_events"`
}

// ServerConfig holds web front end configuration
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	PublicURL      string        `mapstructure:"public_url"`
	MaxUploadMB    int           `mapstructure:"max_upload_mb"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// StorageConfig holds report archive configuration
type StorageConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DBPath     string `mapstructure:"db_path"`
	MaxReports int    `mapstructure:"max_reports"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig holds terminal output configuration
type OutputConfig struct {
	Color string `mapstructure:"color"` // auto, always or never
}

// DefaultKeywords is the footwear catalogue scored when an inventory
// yields no product names.
var DefaultKeywords = []string{
	"chunky sneakers", "waterproof boots", "espadrilles",
	"ankle boots", "retro runners", "platform sandals",
	"minimalist running shoes", "suede boots", "canvas shoes",
	"running sneakers", "hiking boots", "dress shoes",
	"loafers", "high top sneakers", "slip on shoes",
}

// Load reads configuration from defaults, an optional .env file, the
// environment and the config file at path. An empty path skips the file.
// Values already set on v (for example bound command-line flags) take
// precedence; a nil v uses a fresh instance.
func Load(path string, v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Trend source defaults
	v.SetDefault("trends.base_url", "http://localhost:8090")
	v.SetDefault("trends.timeframe", "today 3-m")
	v.SetDefault("trends.geo", "US")
	v.SetDefault("trends.timeout", "30s")
	v.SetDefault("trends.max_retries", 3)
	v.SetDefault("trends.retry_delay_base", "1s")
	v.SetDefault("trends.requests_per_second", 2.0)
	v.SetDefault("trends.burst", 2)
	v.SetDefault("trends.cache_size", 512)
	v.SetDefault("trends.cache_ttl", "1h")
	v.SetDefault("trends.breaker_failures", 5)
	v.SetDefault("trends.breaker_cooldown", "1m")
	v.SetDefault("trends.concurrency", 4)
	v.SetDefault("trends.fetch_timeout", "20s")

	// Analysis defaults
	v.SetDefault("analysis.max_keywords", 15)
	v.SetDefault("analysis.min_confidence", 20.0)
	v.SetDefault("analysis.fallback_sample_size", 5)
	v.SetDefault("analysis.additional_keywords", []string{})
	v.SetDefault("analysis.default_keywords", DefaultKeywords)

	// Composer defaults
	v.SetDefault("composer.provider", "template")
	v.SetDefault("composer.base_url", "http://localhost:11434")
	v.SetDefault("composer.model", "llama3.1")
	v.SetDefault("composer.api_key", "")
	v.SetDefault("composer.timeout", "60s")
	v.SetDefault("composer.temperature", 0.4)

	// Context defaults
	v.SetDefault("context.season", "") // empty derives the season from the run date
	v.SetDefault("context.upcoming_events", []string{"Labor Day", "Back to School", "Fall Fashion Week"})

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.request_timeout", "4m")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Storage defaults
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.db_path", "./data/reports.db")
	v.SetDefault("storage.max_reports", 200)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Output defaults
	v.SetDefault("output.color", "auto")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate trend source config
	if c.Trends.BaseURL == "" {
		return fmt.Errorf("trends.base_url is required")
	}
	if c.Trends.Timeout <= 0 {
		return fmt.Errorf("trends.timeout must be positive")
	}
	if c.Trends.MaxRetries < 1 {
		return fmt.Errorf("trends.max_retries must be at least 1")
	}
	if c.Trends.RequestsPerSecond < 0 {
		return fmt.Errorf("trends.requests_per_second must not be negative")
	}
	if c.Trends.CacheSize < 0 {
		return fmt.Errorf("trends.cache_size must not be negative")
	}
	if c.Trends.BreakerFailures < 1 {
		return fmt.Errorf("trends.breaker_failures must be at least 1")
	}
	if c.Trends.Concurrency < 1 || c.Trends.Concurrency > 32 {
		return fmt.Errorf("trends.concurrency must be between 1 and 32")
	}

	// Validate analysis config
	if math.IsNaN(c.Analysis.MinConfidence) || math.IsInf(c.Analysis.MinConfidence, 0) {
		return fmt.Errorf("analysis.min_confidence must be a finite number")
	}
	if c.Analysis.FallbackSampleSize < 1 {
		return fmt.Errorf("analysis.fallback_sample_size must be at least 1")
	}

	// Validate composer config
	switch c.Composer.Provider {
	case "template":
	case "ollama":
		if c.Composer.BaseURL == "" {
			return fmt.Errorf("composer.base_url is required when composer.provider is ollama")
		}
		if c.Composer.Model == "" {
			return fmt.Errorf("composer.model is required when composer.provider is ollama")
		}
	default:
		return fmt.Errorf("composer.provider must be one of: ollama, template")
	}

	// Validate server config
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be at least 1")
	}

	// Validate storage config
	if c.Storage.Enabled && c.Storage.MaxReports < 1 {
		return fmt.Errorf("storage.max_reports must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Validate output config
	validColors := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColors[c.Output.Color] {
		return fmt.Errorf("output.color must be one of: auto, always, never")
	}

	return nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
