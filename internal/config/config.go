// Package config handles configuration loading for Stock Unlock.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm"           yaml:"llm"`
	MarketData   MarketDataConfig   `mapstructure:"market_data"   yaml:"market_data"`
	Directory    DirectoryConfig    `mapstructure:"directory"     yaml:"directory"`
	Conversation ConversationConfig `mapstructure:"conversation"  yaml:"conversation"`
	News         NewsConfig         `mapstructure:"news"          yaml:"news"`
	API          APIConfig          `mapstructure:"api"           yaml:"api"`
	Logging      LoggingConfig      `mapstructure:"logging"       yaml:"logging"`
}

// LLMConfig holds generation-collaborator configuration.
type LLMConfig struct {
	OpenAIKey   string  `mapstructure:"openai_key"   yaml:"openai_key"`
	Model       string  `mapstructure:"model"        yaml:"model"`
	Temperature float64 `mapstructure:"temperature"  yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"   yaml:"max_tokens"`
	Moderation  bool    `mapstructure:"moderation"   yaml:"moderation"`
}

// MarketDataConfig holds settings for the US market-data collaborator.
type MarketDataConfig struct {
	APIKey       string `mapstructure:"api_key"        yaml:"api_key"`
	BaseURL      string `mapstructure:"base_url"       yaml:"base_url"`
	HistoryDays  int    `mapstructure:"history_days"   yaml:"history_days"`  // daily closes to request
	CacheTTLSec  int    `mapstructure:"cache_ttl_sec"  yaml:"cache_ttl_sec"`
	RateLimitRPS int    `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
}

// DirectoryConfig holds settings for the NIFTY 500 reference table.
// An empty CSVPath means the embedded snapshot is used.
type DirectoryConfig struct {
	CSVPath string `mapstructure:"csv_path" yaml:"csv_path"`
}

// ConversationConfig holds the heuristic classifier thresholds. These are
// deliberate policy constants, tunable independently of the algorithms that
// consume them.
type ConversationConfig struct {
	SymbolMinLen     int      `mapstructure:"symbol_min_len"    yaml:"symbol_min_len"`
	SymbolMaxLen     int      `mapstructure:"symbol_max_len"    yaml:"symbol_max_len"`
	GreetingKeywords []string `mapstructure:"greeting_keywords" yaml:"greeting_keywords"`
}

// NewsConfig holds market-news feed settings.
type NewsConfig struct {
	Enabled  bool `mapstructure:"enabled"   yaml:"enabled"`
	MaxItems int  `mapstructure:"max_items" yaml:"max_items"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockunlock/config.yaml (home directory)
//  3. /etc/stockunlock/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKUNLOCK_<SECTION>_<KEY>, e.g., STOCKUNLOCK_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockunlock"))
	v.AddConfigPath("/etc/stockunlock")

	v.SetEnvPrefix("STOCKUNLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("STOCKUNLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.moderation", true)

	// Market data defaults
	v.SetDefault("market_data.base_url", "https://api.twelvedata.com")
	v.SetDefault("market_data.history_days", 400) // covers the 252-day return window
	v.SetDefault("market_data.cache_ttl_sec", 300)
	v.SetDefault("market_data.rate_limit_rps", 5)

	// Directory defaults (empty path → embedded NIFTY 500 snapshot)
	v.SetDefault("directory.csv_path", "")

	// Conversation classifier thresholds
	v.SetDefault("conversation.symbol_min_len", 1)
	v.SetDefault("conversation.symbol_max_len", 15)
	v.SetDefault("conversation.greeting_keywords",
		[]string{"hi", "hello", "help", "stock", "analyse", "analyze", "research"})

	// News defaults
	v.SetDefault("news.enabled", true)
	v.SetDefault("news.max_items", 5)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("STOCKUNLOCK_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("STOCKUNLOCK_MARKET_DATA_API_KEY"); key != "" {
		cfg.MarketData.APIKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
