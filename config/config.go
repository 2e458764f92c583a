package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the deepsearch agent
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Research  ResearchConfig  `mapstructure:"research"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type       string              `mapstructure:"type"` // openai, anthropic, local, etc.
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for each stage of the loop
type LLMRoutingConfig struct {
	Planning  string `mapstructure:"planning"`  // query planning
	Decision  string `mapstructure:"decision"`  // sufficiency evaluation
	Summarize string `mapstructure:"summarize"` // per-page synthesis
	Answer    string `mapstructure:"answer"`    // final answer generation
	Fallback  string `mapstructure:"fallback"`
}

// ModelFor resolves a routing slot to a model key, falling back when unset.
func (r LLMRoutingConfig) ModelFor(slot string) string {
	m := ""
	switch slot {
	case "planning":
		m = r.Planning
	case "decision":
		m = r.Decision
	case "summarize":
		m = r.Summarize
	case "answer":
		m = r.Answer
	}
	if m == "" {
		m = r.Fallback
	}
	return m
}

// ResearchConfig controls the agent loop itself
type ResearchConfig struct {
	StepLimit            int           `mapstructure:"step_limit"`             // iterations before forcing an answer
	MaxQueries           int           `mapstructure:"max_queries"`            // queries per planning batch
	ResultsPerQuery      int           `mapstructure:"results_per_query"`      // raw results requested per query
	MaxConcurrentFetches int           `mapstructure:"max_concurrent_fetches"` // outbound search+scrape fan-out cap
	BlockedDomains       []string      `mapstructure:"blocked_domains"`        // domains known to block automated scraping
	StepTimeout          time.Duration `mapstructure:"step_timeout"`
}

func (r ResearchConfig) Validate() error {
	if r.StepLimit <= 0 {
		return fmt.Errorf("research.step_limit must be > 0")
	}
	if r.MaxQueries <= 0 || r.MaxQueries > 10 {
		return fmt.Errorf("research.max_queries must be in 1..10")
	}
	if r.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("research.max_concurrent_fetches must be > 0")
	}
	return nil
}

// SearchConfig contains web search provider settings
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // serper or brave
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// FetchConfig contains page fetching settings
type FetchConfig struct {
	Fetcher   string        `mapstructure:"fetcher"` // chromedp
	TimeoutMS time.Duration `mapstructure:"timeout_ms"`
	MaxChars  int           `mapstructure:"max_chars"`
}

// CacheConfig contains the optional summary cache settings
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("cache.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("cache.redis.port required")
	}
	return nil
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	MetricsPort  int    `mapstructure:"metrics_port"`
	CostTracking bool   `mapstructure:"cost_tracking"`
	LogFile      string `mapstructure:"log_file"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "120s")
	viper.SetDefault("llm.routing.fallback", "gpt-4o-mini")
	viper.SetDefault("research.step_limit", 10)
	viper.SetDefault("research.max_queries", 5)
	viper.SetDefault("research.results_per_query", 5)
	viper.SetDefault("research.max_concurrent_fetches", 8)
	viper.SetDefault("research.blocked_domains", []string{"reddit.com"})
	viper.SetDefault("research.step_timeout", "3m")
	viper.SetDefault("search.provider", "serper")
	viper.SetDefault("search.timeout", "15s")
	viper.SetDefault("fetch.fetcher", "chromedp")
	viper.SetDefault("fetch.timeout_ms", "15s")
	viper.SetDefault("fetch.max_chars", 20000)
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.ttl", "6h")
	viper.SetDefault("cache.redis.timeout", "5s")
	viper.SetDefault("telemetry.enabled", false)
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	setDefaults()

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("DEEPSEARCH")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (DEEPSEARCH_*)

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Research.Validate(); err != nil {
		panic(err)
	}
	if err := config.Telemetry.Validate(); err != nil {
		panic(err)
	}
	if config.Cache.Enabled {
		if err := config.Cache.Redis.Validate(); err != nil {
			panic(err)
		}
	}
	return &config
}

// Default returns a config with defaults applied and no file read. Useful for
// tests and for callers that configure everything through environment variables.
func Default() *Config {
	return &Config{
		General: GeneralConfig{LogLevel: "info", DefaultTimeout: 2 * time.Minute},
		LLM:     LLMConfig{Routing: LLMRoutingConfig{Fallback: "gpt-4o-mini"}},
		Research: ResearchConfig{
			StepLimit:            10,
			MaxQueries:           5,
			ResultsPerQuery:      5,
			MaxConcurrentFetches: 8,
			BlockedDomains:       []string{"reddit.com"},
			StepTimeout:          3 * time.Minute,
		},
		Search: SearchConfig{Provider: "serper", Timeout: 15 * time.Second},
		Fetch:  FetchConfig{Fetcher: "chromedp", TimeoutMS: 15 * time.Second, MaxChars: 20000},
		Cache:  CacheConfig{TTL: 6 * time.Hour, Redis: RedisConfig{Timeout: 5 * time.Second}},
	}
}
