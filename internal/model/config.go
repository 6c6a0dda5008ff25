package model

import "time"

// Config holds the full application configuration
type Config struct {
	Rules        RulesConfig        `yaml:"rules" mapstructure:"rules"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// RulesConfig locates the three rule source files
type RulesConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	ContextFile  string `yaml:"context_file" mapstructure:"context_file"`
	PropertyFile string `yaml:"property_file" mapstructure:"property_file"`
	WordingFile  string `yaml:"wording_file" mapstructure:"wording_file"`
}

// StoreConfig selects and locates the record store
type StoreConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"` // file, bolt
	Dir      string `yaml:"dir" mapstructure:"dir"`
	BoltPath string `yaml:"bolt_path" mapstructure:"bolt_path"`
}

// LLMConfig configures the oracle provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds, 0 = no limit
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the oracle reply cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimit is one token bucket; RequestsPerSecond <= 0 disables pacing
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// RateLimitingConfig throttles oracle calls per provider
type RateLimitingConfig struct {
	RateLimit `yaml:",inline" mapstructure:",squash"`

	// Providers overrides the default bucket for individual providers
	Providers map[string]RateLimit `yaml:"providers,omitempty" mapstructure:"providers"`
}

// ServerConfig configures the save/list HTTP server
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig configures rendered artifacts
type OutputConfig struct {
	Table   string `yaml:"table" mapstructure:"table"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			Dir:          "data/rules",
			ContextFile:  "context_rules.json",
			PropertyFile: "property_rules.json",
			WordingFile:  "wording_rules.json",
		},
		Store: StoreConfig{
			Backend:  "file",
			Dir:      "data/words",
			BoltPath: "data/words.db",
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4.1",
			Timeout:   0,
			MaxTokens: 8000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".wordrules-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RateLimit: RateLimit{RequestsPerSecond: 1, BurstSize: 2},
			Providers: map[string]RateLimit{
				"ollama": {RequestsPerSecond: 0, BurstSize: 1},
			},
		},
		Server: ServerConfig{
			Addr: ":5000",
		},
		Output: OutputConfig{
			Table: "word_rules_table.html",
		},
		Log: LogConfig{
			Format: "text",
		},
	}
}
