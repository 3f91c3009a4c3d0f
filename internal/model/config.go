package model

import (
	"runtime"
	"time"
)

// Config holds all tabsort settings
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Model       ModelConfig       `yaml:"model" mapstructure:"model"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Rules       RulesConfig       `yaml:"rules" mapstructure:"rules"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP transport
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// StoreConfig selects and locates the labeled dataset
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // file, sqlite
	Path    string `yaml:"path" mapstructure:"path"`
}

// ModelConfig configures the fallback model capability
type ModelConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // hf, openai, anthropic, ollama, "" (disabled)
	Model             string        `yaml:"model" mapstructure:"model"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens         int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig configures caching of model inference results
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RulesConfig points at an alternative category rule table
type RulesConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"` // empty = built-in rules
}

// FetchConfig configures page capture for ingestion
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"` // comma-separated hosts
}

// ConcurrencyConfig bounds parallel batch analysis
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultMaxTokens is the longest input the model capability accepts
const DefaultMaxTokens = 512

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:5000",
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    "./data/tab_dataset.json",
		},
		Model: ModelConfig{
			Provider:          "", // Disabled by default
			Timeout:           30 * time.Second,
			MaxTokens:         DefaultMaxTokens,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Fetch: FetchConfig{
			Timeout:       15 * time.Second,
			UserAgent:     "tabsort/0.1 (+https://github.com/ppiankov/tabsort)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
	}
}
