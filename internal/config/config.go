package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the culturai service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Cache     CacheConfig     `yaml:"cache"`
	Index     IndexConfig     `yaml:"index"`
	Geo       GeoConfig       `yaml:"geo"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ProviderConfig holds OpenAI-compatible endpoint settings.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Provider            ProviderConfig `yaml:"provider"`
	Model               string         `yaml:"model"`
	Dimensions          int            `yaml:"dimensions"`
	DocumentInstruction string         `yaml:"document_instruction"`
	QueryInstruction    string         `yaml:"query_instruction"`
}

// ChatConfig holds completion settings for query reformulation and recommendation prose.
// Zero temperatures and token limits fall back to defaults.
type ChatConfig struct {
	Provider               ProviderConfig `yaml:"provider"`
	Model                  string         `yaml:"model"`
	ReformulateTemperature float32        `yaml:"reformulate_temperature"`
	ReformulateMaxTokens   int            `yaml:"reformulate_max_tokens"`
	ReformulateTimeoutSec  int            `yaml:"reformulate_timeout_sec"`
	GenerateTemperature    float32        `yaml:"generate_temperature"`
	GenerateMaxTokens      int            `yaml:"generate_max_tokens"`
	GenerateTimeoutSec     int            `yaml:"generate_timeout_sec"`
	Breaker                BreakerConfig  `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the completion backend.
type BreakerConfig struct {
	MaxRequests      uint32 `yaml:"max_requests"`      // trial requests allowed while half-open
	IntervalSec      int    `yaml:"interval_sec"`      // closed-state counter reset period
	TimeoutSec       int    `yaml:"timeout_sec"`       // open -> half-open delay
	FailureThreshold uint32 `yaml:"failure_threshold"` // consecutive failures that trip it
}

// CacheConfig holds the embedding cache (Redis/Valkey) settings. No addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLHours         int      `yaml:"ttl_hours"` // 0 = no expiry
	Standalone       bool     `yaml:"standalone"`
}

// IndexConfig holds vector index and retrieval settings.
type IndexConfig struct {
	Dir              string `yaml:"dir"`
	EventsFile       string `yaml:"events_file"` // ingested on startup when the index is empty
	DefaultTopK      int    `yaml:"default_top_k"`
	MaxTopK          int    `yaml:"max_top_k"`
	EmbedBatchSize   int    `yaml:"embed_batch_size"`
	EmbedConcurrency int    `yaml:"embed_concurrency"`
}

// GeoConfig holds geographic filtering settings.
type GeoConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, expanding ${VAR} references and applying defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Embedding.Provider.Name == "" {
		c.Embedding.Provider.Name = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}

	c.applyChatDefaults()

	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Index.Dir == "" {
		c.Index.Dir = "data/index"
	}
	if c.Index.DefaultTopK <= 0 {
		c.Index.DefaultTopK = 5
	}
	if c.Index.MaxTopK <= 0 {
		c.Index.MaxTopK = 50
	}
	if c.Index.EmbedBatchSize <= 0 {
		c.Index.EmbedBatchSize = 100
	}
	if c.Index.EmbedConcurrency <= 0 {
		c.Index.EmbedConcurrency = 4
	}

	if c.Geo.DefaultRadiusKm <= 0 {
		c.Geo.DefaultRadiusKm = 50
	}
}

func (c *Config) applyChatDefaults() {
	ch := &c.Chat
	if ch.Provider.Name == "" {
		ch.Provider.Name = "openai"
	}
	// Chat reuses the embedding endpoint unless configured separately.
	if ch.Provider.APIKey == "" {
		ch.Provider.APIKey = c.Embedding.Provider.APIKey
	}
	if ch.Provider.BaseURL == "" {
		ch.Provider.BaseURL = c.Embedding.Provider.BaseURL
	}
	if ch.Model == "" {
		ch.Model = "gpt-3.5-turbo"
	}
	if ch.ReformulateTemperature <= 0 {
		ch.ReformulateTemperature = 0.3
	}
	if ch.ReformulateMaxTokens <= 0 {
		ch.ReformulateMaxTokens = 100
	}
	if ch.ReformulateTimeoutSec <= 0 {
		ch.ReformulateTimeoutSec = 10
	}
	if ch.GenerateTemperature <= 0 {
		ch.GenerateTemperature = 0.7
	}
	if ch.GenerateMaxTokens <= 0 {
		ch.GenerateMaxTokens = 500
	}
	if ch.GenerateTimeoutSec <= 0 {
		ch.GenerateTimeoutSec = 30
	}
	if ch.Breaker.MaxRequests == 0 {
		ch.Breaker.MaxRequests = 1
	}
	if ch.Breaker.IntervalSec <= 0 {
		ch.Breaker.IntervalSec = 60
	}
	if ch.Breaker.TimeoutSec <= 0 {
		ch.Breaker.TimeoutSec = 30
	}
	if ch.Breaker.FailureThreshold == 0 {
		ch.Breaker.FailureThreshold = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.Provider.APIKey == "" {
		return fmt.Errorf("embedding.provider.api_key is required")
	}
	if c.Index.DefaultTopK > c.Index.MaxTopK {
		return fmt.Errorf(
			"index.default_top_k (%d) must not exceed index.max_top_k (%d)",
			c.Index.DefaultTopK, c.Index.MaxTopK,
		)
	}
	if t := c.Chat.ReformulateTemperature; t > 2 {
		return fmt.Errorf("chat.reformulate_temperature must be in (0, 2], got %g", t)
	}
	if t := c.Chat.GenerateTemperature; t > 2 {
		return fmt.Errorf("chat.generate_temperature must be in (0, 2], got %g", t)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to this source file, for tests run from package dirs.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
