package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the catalog assistant.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Generation GenerationConfig `yaml:"generation"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StoreConfig locates the persistent vector index.
type StoreConfig struct {
	Backend        string `yaml:"backend"` // "bolt", "memory"
	PersistDir     string `yaml:"persist_dir"`
	Collection     string `yaml:"collection"`
	Distance       string `yaml:"distance"` // "l2", "cosine"
	OpenTimeoutSec int    `yaml:"open_timeout_secs"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider    string  `yaml:"provider"` // "gemini", "openai", "hashing"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"` // Environment variable holding the credential
	BaseURL     string  `yaml:"base_url"`
	Dimension   int     `yaml:"dimension"`
	BatchSize   int     `yaml:"batch_size"`
	Concurrency int     `yaml:"concurrency"` // embedding batches in flight
	TimeoutSecs int     `yaml:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	CacheSize   int     `yaml:"cache_size"`
	CacheTTLSec int     `yaml:"cache_ttl_secs"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int    `yaml:"top_k"`
	Mode string `yaml:"mode"` // "semantic", "lexical"
}

// GenerationConfig configures the answer generator.
type GenerationConfig struct {
	Provider     string  `yaml:"provider"` // "gemini", "openai"
	Model        string  `yaml:"model"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	BaseURL      string  `yaml:"base_url"`
	Temperature  float32 `yaml:"temperature"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	HistoryTurns int     `yaml:"history_turns"`
}

// IngestConfig controls spreadsheet discovery and reading.
type IngestConfig struct {
	UploadDir string   `yaml:"upload_dir"`
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	Sheet     string   `yaml:"sheet"` // empty = first sheet
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadMB    int    `yaml:"max_upload_mb"`
	ReadTimeoutSec int    `yaml:"read_timeout_secs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:        "bolt",
			PersistDir:     "db",
			Collection:     "cosmetics_kb",
			Distance:       "l2",
			OpenTimeoutSec: 2,
		},
		Embedding: EmbeddingConfig{
			Provider:    "gemini",
			Model:       "text-embedding-004",
			APIKeyEnv:   "GOOGLE_API_KEY",
			Dimension:   768,
			BatchSize:   100,
			Concurrency: 2,
			TimeoutSecs: 60,
			CacheSize:   256,
			CacheTTLSec: 600,
		},
		Retrieve: RetrieveConfig{
			TopK: 5,
			Mode: "semantic",
		},
		Generation: GenerationConfig{
			Provider:     "gemini",
			Model:        "gemini-2.5-flash",
			APIKeyEnv:    "GOOGLE_API_KEY",
			Temperature:  0.2,
			TimeoutSecs:  120,
			HistoryTurns: 6,
		},
		Ingest: IngestConfig{
			UploadDir: filepath.Join("data", "uploads"),
			Includes:  []string{"**/*.xlsx"},
			Excludes:  []string{"**/~$*", "**/.git/**"},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadMB:    20,
			ReadTimeoutSec: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for catalograg.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "catalograg.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".catalograg", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path of the index database inside a persist directory.
func IndexDBPath(persistDir string) string {
	return filepath.Join(persistDir, "index.db")
}

// EnsureDirs creates the persist and upload directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Store.PersistDir, c.Ingest.UploadDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
