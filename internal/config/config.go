package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel            = "claude-sonnet-4-20250514"
	DefaultMaxTokens        = 800
	DefaultTemperature      = 0.0
	DefaultMaxToolRounds    = 3
	DefaultMaxResults       = 5
	DefaultMaxHistory       = 2
	DefaultChunkSize        = 800
	DefaultChunkOverlap     = 100
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8000
	DefaultEmbeddingModel   = "text-embedding-3-small"
	DefaultEmbeddingTimeout = 30000
	DefaultEmbeddingBatch   = 64
)

type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Provider  ProviderConfig  `json:"provider"`
	Embedding EmbeddingConfig `json:"embedding"`
	Index     IndexConfig     `json:"index"`
	Ingest    IngestConfig    `json:"ingest"`
	Session   SessionConfig   `json:"session"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type AgentConfig struct {
	Model         string  `json:"model"`
	MaxTokens     int     `json:"maxTokens"`
	Temperature   float64 `json:"temperature"`
	MaxToolRounds int     `json:"maxToolRounds"`
}

type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type EmbeddingConfig struct {
	BaseURL   string `json:"baseUrl,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
}

type IndexConfig struct {
	DBPath     string `json:"dbPath,omitempty"`
	MaxResults int    `json:"maxResults"`
}

type IngestConfig struct {
	DocsDir      string `json:"docsDir,omitempty"`
	ChunkSize    int    `json:"chunkSize"`
	ChunkOverlap int    `json:"chunkOverlap"`
	RescanCron   string `json:"rescanCron,omitempty"`
}

type SessionConfig struct {
	MaxHistory int `json:"maxHistory"`
}

type GatewayConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	StaticDir string `json:"staticDir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:         DefaultModel,
			MaxTokens:     DefaultMaxTokens,
			Temperature:   DefaultTemperature,
			MaxToolRounds: DefaultMaxToolRounds,
		},
		Provider: ProviderConfig{},
		Embedding: EmbeddingConfig{
			Model:     DefaultEmbeddingModel,
			TimeoutMs: DefaultEmbeddingTimeout,
			BatchSize: DefaultEmbeddingBatch,
		},
		Index: IndexConfig{
			MaxResults: DefaultMaxResults,
		},
		Ingest: IngestConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Session: SessionConfig{
			MaxHistory: DefaultMaxHistory,
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".lectic")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func DefaultDBPath() string {
	return filepath.Join(ConfigDir(), "data", "index.db")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("LECTIC_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("LECTIC_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if url := os.Getenv("ANTHROPIC_BASE_URL"); url != "" && cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("LECTIC_MODEL"); model != "" {
		cfg.Agent.Model = model
	}
	if key := os.Getenv("LECTIC_EMBEDDING_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
	}
	if url := os.Getenv("LECTIC_EMBEDDING_BASE_URL"); url != "" {
		cfg.Embedding.BaseURL = url
	}
	if model := os.Getenv("LECTIC_EMBEDDING_MODEL"); model != "" {
		cfg.Embedding.Model = model
	}
	if dbPath := os.Getenv("LECTIC_DB_PATH"); dbPath != "" {
		cfg.Index.DBPath = dbPath
	}
	if dir := os.Getenv("LECTIC_DOCS_DIR"); dir != "" {
		cfg.Ingest.DocsDir = dir
	}
	if port := os.Getenv("LECTIC_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Gateway.Port = parsed
		}
	}
	if rounds := os.Getenv("LECTIC_MAX_TOOL_ROUNDS"); rounds != "" {
		if parsed, err := strconv.Atoi(rounds); err == nil && parsed > 0 {
			cfg.Agent.MaxToolRounds = parsed
		}
	}

	if cfg.Index.DBPath == "" {
		cfg.Index.DBPath = DefaultDBPath()
	}
	if cfg.Index.MaxResults <= 0 {
		cfg.Index.MaxResults = DefaultMaxResults
	}
	if cfg.Agent.MaxToolRounds <= 0 {
		cfg.Agent.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = DefaultChunkSize
	}
	if cfg.Ingest.ChunkOverlap < 0 || cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		cfg.Ingest.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.Session.MaxHistory <= 0 {
		cfg.Session.MaxHistory = DefaultMaxHistory
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
