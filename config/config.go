package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// PostgresConfig holds connection details for the pgvector store and the
// document registry.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ConnString renders the pgx connection string.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// QdrantConfig holds connection details for the qdrant index backend.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// OllamaConfig configures the embedding and chat collaborators.
type OllamaConfig struct {
	URL            string  `yaml:"url"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
	RetryAttempts  int     `yaml:"retry_attempts"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend   string `yaml:"backend"` // pgvector, qdrant or memory
	Dimension int    `yaml:"dimension"`
}

// ChunkingConfig configures the fragmenter and embed batching.
type ChunkingConfig struct {
	Size      int `yaml:"size"`
	Overlap   int `yaml:"overlap"`
	BatchSize int `yaml:"batch_size"`
}

// RetrievalConfig configures the two-stage retrieval pass.
type RetrievalConfig struct {
	Overfetch     int     `yaml:"overfetch"`
	MinSimilarity float64 `yaml:"min_similarity"`
	DefaultLimit  int     `yaml:"default_limit"`
}

// AgentConfig bounds the orchestration loop and conversation window.
type AgentConfig struct {
	LoopBudget   int `yaml:"loop_budget"`
	MemoryWindow int `yaml:"memory_window"`
}

// LoaderConfig configures the drop-directory ingestion daemon.
type LoaderConfig struct {
	SourceDir   string        `yaml:"source_dir"`
	ArchiveDir  string        `yaml:"archive_dir"`
	BadDir      string        `yaml:"bad_dir"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Index     IndexConfig     `yaml:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Agent     AgentConfig     `yaml:"agent"`
	Loader    LoaderConfig    `yaml:"loader"`
}

// Load reads the yaml config at path, falling back to defaults when the
// file does not exist, then applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Postgres: PostgresConfig{
			Host: "localhost", Port: 5432,
			User: "postgres", Password: "postgres", Database: "docqa",
		},
		Qdrant: QdrantConfig{Host: "localhost", Port: 6334, Collection: "docqa_chunks"},
		Ollama: OllamaConfig{
			URL:            "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			ChatModel:      "llama3.2",
			Temperature:    0.2,
			TimeoutSecs:    120,
			RetryAttempts:  3,
		},
		Index:     IndexConfig{Backend: "pgvector", Dimension: 768},
		Chunking:  ChunkingConfig{Size: 2000, Overlap: 500, BatchSize: 10},
		Retrieval: RetrievalConfig{Overfetch: 200, MinSimilarity: 0.6, DefaultLimit: 10},
		Agent:     AgentConfig{LoopBudget: 10, MemoryWindow: 6},
		Loader: LoaderConfig{
			SourceDir:   "data/source",
			ArchiveDir:  "data/archive",
			BadDir:      "data/bad",
			SettleDelay: 2 * time.Second,
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 2000
	}
	if cfg.Chunking.BatchSize == 0 {
		cfg.Chunking.BatchSize = 10
	}
	if cfg.Retrieval.Overfetch == 0 {
		cfg.Retrieval.Overfetch = 200
	}
	if cfg.Retrieval.DefaultLimit == 0 {
		cfg.Retrieval.DefaultLimit = 10
	}
	if cfg.Agent.LoopBudget == 0 {
		cfg.Agent.LoopBudget = 10
	}
	if cfg.Agent.MemoryWindow == 0 {
		cfg.Agent.MemoryWindow = 6
	}
	if cfg.Ollama.RetryAttempts == 0 {
		cfg.Ollama.RetryAttempts = 3
	}
	if cfg.Loader.SettleDelay == 0 {
		cfg.Loader.SettleDelay = 2 * time.Second
	}
}

// applyEnv lets deployment-specific values override the file. Secrets and
// hosts come from the environment, everything else from yaml.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Postgres.Host, "PG_HOST")
	setInt(&cfg.Postgres.Port, "PG_PORT")
	setString(&cfg.Postgres.User, "PG_USER")
	setString(&cfg.Postgres.Password, "PG_PASS")
	setString(&cfg.Postgres.Database, "PG_DB_NAME")
	setString(&cfg.Qdrant.Host, "QDRANT_HOST")
	setInt(&cfg.Qdrant.Port, "QDRANT_PORT")
	setString(&cfg.Ollama.URL, "OLLAMA_URL")
	setString(&cfg.Ollama.EmbeddingModel, "OLLAMA_EMBEDDING_MODEL")
	setString(&cfg.Ollama.ChatModel, "OLLAMA_CHAT_MODEL")
	setString(&cfg.Index.Backend, "INDEX_BACKEND")
	setString(&cfg.Loader.SourceDir, "LOADER_SOURCE_DIR")
	setString(&cfg.Loader.ArchiveDir, "LOADER_ARCHIVE_DIR")
	setString(&cfg.Loader.BadDir, "LOADER_BAD_DIR")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
