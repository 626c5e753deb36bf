package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document RAG pipeline.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig holds text splitting configuration. Sizes are in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"`    // "hashing", "ollama", "openai", "google", "mock"
	Model          string        `yaml:"model"`       // e.g., "all-minilm"
	APIKeyEnv      string        `yaml:"api_key_env"` // Environment variable for API key
	APIKey         string        `yaml:"-"`
	BaseURL        string        `yaml:"base_url"`
	Dimension      int           `yaml:"dimension"`
	BatchSize      int           `yaml:"batch_size"`
	Normalize      bool          `yaml:"normalize"`
	QueryCacheSize int           `yaml:"query_cache_size"`
	QueryCacheTTL  time.Duration `yaml:"query_cache_ttl"`
	RequestsPerMin int           `yaml:"requests_per_minute"` // 0 disables rate limiting
}

// StoreConfig selects and addresses the vector index.
type StoreConfig struct {
	Type           string        `yaml:"type"` // "memory", "bolt", "mongodb"
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Collection     string        `yaml:"collection"`
	IndexName      string        `yaml:"index_name"`
	Path           string        `yaml:"path"` // bolt file
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	NumCandidates  int           `yaml:"num_candidates"`
}

// RetrievalConfig holds retrieval configuration.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LLMConfig configures the answer-composition model used by "ask".
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "groq", "openai", "ollama"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	APIKey      string  `yaml:"-"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 150,
		},
		Embedding: EmbeddingConfig{
			Provider:       "hashing",
			Model:          "hashing-384",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      384,
			BatchSize:      64,
			Normalize:      false,
			QueryCacheSize: 100,
			QueryCacheTTL:  5 * time.Minute,
		},
		Store: StoreConfig{
			Type:           "memory",
			Database:       "pragyan_ai_db",
			Collection:     "sales_docs",
			IndexName:      "vector_index",
			Path:           filepath.Join(".docrag", "index.db"),
			ConnectTimeout: 10 * time.Second,
			NumCandidates:  100,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		LLM: LLMConfig{
			Provider:    "groq",
			Model:       "llama-3.1-8b-instant",
			APIKeyEnv:   "GROQ_API_KEY",
			Temperature: 0.2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
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

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docrag", "config.yaml")
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
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overlays environment variables on top of file values and
// resolves API keys through their *_env indirection. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("MONGO_URI"); ok && v != "" {
		c.Store.URI = v
	}
	if v, ok := lookup("DOCRAG_STORE_TYPE"); ok && v != "" {
		c.Store.Type = v
	}
	if v, ok := lookup("DOCRAG_EMBEDDING_PROVIDER"); ok && v != "" {
		c.Embedding.Provider = v
	}
	if v, ok := lookup("DOCRAG_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("DOCRAG_TOP_K"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retrieval.TopK = n
		}
	}
	if c.Embedding.APIKeyEnv != "" {
		if v, ok := lookup(c.Embedding.APIKeyEnv); ok {
			c.Embedding.APIKey = v
		}
	}
	if c.LLM.APIKeyEnv != "" {
		if v, ok := lookup(c.LLM.APIKeyEnv); ok {
			c.LLM.APIKey = v
		}
	}
}

// Validate reports settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection is required")
	}
	switch c.Store.Type {
	case "memory":
	case "bolt":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the bolt store")
		}
	case "mongodb":
		if c.Store.URI == "" {
			return fmt.Errorf("store.uri (or MONGO_URI) is required for the mongodb store")
		}
		if c.Store.Database == "" || c.Store.IndexName == "" {
			return fmt.Errorf("store.database and store.index_name are required for the mongodb store")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}
	return nil
}

// DataDir returns the directory holding local state for root.
func DataDir(root string) string {
	return filepath.Join(root, ".docrag")
}

// ResolvePath makes a relative store path relative to root.
func ResolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
