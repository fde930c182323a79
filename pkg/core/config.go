package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration for the remind client.
//
// It can be loaded from environment variables, a .env file, JSON or YAML.
type Config struct {
	// LLM configures the chat model used by consolidation. Optional for
	// plain store access.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Embedder configures the text embedding provider.
	Embedder EmbedderConfig `json:"embedder" yaml:"embedder"`

	// VectorStore configures the storage backend.
	VectorStore VectorStoreConfig `json:"vector_store" yaml:"vector_store"`

	// Agent bounds consolidation runs.
	Agent AgentConfig `json:"agent" yaml:"agent"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// SnowflakeNodeID identifies this process in generated record ids.
	// Processes sharing a store must use distinct values in [0, 1023].
	SnowflakeNodeID int64 `json:"snowflake_node_id,omitempty" yaml:"snowflake_node_id,omitempty"`
}

// LLMConfig contains configuration for the chat model provider.
type LLMConfig struct {
	// Provider is "openai", "deepseek", "qwen", "anthropic", "gemini", "ollama" or empty for none.
	Provider string `json:"provider" yaml:"provider"`

	APIKey string `json:"api_key" yaml:"api_key"`

	Model string `json:"model" yaml:"model"`

	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Project and Location select Vertex AI for the gemini provider.
	Project  string `json:"project,omitempty" yaml:"project,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
type EmbedderConfig struct {
	// Provider is "openai", "qwen", "gemini", "ollama" or "mock".
	Provider string `json:"provider" yaml:"provider"`

	APIKey string `json:"api_key" yaml:"api_key"`

	Model string `json:"model" yaml:"model"`

	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Dimensions is the deployment-wide vector size. Every stored embedding has it.
	Dimensions int `json:"dimensions" yaml:"dimensions"`

	Project  string `json:"project,omitempty" yaml:"project,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// VectorStoreConfig contains configuration for the storage backend.
type VectorStoreConfig struct {
	// Provider is "sqlite", "postgres", "oceanbase" or "chromem".
	Provider string `json:"provider" yaml:"provider"`

	// CollectionName is the table name. Defaults to "memories".
	CollectionName string `json:"collection_name,omitempty" yaml:"collection_name,omitempty"`

	// EmbeddingModelDims is the column dimension. Zero means use Embedder.Dimensions.
	EmbeddingModelDims int `json:"embedding_model_dims,omitempty" yaml:"embedding_model_dims,omitempty"`

	// DBPath is the SQLite database file.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`

	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DBName   string `json:"db_name,omitempty" yaml:"db_name,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
}

// AgentConfig bounds a consolidation run.
type AgentConfig struct {
	// MaxSteps caps the number of decide/mutate steps. Defaults to 5.
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`

	// TokenBudget caps cumulative LLM tokens. Zero means unlimited.
	TokenBudget int `json:"token_budget,omitempty" yaml:"token_budget,omitempty"`

	// TopK is the number of candidate memories retrieved per turn. Defaults to 10.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// maxSnowflakeNode is the largest node id the default 10-bit node field holds.
const maxSnowflakeNode = 1023

// defaultDimensions is the vector size used when EMBEDDING_DIMS is unset.
var defaultDimensions = map[string]int{
	"openai": 1536,
	"qwen":   1024,
	"gemini": 128,
	"ollama": 768,
	"mock":   64,
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// It first looks for a .env file via FindEnvFile and loads it without
// overriding variables already set in the process environment.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	embedderProvider := getEnvOrDefault("EMBEDDING_PROVIDER", "gemini")
	dims, err := getEnvInt("EMBEDDING_DIMS", defaultDimensions[embedderProvider])
	if err != nil {
		return nil, err
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")
	collection := getEnvOrDefault("MEMORY_COLLECTION", "memories")
	store := VectorStoreConfig{
		Provider:       provider,
		CollectionName: collection,
	}

	switch provider {
	case "oceanbase":
		port, err := getEnvInt("OCEANBASE_PORT", 2881)
		if err != nil {
			return nil, err
		}
		store.Host = getEnvOrDefault("OCEANBASE_HOST", "127.0.0.1")
		store.Port = port
		store.User = getEnvOrDefault("OCEANBASE_USER", "root@sys")
		store.Password = os.Getenv("OCEANBASE_PASSWORD")
		store.DBName = getEnvOrDefault("OCEANBASE_DATABASE", "remind")
		store.CollectionName = getEnvOrDefault("OCEANBASE_COLLECTION", collection)
		if store.EmbeddingModelDims, err = getEnvInt("OCEANBASE_EMBEDDING_MODEL_DIMS", 0); err != nil {
			return nil, err
		}
	case "postgres":
		port, err := getEnvInt("POSTGRES_PORT", 5432)
		if err != nil {
			return nil, err
		}
		store.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		store.Port = port
		store.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		store.Password = os.Getenv("POSTGRES_PASSWORD")
		store.DBName = getEnvOrDefault("POSTGRES_DATABASE", "remind")
		store.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
		store.CollectionName = getEnvOrDefault("POSTGRES_COLLECTION", collection)
		if store.EmbeddingModelDims, err = getEnvInt("POSTGRES_EMBEDDING_MODEL_DIMS", 0); err != nil {
			return nil, err
		}
	case "sqlite":
		store.DBPath = getEnvOrDefault("SQLITE_PATH", "./remind.db")
		store.CollectionName = getEnvOrDefault("SQLITE_COLLECTION", collection)
		if store.EmbeddingModelDims, err = getEnvInt("SQLITE_EMBEDDING_MODEL_DIMS", 0); err != nil {
			return nil, err
		}
	}

	maxSteps, err := getEnvInt("AGENT_MAX_STEPS", 5)
	if err != nil {
		return nil, err
	}
	budget, err := getEnvInt("AGENT_TOKEN_BUDGET", 0)
	if err != nil {
		return nil, err
	}
	topK, err := getEnvInt("AGENT_TOP_K", 10)
	if err != nil {
		return nil, err
	}
	nodeID, err := getEnvInt("SNOWFLAKE_NODE_ID", 1)
	if err != nil {
		return nil, err
	}

	config := &Config{
		LLM: LLMConfig{
			Provider: os.Getenv("LLM_PROVIDER"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
			Project:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
			Location: os.Getenv("GOOGLE_CLOUD_LOCATION"),
		},
		Embedder: EmbedderConfig{
			Provider:   embedderProvider,
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      os.Getenv("EMBEDDING_MODEL"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
			Project:    os.Getenv("GOOGLE_CLOUD_PROJECT"),
			Location:   os.Getenv("GOOGLE_CLOUD_LOCATION"),
		},
		VectorStore: store,
		Agent: AgentConfig{
			MaxSteps:    maxSteps,
			TokenBudget: budget,
			TopK:        topK,
		},
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		SnowflakeNodeID: int64(nodeID),
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// LoadConfigFromYAML loads configuration from a YAML file with the same
// field names as the JSON form.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromYAML", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromYAML", err)
	}

	return &config, nil
}

// LoadConfigFromFile picks the JSON or YAML loader by file extension.
func LoadConfigFromFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadConfigFromYAML(path)
	case ".json":
		return LoadConfigFromJSON(path)
	default:
		return nil, NewMemoryError("LoadConfigFromFile", fmt.Errorf("%w: unsupported config file %q", ErrInvalidConfig, path))
	}
}

// Validate validates the configuration.
//
// It checks that every provider is known, that the embedding dimension is
// positive and that the store dimension, when set, equals it.
func (c *Config) Validate() error {
	switch c.VectorStore.Provider {
	case "sqlite", "postgres", "oceanbase", "chromem":
	default:
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown vector store provider %q", ErrInvalidConfig, c.VectorStore.Provider))
	}

	if _, ok := defaultDimensions[c.Embedder.Provider]; !ok {
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedder.Provider))
	}

	switch c.LLM.Provider {
	case "", "openai", "deepseek", "qwen", "anthropic", "gemini", "ollama":
	default:
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, c.LLM.Provider))
	}

	if c.Embedder.Dimensions <= 0 {
		return NewMemoryError("Validate", fmt.Errorf("%w: embedding dimensions must be positive", ErrInvalidConfig))
	}
	if d := c.VectorStore.EmbeddingModelDims; d != 0 && d != c.Embedder.Dimensions {
		return NewMemoryError("Validate", fmt.Errorf("%w: vector store has %d dimensions, embedder has %d", ErrDimensionMismatch, d, c.Embedder.Dimensions))
	}

	if c.Agent.MaxSteps < 0 || c.Agent.TokenBudget < 0 || c.Agent.TopK < 0 {
		return NewMemoryError("Validate", fmt.Errorf("%w: agent limits must not be negative", ErrInvalidConfig))
	}
	if c.SnowflakeNodeID < 0 || c.SnowflakeNodeID > maxSnowflakeNode {
		return NewMemoryError("Validate", fmt.Errorf("%w: snowflake node id %d outside [0, %d]", ErrInvalidConfig, c.SnowflakeNodeID, maxSnowflakeNode))
	}
	return nil
}

// StoreDims returns the dimension the vector store is created with.
func (c *Config) StoreDims() int {
	if c.VectorStore.EmbeddingModelDims > 0 {
		return c.VectorStore.EmbeddingModelDims
	}
	return c.Embedder.Dimensions
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, value))
	}
	return n, nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
