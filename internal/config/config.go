// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.trispace/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider priority, model selection, temperature, embedder
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: space directories, per-space k defaults, intent threshold
//   - Promotion: rating/frequency floors for intent promotion
//
// Security: sensitive values (passwords, API keys) are never logged.
// Validation: range checks in validation.go with clear error messages.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidThreshold indicates the intent threshold is out of [0,1].
	ErrInvalidThreshold = errors.New("invalid intent threshold")

	// ErrInvalidTopK indicates a retrieval k default is not positive.
	ErrInvalidTopK = errors.New("invalid retrieval k")

	// ErrInvalidRating indicates a promotion rating floor is out of [0,5].
	ErrInvalidRating = errors.New("invalid promotion rating")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// AI provider identifiers used in Config.Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultEmbedderModel is the default embedding model.
// gemini-embedding-001 supports truncation to 768 dimensions, matching the
// vector(768) column in db/migrations.
const DefaultEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration.
	// Providers is tried in order; the first with usable credentials wins.
	Providers   []string `mapstructure:"priority_order" json:"priority_order"`
	ModelName   string   `mapstructure:"model_name" json:"model_name"`
	Temperature float32  `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens" json:"max_tokens"`

	// Ollama configuration (only used when an "ollama" provider is selected)
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Retrieval configuration
	KnowledgeDir           string  `mapstructure:"knowledge_dir" json:"knowledge_dir"`
	IntentDir              string  `mapstructure:"intent_dir" json:"intent_dir"`
	DefaultKKnowledge      int     `mapstructure:"default_k_knowledge" json:"default_k_knowledge"`
	DefaultKIntent         int     `mapstructure:"default_k_intent" json:"default_k_intent"`
	DefaultIntentThreshold float64 `mapstructure:"default_intent_threshold" json:"default_intent_threshold"`

	// Promotion configuration
	PromotionMinRating int `mapstructure:"promotion_min_rating" json:"promotion_min_rating"`
	FrequentMinCount   int `mapstructure:"frequent_min_count" json:"frequent_min_count"`

	// Generation timeout in seconds (dominant latency source, see serve path)
	GenerateTimeoutSeconds int `mapstructure:"generate_timeout_seconds" json:"generate_timeout_seconds"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration (serve mode only)
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Observability (optional OTLP trace export; empty host disables)
	OTLPAgentHost string `mapstructure:"otlp_agent_host" json:"otlp_agent_host"`
	ServiceName   string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".trispace")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL has highest priority for PostgreSQL config.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Fail fast on invalid configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("priority_order", []string{ProviderGemini, ProviderOpenAI, ProviderOllama})
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.1)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	// Retrieval defaults (see SPEC_FULL recognized options)
	viper.SetDefault("knowledge_dir", "./rag_source/knowledge_space")
	viper.SetDefault("intent_dir", "./rag_source/intent_space")
	viper.SetDefault("default_k_knowledge", 3)
	viper.SetDefault("default_k_intent", 1)
	viper.SetDefault("default_intent_threshold", 0.85)

	// Promotion defaults
	viper.SetDefault("promotion_min_rating", 1)
	viper.SetDefault("frequent_min_count", 2)

	viper.SetDefault("generate_timeout_seconds", 120)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "trispace")
	viper.SetDefault("postgres_password", "trispace_dev_password")
	viper.SetDefault("postgres_db_name", "trispace")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("listen_addr", "127.0.0.1:3500")

	viper.SetDefault("otlp_agent_host", "")
	viper.SetDefault("service_name", "trispace")
}

// bindEnvVariables binds environment variables for runtime overrides.
// Uses TRISPACE_ prefix: TRISPACE_POSTGRES_HOST, TRISPACE_MODEL_NAME, ...
func bindEnvVariables() {
	viper.SetEnvPrefix("TRISPACE")
	viper.AutomaticEnv()
}
