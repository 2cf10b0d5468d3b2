// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (MEMOCORE_* prefix, DATABASE_URL override)
//  2. Config file (~/.memocore/config.yaml)
//  3. Default values
//
// Sensitive data (API key, database password) is never logged.
// Validation is fail-fast with sentinel errors checked via errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the Gemini API key is not configured while
	// the cloud model is selected.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelType indicates the model type is not "cloud" or "local".
	ErrInvalidModelType = errors.New("invalid model type")

	// ErrMissingLocalModel indicates the local model endpoint or name is not
	// configured while the local model is selected.
	ErrMissingLocalModel = errors.New("missing local model configuration")

	// ErrInvalidChunking indicates chunk size/overlap values are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the search top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid search top-k")

	// ErrInvalidPostgres indicates the PostgreSQL connection settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

// Model type identifiers used in Config.ModelType.
const (
	// ModelTypeCloud selects the Gemini cloud backend.
	ModelTypeCloud = "cloud"

	// ModelTypeLocal selects the local OpenAI-compatible backend.
	ModelTypeLocal = "local"
)

const (
	// DefaultGeminiModel is the cloud generation model.
	DefaultGeminiModel = "gemini-2.5-flash-lite"

	// DefaultEmbedderModel is the Gemini embedder model. It outputs the 768
	// dimensions our pgvector schema expects.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultChunkSize is the chunk target size in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the chunk overlap in characters.
	DefaultChunkOverlap = 100

	// DefaultSearchTopK is the number of chunks returned by a search.
	DefaultSearchTopK = 5
)

// Config stores application configuration.
type Config struct {
	// Model selection
	ModelType    string `mapstructure:"model_type"`     // "cloud" (default) or "local"
	GeminiAPIKey string `mapstructure:"gemini_api_key"` // SENSITIVE: never log
	GeminiModel  string `mapstructure:"gemini_model"`

	// Local backend (only used when model_type is "local")
	LocalEndpoint string `mapstructure:"local_endpoint"` // OpenAI-compatible base URL
	LocalModel    string `mapstructure:"local_model"`

	// Retrieval configuration
	EmbedderModel string `mapstructure:"embedder_model"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap"`
	SearchTopK    int    `mapstructure:"search_top_k"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never log
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Logging
	LogLevel string `mapstructure:"log_level"` // "debug", "info", "warn", "error"
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".memocore")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("MEMOCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// GEMINI_API_KEY is the conventional variable for Google AI tooling and
	// takes precedence over the config file.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.GeminiAPIKey = key
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_type", ModelTypeCloud)
	v.SetDefault("gemini_model", DefaultGeminiModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	v.SetDefault("local_endpoint", "")
	v.SetDefault("local_model", "")

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("search_top_k", DefaultSearchTopK)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "memocore")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "memocore")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("log_level", "info")
}

// Validate checks configuration consistency. It does not require the selected
// backend to be reachable; credential presence for the selected model type is
// checked where the backend is constructed so that switching model types does
// not demand credentials for the unused one.
func (c *Config) Validate() error {
	switch c.ModelType {
	case ModelTypeCloud, ModelTypeLocal:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)",
			ErrInvalidModelType, c.ModelType, ModelTypeCloud, ModelTypeLocal)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("%w: search_top_k must be positive, got %d", ErrInvalidTopK, c.SearchTopK)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host is empty", ErrInvalidPostgres)
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d out of range", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name is empty", ErrInvalidPostgres)
	}

	return nil
}
