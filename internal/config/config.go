// Package config provides application configuration management.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables
//  2. .env file in the working directory (loaded via godotenv)
//  3. Default values
//
// Validation is fail-fast: commands call Validate (or ValidateServe) right
// after Load and refuse to start on a bad configuration. Uses sentinel
// errors so callers can check categories with errors.Is().
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingDatabaseURL indicates DATABASE_URL is not set.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL")

	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

	// ErrMissingTokenSecret indicates JWT_SECRET is not set.
	ErrMissingTokenSecret = errors.New("missing JWT_SECRET")

	// ErrInvalidVectorDim indicates the vector dimensionality is not positive.
	ErrInvalidVectorDim = errors.New("invalid vector dimensionality")

	// ErrInvalidChunking indicates the chunk size/overlap pair cannot make progress.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the search result limit is not positive.
	ErrInvalidTopK = errors.New("invalid search top-k")
)

// Defaults matching the embedding model and the documented API behavior.
const (
	// DefaultEmbeddingModel supports output truncation, so the effective
	// dimensionality is whatever VectorDim requests.
	DefaultEmbeddingModel = "gemini-embedding-001"

	// DefaultGenerationModel answers chat requests.
	DefaultGenerationModel = "gemini-2.5-flash"

	// DefaultVectorDim is the single source of truth for vector
	// dimensionality, shared by the embedder and the collection schema.
	DefaultVectorDim = 768
)

// Config stores application configuration.
// Sensitive fields (DatabaseURL, GeminiAPIKey, JWTSecret) must never be logged.
type Config struct {
	// Backends
	DatabaseURL  string `mapstructure:"database_url"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	// Models
	EmbeddingModel  string `mapstructure:"embedding_model"`
	GenerationModel string `mapstructure:"generation_model"`

	// Vector collection
	CollectionName string `mapstructure:"collection_name"`
	VectorDim      int32  `mapstructure:"vector_dim"`
	SearchTopK     int    `mapstructure:"search_top_k"`

	// Ingestion
	DocsPath     string `mapstructure:"docs_path"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`

	// Auth
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`

	// HTTP server
	ListenAddr string  `mapstructure:"listen_addr"`
	RateRPS    float64 `mapstructure:"rate_rps"`
	RateBurst  int     `mapstructure:"rate_burst"`
}

// Load reads configuration from the environment with defaults applied.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	// Mirror of the usual dotenv workflow: a missing .env file is fine.
	if err := godotenv.Load(); err != nil && !strings.Contains(err.Error(), "no such file") {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal,
	// so bind every key explicitly.
	for _, key := range []string{
		"database_url", "gemini_api_key",
		"embedding_model", "generation_model",
		"collection_name", "vector_dim", "search_top_k",
		"docs_path", "chunk_size", "chunk_overlap",
		"jwt_secret", "token_ttl_minutes",
		"listen_addr", "rate_rps", "rate_burst",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("generation_model", DefaultGenerationModel)

	v.SetDefault("collection_name", "book_content")
	v.SetDefault("vector_dim", DefaultVectorDim)
	v.SetDefault("search_top_k", 5)

	v.SetDefault("docs_path", "./docs")
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)

	v.SetDefault("token_ttl_minutes", 30)

	v.SetDefault("listen_addr", "127.0.0.1:8000")
	v.SetDefault("rate_rps", 10.0)
	v.SetDefault("rate_burst", 20)
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("configuration is nil")
	}
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.VectorDim <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVectorDim, c.VectorDim)
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.SearchTopK)
	}
	return nil
}

// ValidateServe checks the extra settings the HTTP server needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return ErrMissingTokenSecret
	}
	return nil
}

// TokenTTL returns the access-token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
