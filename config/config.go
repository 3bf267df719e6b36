package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains the completion/embedding provider configuration
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // openai
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RAGConfig tunes the document pipeline, retrieval and answer grounding.
type RAGConfig struct {
	MaxChunkSize        int           `mapstructure:"max_chunk_size"`
	ChunkOverlap        int           `mapstructure:"chunk_overlap"`
	MinSegmentLength    int           `mapstructure:"min_segment_length"`
	EmbedBatchSize      int           `mapstructure:"embed_batch_size"`
	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	TopK                int           `mapstructure:"top_k"`
	MinScore            float64       `mapstructure:"min_score"`
	OverfetchFactor     int           `mapstructure:"overfetch_factor"`
	AccuracyEstimate    float64       `mapstructure:"accuracy_estimate"`
	SimilarityWeight    float64       `mapstructure:"similarity_weight"`
	CitationWeight      float64       `mapstructure:"citation_weight"`
	PreviewLength       int           `mapstructure:"preview_length"`
	MockChunkDelay      time.Duration `mapstructure:"mock_chunk_delay"`
}

// StorageConfig contains database connection settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchedulerConfig controls the background re-index job.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	CronSpec string        `mapstructure:"cron_spec"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// Addr returns host:port for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// LoadConfig reads configuration from file and environment.
// Env vars use the ATTICUS_ prefix with underscores, e.g. ATTICUS_LLM_API_KEY.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	if path != "" {
		viper.AddConfigPath(path)
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("ATTICUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// config file is optional; env + defaults suffice
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "60s")
	viper.SetDefault("server.address", ":10040")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.completion_model", "gpt-4o-mini")
	viper.SetDefault("llm.embedding_model", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 1400)
	viper.SetDefault("llm.timeout", "60s")

	viper.SetDefault("rag.max_chunk_size", 1000)
	viper.SetDefault("rag.chunk_overlap", 200)
	viper.SetDefault("rag.min_segment_length", 50)
	viper.SetDefault("rag.embed_batch_size", 100)
	viper.SetDefault("rag.embedding_dimensions", 1536)
	viper.SetDefault("rag.top_k", 5)
	viper.SetDefault("rag.min_score", 0.3)
	viper.SetDefault("rag.overfetch_factor", 2)
	viper.SetDefault("rag.accuracy_estimate", 0.92)
	viper.SetDefault("rag.similarity_weight", 0.6)
	viper.SetDefault("rag.citation_weight", 0.4)
	viper.SetDefault("rag.preview_length", 200)
	viper.SetDefault("rag.mock_chunk_delay", "50ms")

	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.cron_spec", "@hourly")
	viper.SetDefault("scheduler.lock_ttl", "2m")
}
