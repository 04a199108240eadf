package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"JR_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"JR_DB_MAX_CONNS" default:"8"`

	EmbeddingProvider     string `envconfig:"EMBEDDING_PROVIDER" default:"http"`
	EmbeddingEndpoint     string `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingBaseURL      string `envconfig:"EMBEDDING_BASE_URL" default:""`
	EmbeddingAPIKey       string `envconfig:"EMBEDDING_API_KEY" default:""`
	EmbeddingModel        string `envconfig:"EMBEDDING_MODEL" default:"bge-m3"`
	EmbeddingModelVersion string `envconfig:"EMBEDDING_MODEL_VERSION" default:"v1"`
	EmbeddingDimensions   int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1024"`
	EmbeddingMaxLength    int    `envconfig:"EMBEDDING_MAX_LENGTH" default:"512"`

	RankingArtifactPath  string `envconfig:"RANKING_ARTIFACT_PATH" default:"ranker.json"`
	MinTrainingPositives int    `envconfig:"MIN_TRAINING_POSITIVES" default:"50"`

	DedupWindowDays int `envconfig:"DEDUP_WINDOW_DAYS" default:"90"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("JR_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("JR_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("JR_DB_MIN_CONNS (%d) cannot exceed JR_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	switch strings.ToLower(strings.TrimSpace(c.EmbeddingProvider)) {
	case "http", "openai", "disabled":
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be http, openai, or disabled")
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return fmt.Errorf("EMBEDDING_MODEL is required")
	}
	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be >= 1")
	}
	if strings.TrimSpace(c.RankingArtifactPath) == "" {
		return fmt.Errorf("RANKING_ARTIFACT_PATH is required")
	}
	if c.MinTrainingPositives < 1 {
		return fmt.Errorf("MIN_TRAINING_POSITIVES must be >= 1")
	}
	if c.DedupWindowDays < 1 {
		return fmt.Errorf("DEDUP_WINDOW_DAYS must be >= 1")
	}
	return nil
}
