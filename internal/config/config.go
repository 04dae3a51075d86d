package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port              int              `json:"port"`
	LogConfig         logger.LogConfig `json:"log_config"`
	AI                AIConfig         `json:"ai"`
	VectorStore       ProviderConfig   `json:"vector_store"`
	Database          DatabaseConfig   `json:"database"`
	Redis             RedisConfig      `json:"redis"`
	Chunking          ChunkingConfig   `json:"chunking"`
	EmbedCache        EmbedCacheConfig `json:"embed_cache"`
	FileStore         FileStoreConfig  `json:"file_store"`
	Jobs              JobsConfig       `json:"jobs"`
	MaxUploadBytes    int64            `json:"max_upload_bytes"`
	IngestWorkers     int              `json:"ingest_workers"`
	ScoreThreshold    float32          `json:"score_threshold"`
	UploadRateLimitMs int              `json:"upload_rate_limit_ms"`
}

type AIConfig struct {
	ChatProvider  string                 `json:"chat_provider"`
	ChatModel     string                 `json:"chat_model"`
	EmbedProvider string                 `json:"embed_provider"`
	EmbedModel    string                 `json:"embed_model"`
	Data          map[string]interface{} `json:"data"`
	Retry         RetryConfig            `json:"retry"`
}

type RetryConfig struct {
	Attempts    int `json:"attempts"`
	BaseDelayMs int `json:"base_delay_ms"`
	MaxDelayMs  int `json:"max_delay_ms"`
}

// ProviderConfig pairs a registry key with its provider-specific payload.
type ProviderConfig struct {
	Provider string                 `json:"provider"`
	Data     map[string]interface{} `json:"data"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ChunkingConfig struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

func (c EmbedCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type FileStoreConfig struct {
	Type string   `json:"type"`
	Dir  string   `json:"dir"`
	S3   S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

type JobsConfig struct {
	RegistryReconcileCron string `json:"registry_reconcile_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.ChatProvider == "" {
		return nil, fmt.Errorf("ai.chat_provider is required")
	}
	if cfg.AI.ChatModel == "" {
		return nil, fmt.Errorf("ai.chat_model is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.ChatProvider
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.VectorStore.Provider == "" {
		return nil, fmt.Errorf("vector_store.provider is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required")
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if cfg.EmbedCache.Size == 0 {
		cfg.EmbedCache.Size = 2048
	}
	if cfg.EmbedCache.TTLSeconds == 0 {
		cfg.EmbedCache.TTLSeconds = 3600
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.IngestWorkers == 0 {
		cfg.IngestWorkers = 4
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Dir == "" {
			return nil, fmt.Errorf("file_store.dir is required for local store")
		}
	case "s3":
		if cfg.FileStore.S3.Endpoint == "" || cfg.FileStore.S3.Bucket == "" || cfg.FileStore.S3.SecretID == "" || cfg.FileStore.S3.SecretKey == "" {
			return nil, fmt.Errorf("file_store.s3 endpoint/bucket/secret_id/secret_key are required for s3 store")
		}
		if cfg.FileStore.S3.Region == "" {
			cfg.FileStore.S3.Region = "us-east-1"
		}
	default:
		return nil, fmt.Errorf("file_store.type must be local or s3")
	}
	if cfg.Jobs.RegistryReconcileCron == "" {
		cfg.Jobs.RegistryReconcileCron = "@every 1h"
	}
	return &cfg, nil
}
