package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBPath        string           `json:"db_path"`
	DataDir       string           `json:"data_dir"`
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	AI            AIConfig         `json:"ai"`
	EmbedCache    EmbedCacheConfig `json:"embed_cache"`
	Scraper       ScraperConfig    `json:"scraper"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Search        SearchConfig     `json:"search"`
	Jobs          JobsConfig       `json:"jobs"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	RateLimitMs   int              `json:"rate_limit_ms"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	EmbedModel    string      `json:"embed_model"`
	Timeout       int         `json:"timeout"`
	MaxInputChars int         `json:"max_input_chars"`
	Data          interface{} `json:"data"`
}

type EmbedCacheConfig struct {
	MemSize       int `json:"mem_size"`
	MemTTLMinutes int `json:"mem_ttl_minutes"`
	DBMaxAgeDays  int `json:"db_max_age_days"`
}

type ScraperConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type SearchConfig struct {
	SemanticLimit int `json:"semantic_limit"`
}

// JobsConfig holds cron specs; an empty spec disables the job.
type JobsConfig struct {
	VectorSync           string `json:"vector_sync"`
	ClassifyPending      string `json:"classify_pending"`
	EmbedCacheCleanup    string `json:"embed_cache_cleanup"`
	ClassifyPendingBatch int    `json:"classify_pending_batch"`
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
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.MaxInputChars <= 0 {
		cfg.AI.MaxInputChars = 20000
	}
	if cfg.EmbedCache.MemSize <= 0 {
		cfg.EmbedCache.MemSize = 4096
	}
	if cfg.EmbedCache.MemTTLMinutes <= 0 {
		cfg.EmbedCache.MemTTLMinutes = 120
	}
	if cfg.EmbedCache.DBMaxAgeDays <= 0 {
		cfg.EmbedCache.DBMaxAgeDays = 30
	}
	if cfg.Scraper.Type == "" {
		cfg.Scraper.Type = "instagram"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Search.SemanticLimit <= 0 {
		cfg.Search.SemanticLimit = 15
	}
	if cfg.Jobs.ClassifyPendingBatch <= 0 {
		cfg.Jobs.ClassifyPendingBatch = 20
	}
	return &cfg, nil
}
