package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yaml"

// Cfg 全局配置
var Cfg *Config

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Model    ModelConfig    `yaml:"model"`
	Milvus   MilvusConfig   `yaml:"milvus"`
	JWT      JWTConfig      `yaml:"jwt"`
	Search   SearchConfig   `yaml:"search"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	// SQLite数据库文件路径
	Path string `yaml:"path"`
}

type ModelConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type MilvusConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	CollectionName string `yaml:"collection_name"`
}

type JWTConfig struct {
	SecretKey string `yaml:"secret_key"`

	// token有效期（小时），零值使用默认24小时
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

type SearchConfig struct {
	// 单个chunk的token预算
	MaxTokens int `yaml:"max_tokens"`

	// 向量化批次大小
	EmbeddingBatchSize int `yaml:"embedding_batch_size"`
}

func Init() error {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	applyDefaults(cfg)
	Cfg = cfg
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/documents.db"
	}
	if cfg.Milvus.CollectionName == "" {
		cfg.Milvus.CollectionName = "slide_chunk"
	}
	if cfg.Search.MaxTokens <= 0 {
		cfg.Search.MaxTokens = 400
	}
	if cfg.Search.EmbeddingBatchSize <= 0 {
		cfg.Search.EmbeddingBatchSize = 3
	}
}
