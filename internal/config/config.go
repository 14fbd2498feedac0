// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// 不提供包级全局变量：由 Load 返回，按需传递给各组件的构造函数。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Ingest        IngestConfig        `mapstructure:"ingest"`
	Query         QueryConfig         `mapstructure:"query"`
}

// ServerConfig 存储查询服务的 HTTP 配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ElasticsearchConfig 存储向量存储（Elasticsearch）相关的配置。
type ElasticsearchConfig struct {
	Addresses  string `mapstructure:"addresses"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	IndexName  string `mapstructure:"index_name"`
	VectorDims int    `mapstructure:"vector_dims"`
	Similarity string `mapstructure:"similarity"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	BaseURL    string               `mapstructure:"base_url"`
	APIKey     string               `mapstructure:"api_key"`
	Model      string               `mapstructure:"model"`
	Dimensions int                  `mapstructure:"dimensions"`
	Cache      EmbeddingCacheConfig `mapstructure:"cache"`
}

// EmbeddingCacheConfig 存储嵌入缓存的配置。backend 可选 local（目录文件）或 redis。
type EmbeddingCacheConfig struct {
	Backend   string      `mapstructure:"backend"`
	Dir       string      `mapstructure:"dir"`
	Namespace string      `mapstructure:"namespace"`
	Redis     RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的连接配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LLMConfig 存储大语言模型后端相关的配置。
type LLMConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	PromptTemplate string `mapstructure:"prompt_template"`
}

// IngestConfig 存储摄取任务相关的配置。
type IngestConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	LedgerPath   string `mapstructure:"ledger_path"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// QueryConfig 存储查询服务的检索配置。
type QueryConfig struct {
	TopK int `mapstructure:"top_k"`
}

// DefaultPromptTemplate 是组装检索上下文与问题的默认提示词模板，
// 包含 {context} 与 {question} 两个占位符。
const DefaultPromptTemplate = "以下是检索到的相关片段：\n{context}\n\n问题：{question}\n回答："

// Load 从指定路径读取 YAML 配置文件并解析为 Config。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 未显式配置时的缺省值
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("elasticsearch.index_name", "documents")
	v.SetDefault("elasticsearch.vector_dims", 384)
	v.SetDefault("elasticsearch.similarity", "cosine")
	v.SetDefault("embedding.cache.backend", "local")
	v.SetDefault("embedding.cache.dir", "./emb_cache")
	v.SetDefault("embedding.cache.namespace", "embeddings_cache")
	v.SetDefault("llm.max_tokens", 200)
	v.SetDefault("llm.prompt_template", DefaultPromptTemplate)
	v.SetDefault("ingest.data_dir", "./data")
	v.SetDefault("ingest.ledger_path", "./hashes.json")
	v.SetDefault("ingest.chunk_size", 500)
	v.SetDefault("ingest.chunk_overlap", 50)
	v.SetDefault("query.top_k", 3)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}
