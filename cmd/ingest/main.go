// Package main 是摄取任务的入口点：单次批处理，运行完成后退出。
package main

import (
	"context"
	"flag"

	"doc-rag-go/internal/config"
	"doc-rag-go/internal/pipeline"
	"doc-rag-go/internal/repository"
	"doc-rag-go/pkg/database"
	"doc-rag-go/pkg/embedding"
	"doc-rag-go/pkg/es"
	"doc-rag-go/pkg/log"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化向量存储客户端
	store, err := es.NewStore(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("初始化 Elasticsearch 客户端失败", err)
	}

	// 4. 初始化带缓存的嵌入客户端，缓存后端由配置决定
	baseClient := embedding.NewClient(cfg.Embedding)
	var cacheStore embedding.ByteStore
	switch cfg.Embedding.Cache.Backend {
	case "redis":
		rdb, err := database.NewRedisClient(cfg.Embedding.Cache.Redis)
		if err != nil {
			log.Fatal("初始化 Redis 缓存后端失败", err)
		}
		defer rdb.Close()
		cacheStore = embedding.NewRedisStore(rdb)
	default:
		cacheStore = embedding.NewLocalFileStore(cfg.Embedding.Cache.Dir)
	}
	embeddingClient := embedding.NewCachedClient(baseClient, cacheStore, cfg.Embedding.Cache.Namespace, cfg.Embedding.Model)

	// 5. 初始化账本并执行摄取
	ledger := repository.NewHashLedgerRepository(cfg.Ingest.LedgerPath)
	processor := pipeline.NewProcessor(embeddingClient, store, ledger, cfg.Ingest, cfg.Embedding)

	count, err := processor.Run(context.Background())
	if err != nil {
		log.Fatal("摄取失败", err)
	}
	log.Infof("摄取成功完成, 本次新增 %d 个块", count)
}
