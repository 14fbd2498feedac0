// Package main 是查询服务的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-rag-go/internal/config"
	"doc-rag-go/internal/handler"
	"doc-rag-go/internal/middleware"
	"doc-rag-go/internal/service"
	"doc-rag-go/pkg/embedding"
	"doc-rag-go/pkg/es"
	"doc-rag-go/pkg/llm"
	"doc-rag-go/pkg/log"

	"github.com/gin-gonic/gin"
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

	// 3. 初始化外部客户端（启动时创建一次，按引用传递给依赖它们的组件）
	store, err := es.NewStore(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("初始化 Elasticsearch 客户端失败", err)
	}
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	// 4. 初始化 Service 与 Handler（依赖注入）
	queryService := service.NewQueryService(embeddingClient, store, llmClient, cfg.Query, cfg.LLM)
	queryHandler := handler.NewQueryHandler(queryService)

	// 5. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.GET("/query", queryHandler.Query)

	// 6. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("查询服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号, 正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("HTTP 服务器关闭失败", err)
	}
	log.Info("服务已优雅关闭")
}
