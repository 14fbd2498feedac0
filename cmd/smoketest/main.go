// Package main 是一个手动冒烟测试：验证 LLM 后端可达且能正常生成。
// 不属于生产请求链路。
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"doc-rag-go/internal/config"
	"doc-rag-go/pkg/llm"
	"doc-rag-go/pkg/log"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log.Init(cfg.Log.Level, "console", "")
	defer log.Sync()

	llmClient := llm.NewClient(cfg.LLM)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	response, err := llmClient.Generate(ctx, "写一首关于咖啡的俳句", 0)
	if err != nil {
		log.Fatal("调用 LLM 后端失败", err)
	}
	fmt.Println(response)
}
