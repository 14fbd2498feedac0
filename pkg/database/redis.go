// Package database 负责外部存储的客户端连接。
package database

import (
	"context"
	"fmt"

	"doc-rag-go/internal/config"
	"doc-rag-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 创建并验证一个 Redis 客户端连接。
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Infof("Redis 连接成功, addr: %s", cfg.Addr)
	return client, nil
}
