package embedding

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"doc-rag-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// ByteStore 是嵌入缓存的底层字节存储。
type ByteStore interface {
	// Get 返回键对应的缓存值；第二个返回值表示键是否存在。
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set 写入键值，已存在时覆盖。
	Set(ctx context.Context, key string, value []byte) error
}

type localFileStore struct {
	dir string
}

// NewLocalFileStore 创建一个以本地目录为后端的字节存储，每个键对应一个文件。
func NewLocalFileStore(dir string) ByteStore {
	return &localFileStore{dir: dir}
}

func (s *localFileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取缓存文件失败: %w", err)
	}
	return data, true, nil
}

func (s *localFileStore) Set(_ context.Context, key string, value []byte) error {
	if err := os.MkdirAll(s.dir, os.ModePerm); err != nil {
		return fmt.Errorf("创建缓存目录失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, key), value, 0o644); err != nil {
		return fmt.Errorf("写入缓存文件失败: %w", err)
	}
	return nil
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore 创建一个以 Redis 为后端的字节存储。
func NewRedisStore(client *redis.Client) ByteStore {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取 Redis 缓存失败: %w", err)
	}
	return data, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("写入 Redis 缓存失败: %w", err)
	}
	return nil
}

// cachedClient 在嵌入客户端外包一层按内容寻址的缓存：
// 命中的文本不再请求后端，未命中的文本批量请求后回写缓存。
type cachedClient struct {
	inner     Client
	store     ByteStore
	namespace string
	model     string
}

// NewCachedClient 以指定的字节存储包装嵌入客户端。
// 缓存键由 namespace 与 model+text 的摘要组成，切换模型不会串用旧缓存。
func NewCachedClient(inner Client, store ByteStore, namespace, model string) Client {
	return &cachedClient{
		inner:     inner,
		store:     store,
		namespace: namespace,
		model:     model,
	}
}

func (c *cachedClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *cachedClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := c.cacheKey(text)
		data, ok, err := c.store.Get(ctx, key)
		if err != nil {
			// 缓存读取失败按未命中处理，不影响主流程
			log.Warnf("[EmbeddingCache] 读取缓存失败, key: %s, error: %v", key, err)
		} else if ok {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
				vectors[i] = vec
				continue
			}
			log.Warnf("[EmbeddingCache] 缓存内容无法解析, 将重新向量化, key: %s", key)
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		fresh, err := c.inner.CreateEmbeddings(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, idx := range missIdx {
			vectors[idx] = fresh[j]
			data, err := json.Marshal(fresh[j])
			if err != nil {
				continue
			}
			if err := c.store.Set(ctx, c.cacheKey(texts[idx]), data); err != nil {
				log.Warnf("[EmbeddingCache] 回写缓存失败, error: %v", err)
			}
		}
	}

	log.Infof("[EmbeddingCache] 批量向量化完成, 总数: %d, 缓存命中: %d", len(texts), len(texts)-len(missTexts))
	return vectors, nil
}

func (c *cachedClient) cacheKey(text string) string {
	digest := md5.Sum([]byte(c.model + text))
	return fmt.Sprintf("%s-%x", c.namespace, digest)
}
