package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	batchCalls int
	embedded   []string
}

func (c *countingClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *countingClient) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	c.embedded = append(c.embedded, texts...)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 0.5}
	}
	return vectors, nil
}

func TestLocalFileStoreRoundtrip(t *testing.T) {
	store := NewLocalFileStore(t.TempDir())
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "key1", []byte("value1")))
	data, ok, err := store.Get(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), data)

	// 覆盖写
	require.NoError(t, store.Set(ctx, "key1", []byte("value2")))
	data, _, err = store.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value2"), data)
}

func TestCachedClientSkipsBackendOnHit(t *testing.T) {
	inner := &countingClient{}
	client := NewCachedClient(inner, NewLocalFileStore(t.TempDir()), "embeddings_cache", "all-MiniLM-L6-v2")
	ctx := context.Background()

	first, err := client.CreateEmbeddings(ctx, []string{"hello world"})
	require.NoError(t, err)
	require.Equal(t, 1, inner.batchCalls)

	// 第二次请求相同文本：完全命中缓存，不再请求后端
	second, err := client.CreateEmbeddings(ctx, []string{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batchCalls)
	assert.Equal(t, first, second)
}

func TestCachedClientEmbedsOnlyMisses(t *testing.T) {
	inner := &countingClient{}
	client := NewCachedClient(inner, NewLocalFileStore(t.TempDir()), "embeddings_cache", "all-MiniLM-L6-v2")
	ctx := context.Background()

	_, err := client.CreateEmbeddings(ctx, []string{"cached"})
	require.NoError(t, err)

	vectors, err := client.CreateEmbeddings(ctx, []string{"cached", "fresh"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	// 第二次调用只把未命中的文本发给后端
	assert.Equal(t, 2, inner.batchCalls)
	assert.Equal(t, []string{"cached", "fresh"}, inner.embedded)
	assert.Equal(t, []float32{float32(len("cached")), 0.5}, vectors[0])
	assert.Equal(t, []float32{float32(len("fresh")), 0.5}, vectors[1])
}

func TestCacheKeyVariesByModelAndNamespace(t *testing.T) {
	a := &cachedClient{namespace: "ns", model: "model-a"}
	b := &cachedClient{namespace: "ns", model: "model-b"}
	c := &cachedClient{namespace: "other", model: "model-a"}

	assert.NotEqual(t, a.cacheKey("text"), b.cacheKey("text"))
	assert.NotEqual(t, a.cacheKey("text"), c.cacheKey("text"))
	assert.Equal(t, a.cacheKey("text"), a.cacheKey("text"))
}
