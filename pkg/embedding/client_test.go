package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"doc-rag-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEmbeddingsSendsBatchAndReordersByIndex(t *testing.T) {
	var gotReq embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		// 故意乱序返回，客户端应按 index 归位
		resp := map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{2, 2}},
				{"index": 0, "embedding": []float32{1, 1}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(config.EmbeddingConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "all-MiniLM-L6-v2",
		Dimensions: 2,
	})

	vectors, err := client.CreateEmbeddings(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, "all-MiniLM-L6-v2", gotReq.Model)
	assert.Equal(t, []string{"first", "second"}, gotReq.Input)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1}, vectors[0])
	assert.Equal(t, []float32{2, 2}, vectors[1])
}

func TestCreateEmbeddingsRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{1}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(config.EmbeddingConfig{BaseURL: server.URL})
	_, err := client.CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestCreateEmbeddingsSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(config.EmbeddingConfig{BaseURL: server.URL})
	_, err := client.CreateEmbeddings(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-200")
}
