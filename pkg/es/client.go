// Package es 提供了基于 Elasticsearch 的向量存储客户端。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"doc-rag-go/internal/config"
	"doc-rag-go/internal/model"
	"doc-rag-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// Store 定义了向量存储需要支持的操作。
type Store interface {
	// EnsureIndex 确保索引存在；不存在则按配置的维度与相似度创建。
	// 索引已存在但向量维度与配置不一致时直接报错（快速失败）。
	EnsureIndex(ctx context.Context) error
	// AddDocuments 批量写入向量记录。任何一条写入失败都会返回错误，
	// 调用方应视整批为未写入成功。
	AddDocuments(ctx context.Context, docs []model.VectorDocument) error
	// Search 以查询向量执行 kNN 检索，返回按相似度排序的前 topK 条结果。
	Search(ctx context.Context, vector []float32, topK int) ([]model.SearchResult, error)
}

type esStore struct {
	client *elasticsearch.Client
	cfg    config.ElasticsearchConfig
}

// NewStore 创建一个连接到 Elasticsearch 的向量存储实例。
func NewStore(cfg config.ElasticsearchConfig) (Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	return &esStore{client: client, cfg: cfg}, nil
}

func (s *esStore) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{s.cfg.IndexName},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("检查索引是否存在时出错: %w", err)
	}
	defer res.Body.Close()

	// 200 说明索引已存在，进一步校验向量维度是否与配置一致
	if res.StatusCode == http.StatusOK {
		log.Infof("[ES] 索引 '%s' 已存在, 校验向量维度", s.cfg.IndexName)
		return s.checkVectorDims(ctx)
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id":    { "type": "keyword" },
				"source_file":  { "type": "keyword" },
				"chunk_id":     { "type": "integer" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": %q
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, s.cfg.VectorDims, s.cfg.Similarity)

	createRes, err := s.client.Indices.Create(
		s.cfg.IndexName,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", s.cfg.IndexName, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		log.Errorf("[ES] 创建索引 '%s' 时 Elasticsearch 返回错误: %s", s.cfg.IndexName, createRes.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("[ES] 索引 '%s' 创建成功, dims: %d, similarity: %s", s.cfg.IndexName, s.cfg.VectorDims, s.cfg.Similarity)
	return nil
}

// checkVectorDims 读取既有索引的 mapping，比对 vector 字段的维度。
func (s *esStore) checkVectorDims(ctx context.Context) error {
	res, err := s.client.Indices.GetMapping(
		s.client.Indices.GetMapping.WithContext(ctx),
		s.client.Indices.GetMapping.WithIndex(s.cfg.IndexName),
	)
	if err != nil {
		return fmt.Errorf("获取索引 mapping 失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("获取索引 mapping 时 Elasticsearch 返回错误: %s", res.String())
	}

	var body map[string]struct {
		Mappings struct {
			Properties struct {
				Vector struct {
					Dims int `json:"dims"`
				} `json:"vector"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("解析索引 mapping 失败: %w", err)
	}

	for _, idx := range body {
		if idx.Mappings.Properties.Vector.Dims != s.cfg.VectorDims {
			return fmt.Errorf("索引 '%s' 已存在但向量维度不匹配: 期望 %d, 实际 %d",
				s.cfg.IndexName, s.cfg.VectorDims, idx.Mappings.Properties.Vector.Dims)
		}
	}
	return nil
}

func (s *esStore) AddDocuments(ctx context.Context, docs []model.VectorDocument) error {
	if len(docs) == 0 {
		return nil
	}

	// 组装 _bulk 的 NDJSON 请求体，文档 ID 取内容摘要
	var buf bytes.Buffer
	for _, doc := range docs {
		action := map[string]map[string]string{
			"index": {"_index": s.cfg.IndexName, "_id": doc.VectorID},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("序列化 bulk 操作行失败: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return fmt.Errorf("序列化向量文档失败: %w", err)
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("批量写入 Elasticsearch 失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] 批量写入返回错误: %s", res.String())
		return errors.New("批量写入时 Elasticsearch 返回错误")
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("解析 bulk 响应失败: %w", err)
	}
	// 整批视作一个写入操作：只要存在失败项，调用方就不能认为这批已成功存储
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, result := range item {
				if result.Status >= 300 {
					return fmt.Errorf("批量写入存在失败项: %s: %s", result.Error.Type, result.Error.Reason)
				}
			}
		}
		return errors.New("批量写入存在失败项")
	}

	log.Infof("[ES] 批量写入成功, 共 %d 条向量记录", len(docs))
	return nil
}

func (s *esStore) Search(ctx context.Context, vector []float32, topK int) ([]model.SearchResult, error) {
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 10,
		},
		"size":    topK,
		"_source": []string{"source_file", "chunk_id", "text_content"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("序列化检索请求失败: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.cfg.IndexName),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("向 Elasticsearch 发送检索请求失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] 检索返回错误: %s", res.String())
		return nil, fmt.Errorf("检索时 Elasticsearch 返回错误: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.VectorDocument `json:"_source"`
				Score  float64              `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("解析检索响应失败: %w", err)
	}

	results := make([]model.SearchResult, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.SearchResult{
			SourceFile:  hit.Source.SourceFile,
			ChunkID:     hit.Source.ChunkID,
			TextContent: hit.Source.TextContent,
			Score:       hit.Score,
		})
	}
	return results, nil
}
