// Package llm 提供了访问大语言模型后端的客户端。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"doc-rag-go/internal/config"
	"doc-rag-go/pkg/log"
)

// Client 定义了 LLM 客户端的接口。
type Client interface {
	// Generate 向模型提交 prompt 并返回生成的文本。
	// maxTokens 限制生成长度，传 0 时使用配置中的缺省值。
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type ollamaClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient 创建一个访问 Ollama 兼容后端的 LLM 客户端。
func NewClient(cfg config.LLMConfig) Client {
	return &ollamaClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type generateOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate 调用 Ollama 的 /api/generate 接口，一次性返回完整生成结果。
func (c *ollamaClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	log.Infof("[LLMClient] 开始调用生成接口, model: %s, maxTokens: %d, prompt_len: %d", c.cfg.Model, maxTokens, len(prompt))

	reqBody := generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
	}
	if maxTokens > 0 {
		reqBody.Options = &generateOptions{NumPredict: maxTokens}
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/api/generate", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[LLMClient] 调用生成接口失败, error: %v", err)
		return "", fmt.Errorf("failed to call generate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Errorf("[LLMClient] 生成接口返回非 200 状态码: %s, body: %s", resp.Status, string(bodyBytes))
		return "", fmt.Errorf("generate api returned non-200 status: %s", resp.Status)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("generate api returned error: %s", genResp.Error)
	}

	log.Infof("[LLMClient] 生成成功, 输出长度: %d", len(genResp.Response))
	return genResp.Response, nil
}
