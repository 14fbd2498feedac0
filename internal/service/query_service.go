// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"strings"

	"doc-rag-go/internal/config"
	"doc-rag-go/internal/model"
	"doc-rag-go/pkg/embedding"
	"doc-rag-go/pkg/es"
	"doc-rag-go/pkg/llm"
	"doc-rag-go/pkg/log"
)

// QueryService 定义了问答操作的接口。每次调用相互独立，不保留会话状态。
type QueryService interface {
	Answer(ctx context.Context, question string) (*model.QueryResponseDTO, error)
}

type queryService struct {
	embeddingClient embedding.Client
	store           es.Store
	llmClient       llm.Client
	queryCfg        config.QueryConfig
	llmCfg          config.LLMConfig
}

// NewQueryService 创建一个新的 QueryService 实例。
func NewQueryService(
	embeddingClient embedding.Client,
	store es.Store,
	llmClient llm.Client,
	queryCfg config.QueryConfig,
	llmCfg config.LLMConfig,
) QueryService {
	return &queryService{
		embeddingClient: embeddingClient,
		store:           store,
		llmClient:       llmClient,
		queryCfg:        queryCfg,
		llmCfg:          llmCfg,
	}
}

// Answer 协调一次完整的 RAG 流程：向量化问题、检索相关块、组装提示词并生成回答。
func (s *queryService) Answer(ctx context.Context, question string) (*model.QueryResponseDTO, error) {
	log.Infof("[QueryService] 开始处理问题: '%s', topK: %d", question, s.queryCfg.TopK)

	// 1. 向量化问题
	vector, err := s.embeddingClient.CreateEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	log.Infof("[QueryService] 步骤1: 问题向量化成功, 维度: %d", len(vector))

	// 2. 相似度检索
	results, err := s.store.Search(ctx, vector, s.queryCfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	if len(results) == 0 {
		// 检索为空不视为错误，以空上下文继续生成，但记录告警便于排查
		log.Warnf("[QueryService] 检索返回 0 条结果, 将以空上下文继续生成, question: '%s'", question)
	} else {
		log.Infof("[QueryService] 步骤2: 检索到 %d 条相关块", len(results))
	}

	// 3. 组装提示词
	contextText := buildContextText(results)
	prompt := renderPrompt(s.llmCfg.PromptTemplate, contextText, question)

	// 4. 调用 LLM 生成回答
	answer, err := s.llmClient.Generate(ctx, prompt, s.llmCfg.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	log.Infof("[QueryService] 回答生成完毕, question: '%s'", question)

	return &model.QueryResponseDTO{
		Question: question,
		Response: answer,
	}, nil
}

// buildContextText 将检索结果拼接为带编号与来源标注的上下文文本。
func buildContextText(results []model.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var contextBuilder strings.Builder
	for i, r := range results {
		fileLabel := r.SourceFile
		if fileLabel == "" {
			fileLabel = "unknown"
		}
		contextBuilder.WriteString(fmt.Sprintf("[%d] (%s) %s\n", i+1, fileLabel, r.TextContent))
	}
	return contextBuilder.String()
}

// renderPrompt 用上下文与问题填充模板中的 {context} 与 {question} 占位符。
func renderPrompt(template, contextText, question string) string {
	if template == "" {
		template = config.DefaultPromptTemplate
	}
	prompt := strings.ReplaceAll(template, "{context}", contextText)
	prompt = strings.ReplaceAll(prompt, "{question}", question)
	return prompt
}
