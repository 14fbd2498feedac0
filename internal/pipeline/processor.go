// Package pipeline 定义了增量摄取的核心流程。
package pipeline

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"

	"doc-rag-go/internal/config"
	"doc-rag-go/internal/model"
	"doc-rag-go/internal/repository"
	"doc-rag-go/pkg/embedding"
	"doc-rag-go/pkg/es"
	"doc-rag-go/pkg/log"
)

// Processor 封装了摄取任务的所有依赖和逻辑。
type Processor struct {
	embeddingClient embedding.Client
	store           es.Store
	ledger          repository.HashLedgerRepository
	ingestCfg       config.IngestConfig
	embeddingCfg    config.EmbeddingConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	embeddingClient embedding.Client,
	store es.Store,
	ledger repository.HashLedgerRepository,
	ingestCfg config.IngestConfig,
	embeddingCfg config.EmbeddingConfig,
) *Processor {
	return &Processor{
		embeddingClient: embeddingClient,
		store:           store,
		ledger:          ledger,
		ingestCfg:       ingestCfg,
		embeddingCfg:    embeddingCfg,
	}
}

// Run 执行一次完整的摄取：扫描目录、切块、按账本跳过已摄取的块、
// 批量向量化并写入向量存储，最后原子地持久化账本。
// 返回本次新摄取的块数。对未变化的目录重复运行不会产生新的写入。
func (p *Processor) Run(ctx context.Context) (int, error) {
	log.Infof("[Processor] 开始摄取, dataDir: %s, chunkSize: %d, chunkOverlap: %d",
		p.ingestCfg.DataDir, p.ingestCfg.ChunkSize, p.ingestCfg.ChunkOverlap)

	// 1. 加载哈希账本
	if err := p.ledger.Load(); err != nil {
		return 0, fmt.Errorf("加载哈希账本失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 哈希账本加载完成, 已有 %d 条记录", p.ledger.Len())

	// 2. 确保向量索引存在
	if err := p.store.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("初始化向量索引失败: %w", err)
	}
	log.Info("[Processor] 步骤2: 向量索引就绪")

	// 3. 扫描目录、切块并按账本过滤出新块
	entries, err := os.ReadDir(p.ingestCfg.DataDir)
	if err != nil {
		return 0, fmt.Errorf("读取数据目录失败: %w", err)
	}

	var newChunks []model.Chunk
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(p.ingestCfg.DataDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			// 单个文件读取失败只跳过该文件，不中止整轮摄取
			log.Warnf("[Processor] 读取文件失败, 跳过: %s, error: %v", path, err)
			continue
		}
		doc := model.Document{SourceFile: entry.Name(), Text: string(data)}

		chunks := splitText(doc.Text, p.ingestCfg.ChunkSize, p.ingestCfg.ChunkOverlap)
		fileNew := 0
		for i, text := range chunks {
			hash := contentHash(text)
			if p.ledger.Contains(hash) {
				continue
			}
			p.ledger.Record(hash, doc.SourceFile)
			newChunks = append(newChunks, model.Chunk{
				SourceFile: doc.SourceFile,
				ChunkID:    i,
				Text:       text,
				Hash:       hash,
			})
			fileNew++
		}
		log.Infof("[Processor] 文件 '%s' 切分为 %d 块, 其中新块 %d 个", doc.SourceFile, len(chunks), fileNew)
	}
	log.Infof("[Processor] 步骤3: 目录扫描完成, 待摄取的新块共 %d 个", len(newChunks))

	// 4. 批量向量化并写入向量存储
	if len(newChunks) > 0 {
		texts := make([]string, len(newChunks))
		for i, c := range newChunks {
			texts[i] = c.Text
		}
		vectors, err := p.embeddingClient.CreateEmbeddings(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("批量向量化失败: %w", err)
		}
		if len(vectors) != len(newChunks) {
			return 0, fmt.Errorf("向量数量与分块数量不一致: %d != %d", len(vectors), len(newChunks))
		}

		docs := make([]model.VectorDocument, 0, len(newChunks))
		for i, c := range newChunks {
			docs = append(docs, model.VectorDocument{
				VectorID:     c.Hash,
				SourceFile:   c.SourceFile,
				ChunkID:      c.ChunkID,
				TextContent:  c.Text,
				Vector:       vectors[i],
				ModelVersion: p.embeddingCfg.Model,
			})
		}
		// 写入失败时直接返回，不持久化账本：账本中的哈希必须对应已成功存储的块
		if err := p.store.AddDocuments(ctx, docs); err != nil {
			return 0, fmt.Errorf("批量写入向量存储失败: %w", err)
		}
		log.Infof("[Processor] 步骤4: 成功写入 %d 个新块", len(newChunks))
	} else {
		log.Info("[Processor] 没有需要摄取的新块")
	}

	// 5. 原子持久化账本
	if err := p.ledger.Persist(); err != nil {
		return 0, fmt.Errorf("持久化哈希账本失败: %w", err)
	}

	log.Infof("[Processor] 摄取完成, 本次新增 %d 个块, 账本共 %d 条记录", len(newChunks), p.ledger.Len())
	return len(newChunks), nil
}

// splitText 将长文本按指定大小和重叠进行切分。
func splitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= chunkOverlap {
		// Fallback to simple split if overlap is invalid
		return simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func simpleSplit(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// contentHash 计算块文本的 md5 十六进制摘要，对相同文本始终相同。
func contentHash(text string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(text)))
}
