// Package model 定义了系统内部流转的数据结构。
package model

// Document 代表一个待摄取的来源文件。
type Document struct {
	SourceFile string // 文件名（不含目录）
	Text       string // 文件全文
}

// Chunk 代表切分后的文本块，是向量化与检索的基本单位。
// Hash 是块文本的 md5 十六进制摘要，对相同文本始终相同。
type Chunk struct {
	SourceFile string
	ChunkID    int
	Text       string
	Hash       string
}

// VectorDocument 定义了存储在 Elasticsearch 中的向量记录结构。
type VectorDocument struct {
	VectorID     string    `json:"vector_id"` // 唯一标识，取块内容摘要
	SourceFile   string    `json:"source_file"`
	ChunkID      int       `json:"chunk_id"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"` // 文本内容的向量表示
	ModelVersion string    `json:"model_version"`
}

// SearchResult 代表一条相似度检索的命中结果。
type SearchResult struct {
	SourceFile  string  `json:"sourceFile"`
	ChunkID     int     `json:"chunkId"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}

// QueryResponseDTO 定义了 /query 接口的成功响应体。
type QueryResponseDTO struct {
	Question string `json:"question"`
	Response string `json:"response"`
}
