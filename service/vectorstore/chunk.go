package vectorstore

import (
	"fmt"

	"github.com/google/uuid"
)

// Chunk 向量索引中的原子存储单元，一页文本切分出1..N个chunk
type Chunk struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	PageNum     int    `json:"page_num"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	SlideTitle  string `json:"slide_title"`
	SlideType   string `json:"slide_type"`
	StoredAt    string `json:"stored_at"`
}

// ScoredChunk 带距离的检索结果，距离语义由索引后端定义
type ScoredChunk struct {
	Chunk
	Distance float64
}

// Filter 元数据过滤条件，零值字段不参与过滤
type Filter struct {
	FileName string
	FileType string
}

// 随机后缀避免重复摄取未清理时的ID冲突
func newChunkID(fileName string, pageNum, chunkIndex int) string {
	return fmt.Sprintf("%s_%d_%d_%s", fileName, pageNum, chunkIndex, uuid.New().String()[:8])
}
