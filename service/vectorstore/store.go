package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ppt-expansion-backend/config"
	"ppt-expansion-backend/model"
	"ppt-expansion-backend/utils"

	"github.com/avast/retry-go/v4"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultEmbeddingModel = "text-embedding-v4"

	// 低批次大小规避embedding API的负载限制
	defaultBatchSize = 3

	insertAttempts = 2

	embeddingTimeout = 60 * time.Second
)

// Index 向量索引的最小操作集
type Index interface {
	Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int, filter Filter) ([]ScoredChunk, error)
	List(ctx context.Context, filter Filter) ([]Chunk, error)
	Delete(ctx context.Context, filter Filter) (int64, error)
}

// EmbeddingStore 持有embedding客户端和向量索引，负责分批弹性写入和元数据过滤读取
type EmbeddingStore struct {
	embedder  embeddings.Embedder
	index     Index
	chunker   *Chunker
	batchSize int
}

type StoreResult struct {
	StoredCount  int `json:"stored_count"`
	SkippedCount int `json:"skipped_count"`
}

type Stats struct {
	TotalChunks       int            `json:"total_chunks"`
	TotalFiles        int            `json:"total_files"`
	PerFileChunkCount map[string]int `json:"per_file_chunk_count"`
	PerTypeCount      map[string]int `json:"per_type_count"`
}

func NewEmbeddingStore(embedder embeddings.Embedder, index Index, chunker *Chunker, batchSize int) *EmbeddingStore {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &EmbeddingStore{
		embedder:  embedder,
		index:     index,
		chunker:   chunker,
		batchSize: batchSize,
	}
}

// NewDefaultEmbeddingStore 按全局配置构建embedding客户端和Milvus索引
func NewDefaultEmbeddingStore(ctx context.Context) (*EmbeddingStore, error) {
	embeddingModel := config.Cfg.Model.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	client, err := openai.New(
		openai.WithEmbeddingModel(embeddingModel),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(config.Cfg.Model.BaseURL),
		openai.WithHTTPClient(utils.NewHTTPClient(
			utils.WithTimeout(embeddingTimeout),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.Cfg.Search.EmbeddingBatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}

	index, err := NewMilvusIndex(ctx, config.Cfg.Milvus.Endpoint, config.Cfg.Milvus.APIKey, config.Cfg.Milvus.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus index: %v", err)
	}

	return NewEmbeddingStore(embedder, index, NewChunker(config.Cfg.Search.MaxTokens), config.Cfg.Search.EmbeddingBatchSize), nil
}

// StorePages 切分页面并分批写入向量索引
// 批次失败时退化为逐条写入，超出大小限制的chunk跳过，不影响同批其他chunk
func (s *EmbeddingStore) StorePages(ctx context.Context, fileName string, fileType model.FileType, pages []model.ParsedPage) (StoreResult, error) {
	chunks := s.buildChunks(fileName, fileType, pages)
	if len(chunks) == 0 {
		return StoreResult{}, nil
	}

	result := StoreResult{}
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		if err := s.insertBatch(ctx, batch); err != nil {
			slog.Warn("batch insert failed, falling back to per-chunk insert",
				"file_name", fileName,
				"batch_start", start,
				"err", err,
			)
			stored, skipped := s.insertOneByOne(ctx, batch)
			result.StoredCount += stored
			result.SkippedCount += skipped
			continue
		}
		result.StoredCount += len(batch)
	}

	return result, nil
}

func (s *EmbeddingStore) buildChunks(fileName string, fileType model.FileType, pages []model.ParsedPage) []Chunk {
	now := time.Now().Format(time.RFC3339)

	var chunks []Chunk
	for _, page := range pages {
		texts := s.chunker.SplitPage(page)
		for i, text := range texts {
			chunks = append(chunks, Chunk{
				ID:          newChunkID(fileName, page.PageNum, i),
				Text:        text,
				FileName:    fileName,
				FileType:    string(fileType),
				PageNum:     page.PageNum,
				ChunkIndex:  i,
				TotalChunks: len(texts),
				SlideTitle:  page.Title,
				SlideType:   page.Type,
				StoredAt:    now,
			})
		}
	}
	return chunks
}

func (s *EmbeddingStore) insertBatch(ctx context.Context, batch []Chunk) error {
	texts := make([]string, 0, len(batch))
	for _, c := range batch {
		texts = append(texts, c.Text)
	}

	return retry.Do(
		func() error {
			vectors, err := s.embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed batch: %v", err)
			}
			if err := s.index.Insert(ctx, batch, vectors); err != nil {
				return fmt.Errorf("failed to insert batch: %v", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(insertAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("retrying batch insert", "attempt", n+1, "err", err)
		}),
	)
}

func (s *EmbeddingStore) insertOneByOne(ctx context.Context, batch []Chunk) (stored, skipped int) {
	for _, chunk := range batch {
		vectors, err := s.embedder.EmbedDocuments(ctx, []string{chunk.Text})
		if err != nil {
			if isSizeLimitErr(err) {
				slog.Warn("chunk exceeds embedding size limit, skipped",
					"chunk_id", chunk.ID,
					"chunk_len", len(chunk.Text),
					"err", fmt.Errorf("%w: %v", ErrChunkTooLarge, err),
				)
			} else {
				slog.Error("failed to embed chunk, skipped", "chunk_id", chunk.ID, "err", err)
			}
			skipped++
			continue
		}

		if err := s.index.Insert(ctx, []Chunk{chunk}, vectors); err != nil {
			slog.Error("failed to insert chunk, skipped", "chunk_id", chunk.ID, "err", err)
			skipped++
			continue
		}
		stored++
	}
	return stored, skipped
}

// Query 最近邻检索，距离语义由后端定义
// embedding后端不可用时返回ErrEmbeddingBackend，由调用方决定降级
func (s *EmbeddingStore) Query(ctx context.Context, text string, k int, filter Filter) ([]ScoredChunk, error) {
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingBackend, err)
	}

	results, err := s.index.Search(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingBackend, err)
	}
	return results, nil
}

// GetByFile 按文件名获取全部chunk，不排序
func (s *EmbeddingStore) GetByFile(ctx context.Context, fileName string) ([]Chunk, error) {
	return s.index.List(ctx, Filter{FileName: fileName})
}

// ListChunks 按过滤条件扫描chunk，供纯文本降级检索使用
func (s *EmbeddingStore) ListChunks(ctx context.Context, filter Filter) ([]Chunk, error) {
	return s.index.List(ctx, filter)
}

// DeleteByFile 删除文件的全部chunk，返回是否删除了数据
func (s *EmbeddingStore) DeleteByFile(ctx context.Context, fileName string) (bool, error) {
	count, err := s.index.Delete(ctx, Filter{FileName: fileName})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *EmbeddingStore) Stats(ctx context.Context) (Stats, error) {
	chunks, err := s.index.List(ctx, Filter{})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalChunks:       len(chunks),
		PerFileChunkCount: make(map[string]int),
		PerTypeCount:      make(map[string]int),
	}
	for _, c := range chunks {
		stats.PerFileChunkCount[c.FileName]++
		stats.PerTypeCount[c.FileType]++
	}
	stats.TotalFiles = len(stats.PerFileChunkCount)
	return stats, nil
}

func isSizeLimitErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "maximum context length") ||
		strings.Contains(msg, "too long") ||
		strings.Contains(msg, "length exceeded") ||
		strings.Contains(msg, "413")
}
