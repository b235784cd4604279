package knowledgebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ppt-expansion-backend/dao"
	"ppt-expansion-backend/model"
	"ppt-expansion-backend/service/vectorstore"

	"github.com/google/uuid"
)

// Service 文档摄取与检索的编排层
type Service struct {
	store     *vectorstore.EmbeddingStore
	retriever *vectorstore.Retriever
}

type IngestResult struct {
	DocID    string `json:"doc_id"`
	FileHash string `json:"file_hash"`

	// 哈希命中缓存，跳过了向量化处理
	Cached bool `json:"cached"`

	StoredChunks  int `json:"stored_chunks"`
	SkippedChunks int `json:"skipped_chunks"`
}

func NewService(store *vectorstore.EmbeddingStore) *Service {
	return &Service{
		store:     store,
		retriever: vectorstore.NewRetriever(store),
	}
}

// Ingest 摄取一份解析后的文档
// 哈希查找先于一切重处理：同样的字节再次出现时直接短路返回
func (s *Service) Ingest(ctx context.Context, data []byte, fileName string, fileType model.FileType, pages []model.ParsedPage, overwrite bool) (IngestResult, error) {
	fileHash, err := HashReader(bytes.NewReader(data))
	if err != nil {
		return IngestResult{}, err
	}

	existing, err := dao.GetDocumentByHash(fileHash)
	if err != nil {
		return IngestResult{}, err
	}
	if existing != nil && !overwrite {
		slog.Info("document already processed, skipping",
			"file_name", fileName,
			"file_hash", fileHash,
			"doc_id", existing.DocID,
		)
		return IngestResult{
			DocID:    existing.DocID,
			FileHash: fileHash,
			Cached:   true,
		}, nil
	}

	// 重新摄取前清理旧chunk，摄取本身可通过重跑恢复
	if overwrite {
		if _, err := s.store.DeleteByFile(ctx, fileName); err != nil {
			slog.Warn("failed to delete existing chunks before overwrite",
				"file_name", fileName,
				"err", err,
			)
		}
	}

	storeResult, err := s.store.StorePages(ctx, fileName, fileType, pages)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to store chunks: %v", err)
	}

	docID := uuid.New().String()
	if existing != nil {
		docID = existing.DocID
	}

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to marshal pages: %v", err)
	}

	if err := dao.UpsertDocument(docID, fileName, fileType, fileHash, pagesJSON, nil); err != nil {
		return IngestResult{}, err
	}

	slog.Info("document ingested",
		"file_name", fileName,
		"doc_id", docID,
		"stored_chunks", storeResult.StoredCount,
		"skipped_chunks", storeResult.SkippedCount,
	)

	return IngestResult{
		DocID:         docID,
		FileHash:      fileHash,
		StoredChunks:  storeResult.StoredCount,
		SkippedChunks: storeResult.SkippedCount,
	}, nil
}

// Search 混合检索，embedding后端故障时自动降级
func (s *Service) Search(ctx context.Context, query string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	return s.retriever.Search(ctx, query, opts)
}

// Purge 删除文件的全部chunk及其文档缓存记录
func (s *Service) Purge(ctx context.Context, fileName string) (bool, error) {
	deleted, err := s.store.DeleteByFile(ctx, fileName)
	if err != nil {
		return false, fmt.Errorf("failed to delete chunks: %v", err)
	}

	if err := dao.DeleteDocumentByFileName(fileName); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (s *Service) Stats(ctx context.Context) (vectorstore.Stats, error) {
	return s.store.Stats(ctx)
}
