package knowledgebase

import (
	"context"
	"fmt"

	"ppt-expansion-backend/model"
	"ppt-expansion-backend/service/vectorstore"
)

// 默认服务实例，启动时初始化
var defaultService *Service

func Init(ctx context.Context) error {
	store, err := vectorstore.NewDefaultEmbeddingStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create embedding store: %v", err)
	}
	defaultService = NewService(store)
	return nil
}

func Ingest(ctx context.Context, data []byte, fileName string, fileType model.FileType, pages []model.ParsedPage, overwrite bool) (IngestResult, error) {
	return defaultService.Ingest(ctx, data, fileName, fileType, pages, overwrite)
}

func Search(ctx context.Context, query string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	return defaultService.Search(ctx, query, opts)
}

func Purge(ctx context.Context, fileName string) (bool, error) {
	return defaultService.Purge(ctx, fileName)
}

func Stats(ctx context.Context) (vectorstore.Stats, error) {
	return defaultService.Stats(ctx)
}
