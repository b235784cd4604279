package knowledgebase

import (
	"context"
	"testing"

	"ppt-expansion-backend/dao"
	"ppt-expansion-backend/model"
	"ppt-expansion-backend/service/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubEmbedder struct {
	documentCalls int
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	s.documentCalls++
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubIndex struct {
	chunks      []vectorstore.Chunk
	deleteCalls []string
}

func (s *stubIndex) Insert(ctx context.Context, chunks []vectorstore.Chunk, vectors [][]float32) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *stubIndex) Search(ctx context.Context, vector []float32, k int, filter vectorstore.Filter) ([]vectorstore.ScoredChunk, error) {
	var results []vectorstore.ScoredChunk
	for _, c := range s.chunks {
		results = append(results, vectorstore.ScoredChunk{Chunk: c, Distance: 0.5})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func (s *stubIndex) List(ctx context.Context, filter vectorstore.Filter) ([]vectorstore.Chunk, error) {
	var chunks []vectorstore.Chunk
	for _, c := range s.chunks {
		if filter.FileName != "" && c.FileName != filter.FileName {
			continue
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (s *stubIndex) Delete(ctx context.Context, filter vectorstore.Filter) (int64, error) {
	s.deleteCalls = append(s.deleteCalls, filter.FileName)
	var kept []vectorstore.Chunk
	var deleted int64
	for _, c := range s.chunks {
		if c.FileName == filter.FileName {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return deleted, nil
}

func setupTestService(t *testing.T) (*Service, *stubEmbedder, *stubIndex) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Document{}, &model.PageAnalysis{}))
	dao.DB = db

	embedder := &stubEmbedder{}
	index := &stubIndex{}
	store := vectorstore.NewEmbeddingStore(embedder, index, vectorstore.NewChunker(400), 3)
	return NewService(store), embedder, index
}

func testDocPages() []model.ParsedPage {
	return []model.ParsedPage{
		{PageNum: 1, Title: "深度学习概述", RawPoints: []model.TextPoint{
			{Text: "神经网络的基本结构", Level: 0},
			{Text: "前向传播与反向传播", Level: 1},
		}},
		{PageNum: 2, Title: "训练技巧", RawPoints: []model.TextPoint{
			{Text: "学习率调度", Level: 0},
		}},
	}
}

func TestIngestStoresDocumentAndChunks(t *testing.T) {
	svc, _, index := setupTestService(t)

	result, err := svc.Ingest(context.Background(), []byte("file bytes"), "deck.pptx", model.FileTypePPTX, testDocPages(), false)
	require.NoError(t, err)

	assert.NotEmpty(t, result.DocID)
	assert.Len(t, result.FileHash, 64)
	assert.False(t, result.Cached)
	assert.Equal(t, 2, result.StoredChunks)
	assert.Len(t, index.chunks, 2)

	doc, err := dao.GetDocumentByHash(result.FileHash)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, result.DocID, doc.DocID)
	assert.Equal(t, "deck.pptx", doc.FileName)
	assert.NotEmpty(t, doc.Pages)
}

func TestIngestCacheHitShortCircuits(t *testing.T) {
	svc, embedder, index := setupTestService(t)

	first, err := svc.Ingest(context.Background(), []byte("same bytes"), "deck.pptx", model.FileTypePPTX, testDocPages(), false)
	require.NoError(t, err)
	callsAfterFirst := embedder.documentCalls
	chunksAfterFirst := len(index.chunks)

	// 同样的字节、不同的文件名依然命中缓存
	second, err := svc.Ingest(context.Background(), []byte("same bytes"), "renamed.pptx", model.FileTypePPTX, testDocPages(), false)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.DocID, second.DocID)
	assert.Equal(t, first.FileHash, second.FileHash)
	assert.Zero(t, second.StoredChunks)
	assert.Equal(t, callsAfterFirst, embedder.documentCalls)
	assert.Equal(t, chunksAfterFirst, len(index.chunks))
}

func TestIngestOverwriteReprocesses(t *testing.T) {
	svc, _, index := setupTestService(t)

	first, err := svc.Ingest(context.Background(), []byte("same bytes"), "deck.pptx", model.FileTypePPTX, testDocPages(), false)
	require.NoError(t, err)

	second, err := svc.Ingest(context.Background(), []byte("same bytes"), "deck.pptx", model.FileTypePPTX, testDocPages(), true)
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.Equal(t, first.DocID, second.DocID)
	assert.Equal(t, 2, second.StoredChunks)
	// 覆盖前清理了旧chunk，不会残留重复
	assert.Contains(t, index.deleteCalls, "deck.pptx")
	assert.Len(t, index.chunks, 2)
}

func TestPurgeRemovesChunksAndDocument(t *testing.T) {
	svc, _, index := setupTestService(t)

	result, err := svc.Ingest(context.Background(), []byte("file bytes"), "deck.pptx", model.FileTypePPTX, testDocPages(), false)
	require.NoError(t, err)

	deleted, err := svc.Purge(context.Background(), "deck.pptx")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, index.chunks)

	doc, err := dao.GetDocumentByHash(result.FileHash)
	require.NoError(t, err)
	assert.Nil(t, doc)

	// 再次purge为幂等空操作
	deleted, err = svc.Purge(context.Background(), "deck.pptx")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSearchDelegatesToRetriever(t *testing.T) {
	svc, _, _ := setupTestService(t)

	_, err := svc.Ingest(context.Background(), []byte("file bytes"), "deck.pptx", model.FileTypePPTX, testDocPages(), false)
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), "深度学习", vectorstore.SearchOptions{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "deck.pptx", results[0].Chunk.FileName)
	assert.Equal(t, vectorstore.MethodHybrid, results[0].Method)
}

func TestStatsAggregates(t *testing.T) {
	svc, _, _ := setupTestService(t)

	_, err := svc.Ingest(context.Background(), []byte("file bytes"), "deck.pptx", model.FileTypePPTX, testDocPages(), false)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 2, stats.PerFileChunkCount["deck.pptx"])
}
