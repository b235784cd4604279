package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	client "github.com/milvus-io/milvus/client/v2/milvusclient"
)

const (
	// 与collection schema及embedding模型输出一致
	vectorDim = 1024

	// 全量扫描的保护上限
	maxScanLimit = 16384

	// 单次索引调用超时，慢后端不能拖垮其他请求
	callTimeout = 30 * time.Second

	fieldID          = "id"
	fieldVector      = "vector"
	fieldText        = "text"
	fieldFileName    = "file_name"
	fieldFileType    = "file_type"
	fieldPageNum     = "page_num"
	fieldChunkIndex  = "chunk_index"
	fieldTotalChunks = "total_chunks"
	fieldSlideTitle  = "slide_title"
	fieldSlideType   = "slide_type"
	fieldStoredAt    = "stored_at"
)

var outputFields = []string{
	fieldID, fieldText, fieldFileName, fieldFileType,
	fieldPageNum, fieldChunkIndex, fieldTotalChunks,
	fieldSlideTitle, fieldSlideType, fieldStoredAt,
}

// MilvusIndex 基于Milvus的向量索引实现
type MilvusIndex struct {
	client         *client.Client
	collectionName string
}

var _ Index = &MilvusIndex{}

func NewMilvusIndex(ctx context.Context, endpoint, apiKey, collectionName string) (*MilvusIndex, error) {
	c, err := client.New(ctx, &client.ClientConfig{
		Address: endpoint,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %v", err)
	}

	return &MilvusIndex{
		client:         c,
		collectionName: collectionName,
	}, nil
}

func (m *MilvusIndex) Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	ids := make([]string, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	fileNames := make([]string, 0, len(chunks))
	fileTypes := make([]string, 0, len(chunks))
	pageNums := make([]int64, 0, len(chunks))
	chunkIndexes := make([]int64, 0, len(chunks))
	totalChunks := make([]int64, 0, len(chunks))
	slideTitles := make([]string, 0, len(chunks))
	slideTypes := make([]string, 0, len(chunks))
	storedAts := make([]string, 0, len(chunks))

	for _, c := range chunks {
		ids = append(ids, c.ID)
		texts = append(texts, c.Text)
		fileNames = append(fileNames, c.FileName)
		fileTypes = append(fileTypes, c.FileType)
		pageNums = append(pageNums, int64(c.PageNum))
		chunkIndexes = append(chunkIndexes, int64(c.ChunkIndex))
		totalChunks = append(totalChunks, int64(c.TotalChunks))
		slideTitles = append(slideTitles, c.SlideTitle)
		slideTypes = append(slideTypes, c.SlideType)
		storedAts = append(storedAts, c.StoredAt)
	}

	columns := []column.Column{
		column.NewColumnVarChar(fieldID, ids),
		column.NewColumnFloatVector(fieldVector, vectorDim, vectors),
		column.NewColumnVarChar(fieldText, texts),
		column.NewColumnVarChar(fieldFileName, fileNames),
		column.NewColumnVarChar(fieldFileType, fileTypes),
		column.NewColumnInt64(fieldPageNum, pageNums),
		column.NewColumnInt64(fieldChunkIndex, chunkIndexes),
		column.NewColumnInt64(fieldTotalChunks, totalChunks),
		column.NewColumnVarChar(fieldSlideTitle, slideTitles),
		column.NewColumnVarChar(fieldSlideType, slideTypes),
		column.NewColumnVarChar(fieldStoredAt, storedAts),
	}

	insertOption := client.NewColumnBasedInsertOption(m.collectionName).WithColumns(columns...)
	if _, err := m.client.Insert(ctx, insertOption); err != nil {
		return fmt.Errorf("error inserting chunks: %v", err)
	}
	return nil
}

func (m *MilvusIndex) Search(ctx context.Context, vector []float32, k int, filter Filter) ([]ScoredChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	option := client.NewSearchOption(m.collectionName, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(fieldVector).
		WithOutputFields(outputFields...)
	if expr := filterExpr(filter); expr != "" {
		option = option.WithFilter(expr)
	}

	resultSets, err := m.client.Search(ctx, option)
	if err != nil {
		return nil, fmt.Errorf("error searching chunks: %v", err)
	}

	var results []ScoredChunk
	for _, rs := range resultSets {
		for i := 0; i < rs.ResultCount; i++ {
			chunk, err := chunkFromResultSet(rsColumns(rs), i)
			if err != nil {
				return nil, err
			}
			// COSINE度量返回[-1,1]的相似度，转换为[0,2]的余弦距离
			distance := 1 - float64(rs.Scores[i])
			results = append(results, ScoredChunk{Chunk: chunk, Distance: distance})
		}
	}
	return results, nil
}

func (m *MilvusIndex) List(ctx context.Context, filter Filter) ([]Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	expr := filterExpr(filter)
	if expr == "" {
		// Milvus查询必须带过滤表达式，全量扫描用恒真条件
		expr = fmt.Sprintf("%s >= 0", fieldChunkIndex)
	}

	option := client.NewQueryOption(m.collectionName).
		WithFilter(expr).
		WithOutputFields(outputFields...).
		WithLimit(maxScanLimit)

	rs, err := m.client.Query(ctx, option)
	if err != nil {
		return nil, fmt.Errorf("error listing chunks: %v", err)
	}

	count := 0
	if idCol := rs.GetColumn(fieldID); idCol != nil {
		count = idCol.Len()
	}

	var chunks []Chunk
	for i := 0; i < count; i++ {
		chunk, err := chunkFromResultSet(rs.GetColumn, i)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (m *MilvusIndex) Delete(ctx context.Context, filter Filter) (int64, error) {
	expr := filterExpr(filter)
	if expr == "" {
		return 0, fmt.Errorf("refusing to delete without a filter")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	result, err := m.client.Delete(ctx, client.NewDeleteOption(m.collectionName).WithExpr(expr))
	if err != nil {
		return 0, fmt.Errorf("error deleting chunks: %v", err)
	}
	return result.DeleteCount, nil
}

func rsColumns(rs client.ResultSet) func(string) column.Column {
	return func(name string) column.Column {
		if name == fieldID {
			return rs.IDs
		}
		return rs.GetColumn(name)
	}
}

func chunkFromResultSet(getColumn func(string) column.Column, idx int) (Chunk, error) {
	getString := func(name string) (string, error) {
		col := getColumn(name)
		if col == nil {
			return "", nil
		}
		return col.GetAsString(idx)
	}
	getInt := func(name string) (int64, error) {
		col := getColumn(name)
		if col == nil {
			return 0, nil
		}
		return col.GetAsInt64(idx)
	}

	var chunk Chunk
	var err error
	if chunk.ID, err = getString(fieldID); err != nil {
		return Chunk{}, fmt.Errorf("error reading chunk id: %v", err)
	}
	if chunk.Text, err = getString(fieldText); err != nil {
		return Chunk{}, fmt.Errorf("error reading chunk text: %v", err)
	}
	if chunk.FileName, err = getString(fieldFileName); err != nil {
		return Chunk{}, fmt.Errorf("error reading file name: %v", err)
	}
	if chunk.FileType, err = getString(fieldFileType); err != nil {
		return Chunk{}, fmt.Errorf("error reading file type: %v", err)
	}

	pageNum, err := getInt(fieldPageNum)
	if err != nil {
		return Chunk{}, fmt.Errorf("error reading page num: %v", err)
	}
	chunkIndex, err := getInt(fieldChunkIndex)
	if err != nil {
		return Chunk{}, fmt.Errorf("error reading chunk index: %v", err)
	}
	totalChunks, err := getInt(fieldTotalChunks)
	if err != nil {
		return Chunk{}, fmt.Errorf("error reading total chunks: %v", err)
	}
	chunk.PageNum = int(pageNum)
	chunk.ChunkIndex = int(chunkIndex)
	chunk.TotalChunks = int(totalChunks)

	if chunk.SlideTitle, err = getString(fieldSlideTitle); err != nil {
		return Chunk{}, fmt.Errorf("error reading slide title: %v", err)
	}
	if chunk.SlideType, err = getString(fieldSlideType); err != nil {
		return Chunk{}, fmt.Errorf("error reading slide type: %v", err)
	}
	if chunk.StoredAt, err = getString(fieldStoredAt); err != nil {
		return Chunk{}, fmt.Errorf("error reading stored at: %v", err)
	}

	return chunk, nil
}

func filterExpr(filter Filter) string {
	var conditions []string
	if filter.FileName != "" {
		conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, fieldFileName, escapeExprValue(filter.FileName)))
	}
	if filter.FileType != "" {
		conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, fieldFileType, escapeExprValue(filter.FileType)))
	}
	return strings.Join(conditions, " && ")
}

func escapeExprValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}
