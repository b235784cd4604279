package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results  []ScoredChunk
	queryErr error
	lastK    int

	chunks  []Chunk
	listErr error
}

func (f *fakeSearcher) Query(ctx context.Context, text string, k int, filter Filter) ([]ScoredChunk, error) {
	f.lastK = k
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeSearcher) ListChunks(ctx context.Context, filter Filter) ([]Chunk, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.chunks, nil
}

func scoredChunk(id, fileName string, pageNum int, text string, distance float64) ScoredChunk {
	return ScoredChunk{
		Chunk: Chunk{
			ID:       id,
			Text:     text,
			FileName: fileName,
			PageNum:  pageNum,
		},
		Distance: distance,
	}
}

func TestSearchExactPhraseRanksFirst(t *testing.T) {
	store := &fakeSearcher{
		results: []ScoredChunk{
			scoredChunk("c1", "a.pdf", 1, "introduction to neural network architectures", 0.5),
			scoredChunk("c2", "a.pdf", 2, "the network layer of the OSI model", 0.5),
		},
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "neural network", SearchOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, MethodHybrid, results[0].Method)
}

func TestSearchScoreMonotonicity(t *testing.T) {
	// 语义距离相同时，包含完整查询串的chunk必须严格靠前
	store := &fakeSearcher{
		results: []ScoredChunk{
			scoredChunk("miss", "a.pdf", 1, "completely unrelated content here", 0.8),
			scoredChunk("hit", "a.pdf", 2, "this chunk mentions gradient descent explicitly", 0.8),
		},
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "gradient descent", SearchOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "hit", results[0].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchDeduplicatesByPage(t *testing.T) {
	store := &fakeSearcher{
		results: []ScoredChunk{
			scoredChunk("a", "a.pdf", 1, "basics of learning", 1.6),
			scoredChunk("b", "a.pdf", 1, "deep learning guide", 1.2),
			scoredChunk("c", "b.pdf", 1, "deep learning elsewhere", 0.6),
		},
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "deep learning", SearchOptions{TopK: 5})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, r := range results {
		key := r.Chunk.FileName + "#" + string(rune(r.Chunk.PageNum))
		assert.False(t, seen[key], "page appeared twice in results")
		seen[key] = true
	}
	require.Len(t, results, 2)
	// a.pdf第1页保留分值更高的chunk
	for _, r := range results {
		if r.Chunk.FileName == "a.pdf" {
			assert.Equal(t, "b", r.Chunk.ID)
		}
	}
}

func TestSearchMinScoreFilter(t *testing.T) {
	store := &fakeSearcher{
		results: []ScoredChunk{
			scoredChunk("far", "a.pdf", 1, "nothing relevant at all", 1.9),
			scoredChunk("near", "a.pdf", 2, "quantum computing explained", 0.2),
		},
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "quantum computing", SearchOptions{TopK: 5, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Chunk.ID)
}

func TestSearchOverFetches(t *testing.T) {
	store := &fakeSearcher{}
	retriever := NewRetriever(store)

	_, err := retriever.Search(context.Background(), "anything", SearchOptions{TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, 20, store.lastK)

	_, err = retriever.Search(context.Background(), "anything", SearchOptions{TopK: 50})
	require.NoError(t, err)
	assert.Equal(t, 100, store.lastK)
}

func TestSearchFileFocusBoost(t *testing.T) {
	store := &fakeSearcher{
		results: []ScoredChunk{
			scoredChunk("a", "a.pdf", 1, "storage engine internals", 0.1),
		},
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "storage engine", SearchOptions{TopK: 5, FileName: "a.pdf"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	// 加分封顶1.0
	assert.LessOrEqual(t, results[0].Score, 1.0)
	assert.Greater(t, results[0].Score, 0.9)
}

func TestSearchTruncatesToTopK(t *testing.T) {
	store := &fakeSearcher{
		results: []ScoredChunk{
			scoredChunk("a", "a.pdf", 1, "indexing strategies", 0.1),
			scoredChunk("b", "a.pdf", 2, "indexing strategies", 0.2),
			scoredChunk("c", "a.pdf", 3, "indexing strategies", 0.3),
		},
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "indexing", SearchOptions{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchFallsBackToLexicalScan(t *testing.T) {
	store := &fakeSearcher{
		queryErr: ErrEmbeddingBackend,
		chunks: []Chunk{
			{ID: "c1", Text: "transformer attention mechanism", FileName: "a.pdf", PageNum: 1},
			{ID: "c2", Text: "attention is all you need", FileName: "a.pdf", PageNum: 2},
			{ID: "c3", Text: "unrelated material", FileName: "a.pdf", PageNum: 3},
		},
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "attention mechanism", SearchOptions{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.Equal(t, MethodLexical, r.Method)
		assert.NotEqual(t, "c3", r.Chunk.ID)
	}
	// 完整短语命中排最前
	assert.Equal(t, "c1", results[0].Chunk.ID)
}

func TestSearchFallbackFailureReturnsEmpty(t *testing.T) {
	store := &fakeSearcher{
		queryErr: ErrEmbeddingBackend,
		listErr:  errors.New("index unreachable"),
	}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "anything", SearchOptions{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	store := &fakeSearcher{}
	retriever := NewRetriever(store)

	results, err := retriever.Search(context.Background(), "   ", SearchOptions{TopK: 5})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestLexicalBoost(t *testing.T) {
	tokens := queryTokens("neural network")

	// 无任何命中时给予小幅减分
	assert.Equal(t, noMatchPenalty, lexicalBoost("neural network", tokens, "completely different"))

	// 完整短语 + 两个词命中
	withPhrase := lexicalBoost("neural network", tokens, "a neural network primer")
	assert.InDelta(t, 0.4+0.2+0.2+0.15, withPhrase, 1e-9)

	// 只命中单个词
	oneToken := lexicalBoost("neural network", tokens, "the network stack")
	assert.InDelta(t, 0.2, oneToken, 1e-9)
}

func TestQueryTokensFiltersShortAndDuplicate(t *testing.T) {
	tokens := queryTokens("a neural neural network x")
	assert.Equal(t, []string{"neural", "network"}, tokens)
}
