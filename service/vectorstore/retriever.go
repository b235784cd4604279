package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const (
	// 检索方式标记，降级路径必须对下游可见
	MethodHybrid  = "hybrid"
	MethodLexical = "lexical"

	// 过量获取下限，为按页去重留余量
	minOverFetch = 20

	// 完整短语命中的加分
	phraseBoostBase = 0.4
	phraseBoostStep = 0.1
	phraseBoostCap  = 0.6

	// 单个查询词命中的加分
	tokenBoostBase = 0.2
	tokenBoostStep = 0.05
	tokenBoostCap  = 0.3

	// 命中两个及以上不同查询词的额外加分
	multiTokenBoost = 0.15

	// 完全无文本命中的减分，让语义接近但字面无关的chunk排后
	noMatchPenalty = -0.1

	// 限定单文件检索时对该文件结果的加分
	fileFocusBoost = 0.2

	minTokenLen = 2
)

// Searcher 检索器依赖的存储操作
type Searcher interface {
	Query(ctx context.Context, text string, k int, filter Filter) ([]ScoredChunk, error)
	ListChunks(ctx context.Context, filter Filter) ([]Chunk, error)
}

// Retriever 混合检索器，融合语义相似度和文本命中加分
// embedding后端不可用时降级为纯文本扫描
type Retriever struct {
	store Searcher
}

type SearchOptions struct {
	TopK     int
	FileName string
	FileType string
	MinScore float64
}

type SearchResult struct {
	Chunk  Chunk   `json:"chunk"`
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}

func NewRetriever(store Searcher) *Retriever {
	return &Retriever{store: store}
}

// Search 返回按分值降序、按(file_name, page_num)去重后的页面级结果
func (r *Retriever) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, nil
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	filter := Filter{FileName: opts.FileName, FileType: opts.FileType}
	overFetch := max(2*opts.TopK, minOverFetch)

	scored, err := r.store.Query(ctx, query, overFetch, filter)
	if err != nil {
		if errors.Is(err, ErrEmbeddingBackend) {
			slog.Warn("semantic search unavailable, degrading to lexical scan", "err", err)
			return r.lexicalFallback(ctx, normalized, opts, filter), nil
		}
		return nil, fmt.Errorf("semantic search failed: %v", err)
	}

	tokens := queryTokens(normalized)

	var results []SearchResult
	for _, sc := range scored {
		semantic := clamp01(1 - sc.Distance/2)
		final := clamp01(semantic + lexicalBoost(normalized, tokens, strings.ToLower(sc.Text)))
		if final < opts.MinScore {
			continue
		}
		results = append(results, SearchResult{
			Chunk:  sc.Chunk,
			Score:  final,
			Method: MethodHybrid,
		})
	}

	results = dedupByPage(results)

	// 限定了文件时优先当前文档
	if opts.FileName != "" {
		for i := range results {
			results[i].Score = clamp01(results[i].Score + fileFocusBoost)
		}
	}

	sortByScore(results)
	return truncate(results, opts.TopK), nil
}

// lexicalFallback 纯文本扫描，尽力而为：扫描失败返回空结果而非错误
func (r *Retriever) lexicalFallback(ctx context.Context, normalized string, opts SearchOptions, filter Filter) []SearchResult {
	chunks, err := r.store.ListChunks(ctx, filter)
	if err != nil {
		slog.Error("lexical fallback scan failed", "err", err)
		return []SearchResult{}
	}

	tokens := queryTokens(normalized)

	var results []SearchResult
	for _, chunk := range chunks {
		score := lexicalScanScore(normalized, tokens, strings.ToLower(chunk.Text))
		if score <= 0 || score < opts.MinScore {
			continue
		}
		results = append(results, SearchResult{
			Chunk:  chunk,
			Score:  score,
			Method: MethodLexical,
		})
	}

	results = dedupByPage(results)
	sortByScore(results)
	return truncate(results, opts.TopK)
}

// lexicalBoost 对归一化查询串计算文本命中加分
func lexicalBoost(normalized string, tokens []string, text string) float64 {
	boost := 0.0
	matchedAny := false

	if count := strings.Count(text, normalized); count > 0 {
		matchedAny = true
		boost += min(phraseBoostBase+phraseBoostStep*float64(count-1), phraseBoostCap)
	}

	matchedTokens := 0
	for _, token := range tokens {
		count := strings.Count(text, token)
		if count == 0 {
			continue
		}
		matchedAny = true
		matchedTokens++
		boost += min(tokenBoostBase+tokenBoostStep*float64(count-1), tokenBoostCap)
	}

	if matchedTokens >= 2 {
		boost += multiTokenBoost
	}
	if !matchedAny {
		boost = noMatchPenalty
	}
	return boost
}

// lexicalScanScore 降级路径的打分：命中词数归一化到[0,1]，整串命中再拉满一半
func lexicalScanScore(normalized string, tokens []string, text string) float64 {
	if len(tokens) == 0 {
		if strings.Contains(text, normalized) {
			return 1.0
		}
		return 0
	}

	matched := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			matched++
		}
	}
	score := float64(matched) / float64(len(tokens))

	if strings.Contains(text, normalized) {
		score = clamp01(score + 0.5)
	}
	return clamp01(score)
}

func queryTokens(normalized string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, token := range strings.Fields(normalized) {
		if len(token) < minTokenLen || seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return tokens
}

// dedupByPage 每个(file_name, page_num)只保留分值最高的chunk
func dedupByPage(results []SearchResult) []SearchResult {
	best := make(map[string]int)
	var deduped []SearchResult
	for _, r := range results {
		key := fmt.Sprintf("%s\x00%d", r.Chunk.FileName, r.Chunk.PageNum)
		if idx, ok := best[key]; ok {
			if r.Score > deduped[idx].Score {
				deduped[idx] = r
			}
			continue
		}
		best[key] = len(deduped)
		deduped = append(deduped, r)
	}
	return deduped
}

func sortByScore(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func truncate(results []SearchResult, k int) []SearchResult {
	if len(results) > k {
		return results[:k]
	}
	return results
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
