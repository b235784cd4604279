package vectorstore

import (
	"strings"
	"testing"

	"ppt-expansion-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPageSingleChunk(t *testing.T) {
	chunker := NewChunker(400)

	page := model.ParsedPage{
		PageNum: 1,
		Title:   "机器学习概述",
		RawPoints: []model.TextPoint{
			{Text: "监督学习", Level: 0},
			{Text: "分类任务", Level: 1},
			{Text: "回归任务", Level: 1},
			{Text: "无监督学习", Level: 0},
		},
		Type: "content",
	}

	chunks := chunker.SplitPage(page)
	require.Len(t, chunks, 1)

	lines := strings.Split(chunks[0], "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "机器学习概述", lines[0])
	assert.Equal(t, "监督学习", lines[1])
	assert.Equal(t, "  分类任务", lines[2])
	assert.Equal(t, "  回归任务", lines[3])
	assert.Equal(t, "无监督学习", lines[4])
}

func TestSplitPageSkipsEmptyPage(t *testing.T) {
	chunker := NewChunker(400)

	assert.Nil(t, chunker.SplitPage(model.ParsedPage{PageNum: 1}))

	assert.Nil(t, chunker.SplitPage(model.ParsedPage{
		PageNum: 2,
		RawPoints: []model.TextPoint{
			{Text: "   ", Level: 0},
			{Text: "\t", Level: 1},
		},
	}))

	// 展平后不足10个字符的页面同样跳过
	assert.Nil(t, chunker.SplitPage(model.ParsedPage{
		PageNum: 3,
		Title:   "abc",
	}))
}

func TestSplitPageLongPage(t *testing.T) {
	chunker := NewChunker(400)
	maxChars := chunker.MaxChars()
	require.Equal(t, 1200, maxChars)

	// 100行x50字符，约5000字符
	var points []model.TextPoint
	line := strings.Repeat("x", 49)
	for i := 0; i < 100; i++ {
		points = append(points, model.TextPoint{Text: line, Level: 0})
	}

	page := model.ParsedPage{
		PageNum:   2,
		Title:     "long page",
		RawPoints: points,
	}

	chunks := chunker.SplitPage(page)
	assert.GreaterOrEqual(t, len(chunks), 4)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), maxChars)
	}

	// 各chunk拼接后行序与原始一致
	var allLines []string
	for _, chunk := range chunks {
		allLines = append(allLines, strings.Split(chunk, "\n")...)
	}
	require.Len(t, allLines, 101)
	assert.Equal(t, "long page", allLines[0])
	for _, l := range allLines[1:] {
		assert.Equal(t, line, l)
	}
}

func TestSplitPageHardSplitsOversizedLine(t *testing.T) {
	chunker := NewChunker(20)
	maxChars := chunker.MaxChars()

	oversized := strings.Repeat("a", 3*maxChars+7)
	page := model.ParsedPage{
		PageNum: 1,
		RawPoints: []model.TextPoint{
			{Text: oversized, Level: 0},
		},
	}

	chunks := chunker.SplitPage(page)
	require.Len(t, chunks, 4)

	var total int
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), maxChars)
		total += len(chunk)
	}
	// 强制切分不丢内容
	assert.Equal(t, len(oversized), total)
}

func TestHardSplitKeepsRuneBoundaries(t *testing.T) {
	parts := hardSplit(strings.Repeat("中", 10), 8)

	var rebuilt strings.Builder
	for _, part := range parts {
		assert.LessOrEqual(t, len(part), 8)
		for _, r := range part {
			assert.Equal(t, '中', r)
		}
		rebuilt.WriteString(part)
	}
	assert.Equal(t, strings.Repeat("中", 10), rebuilt.String())
}
