package vectorstore

import (
	"strings"

	"ppt-expansion-backend/model"
)

const (
	// 按保守的3字节/token估算chunk的字符预算
	bytesPerToken = 3

	// 展平后少于该字符数的页面不产生chunk
	minPageChars = 10
)

// Chunker 将单页结构化文本切分为不超过字符预算的chunk序列
// 贪心按行打包，尽量不在行中间切断
type Chunker struct {
	maxChars int
}

func NewChunker(maxTokens int) *Chunker {
	return &Chunker{
		maxChars: maxTokens * bytesPerToken,
	}
}

func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// SplitPage 展平页面并切分，保持原始行序
// 空白页返回nil，不进入索引
func (c *Chunker) SplitPage(page model.ParsedPage) []string {
	flat := flattenPage(page)
	if len(strings.TrimSpace(flat)) < minPageChars {
		return nil
	}

	if len(flat) <= c.maxChars {
		return []string{flat}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(flat, "\n") {
		// 单行超出预算时强制按字符切断，不丢弃内容
		if len(line) > c.maxChars {
			flush()
			chunks = append(chunks, hardSplit(line, c.maxChars)...)
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(line) > c.maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()

	return chunks
}

// flattenPage 标题在前，要点按层级缩进（每级两个空格），保留大纲结构
func flattenPage(page model.ParsedPage) string {
	var lines []string
	if page.Title != "" {
		lines = append(lines, page.Title)
	}
	for _, point := range page.RawPoints {
		text := strings.TrimRight(point.Text, " \t")
		if strings.TrimSpace(text) == "" {
			continue
		}
		indent := strings.Repeat("  ", max(point.Level, 0))
		lines = append(lines, indent+text)
	}
	return strings.Join(lines, "\n")
}

// hardSplit 按字节预算切分单行，回退到rune边界避免截断多字节字符
func hardSplit(line string, maxChars int) []string {
	var parts []string
	var current strings.Builder

	for _, r := range line {
		if current.Len()+len(string(r)) > maxChars {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
