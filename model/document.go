package model

import (
	"encoding/json"
	"time"
)

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypePPTX FileType = "pptx"
)

// Document 存储解析后的文档和全局分析结果
// doc_id 供前端寻址，file_hash 是去重用的内容哈希
type Document struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	DocID     string    `gorm:"not null;uniqueIndex" json:"doc_id"`
	FileName  string    `gorm:"not null" json:"file_name"`
	FileType  FileType  `gorm:"not null" json:"file_type"`
	FileHash  string    `gorm:"not null;uniqueIndex" json:"file_hash"`

	// 解析后的页面列表，JSON序列化存储
	Pages json.RawMessage `gorm:"type:json" json:"pages"`

	// 全局分析结果，内容对存储层不透明
	GlobalAnalysis json.RawMessage `gorm:"type:json" json:"global_analysis"`
}

func (Document) TableName() string {
	return "documents"
}

// PageAnalysis 按 (doc_id, page_id) 存储单页分析结果
type PageAnalysis struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	DocID     string    `gorm:"not null;uniqueIndex:idx_doc_page;index" json:"doc_id"`
	PageID    int       `gorm:"not null;uniqueIndex:idx_doc_page" json:"page_id"`

	// 分析结果内容，对存储层不透明
	Analysis json.RawMessage `gorm:"type:json;not null" json:"analysis"`
}

func (PageAnalysis) TableName() string {
	return "page_analysis"
}

// TextPoint 页面内的一条文本要点，level 表示层级
type TextPoint struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// ParsedPage 外部解析服务产出的单页结构
type ParsedPage struct {
	PageNum   int         `json:"page_num"`
	Title     string      `json:"title"`
	RawPoints []TextPoint `json:"raw_points"`
	Type      string      `json:"type"`
}
