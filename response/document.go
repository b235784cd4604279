package response

import (
	"encoding/json"
	"time"
)

type IngestDocumentResponse struct {
	DocID         string `json:"doc_id"`
	FileHash      string `json:"file_hash"`
	Cached        bool   `json:"cached"`
	StoredChunks  int    `json:"stored_chunks"`
	SkippedChunks int    `json:"skipped_chunks"`
}

type DocumentResponse struct {
	DocID          string          `json:"doc_id"`
	FileName       string          `json:"file_name"`
	FileType       string          `json:"file_type"`
	FileHash       string          `json:"file_hash"`
	Pages          json.RawMessage `json:"pages,omitempty"`
	GlobalAnalysis json.RawMessage `json:"global_analysis,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type SearchResultResponse struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
	Method   string        `json:"method"`
}

type ChunkMetadata struct {
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	PageNum     int    `json:"page_num"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	SlideTitle  string `json:"slide_title"`
	SlideType   string `json:"slide_type"`
	StoredAt    string `json:"stored_at"`
}

type SearchResponse struct {
	Results []SearchResultResponse `json:"results"`
}

type PurgeResponse struct {
	Deleted bool `json:"deleted"`
}

type PageAnalysisResponse struct {
	PageID    int             `json:"page_id"`
	Analysis  json.RawMessage `json:"analysis"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ListPageAnalysesResponse struct {
	Analyses map[int]PageAnalysisResponse `json:"analyses"`
}
