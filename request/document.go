package request

// IngestDocumentRequest multipart表单的非文件部分
// pages 为外部解析服务产出的页面JSON
type IngestDocumentRequest struct {
	FileType  string `form:"file_type" binding:"required,oneof=pdf pptx"`
	Pages     string `form:"pages" binding:"required"`
	Overwrite bool   `form:"overwrite"`
}

type SearchRequest struct {
	Query    string  `form:"query" binding:"required"`
	TopK     int     `form:"top_k"`
	FileName string  `form:"file_name"`
	FileType string  `form:"file_type"`
	MinScore float64 `form:"min_score"`
}
