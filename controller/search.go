package controller

import (
	"log/slog"
	"net/http"

	"ppt-expansion-backend/request"
	"ppt-expansion-backend/response"
	knowledgebase "ppt-expansion-backend/service/knowledge-base"
	"ppt-expansion-backend/service/vectorstore"

	"github.com/gin-gonic/gin"
)

// SearchChunks 混合检索，结果按页去重并标记检索方式
func SearchChunks(c *gin.Context) {
	var req request.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	results, err := knowledgebase.Search(c.Request.Context(), req.Query, vectorstore.SearchOptions{
		TopK:     req.TopK,
		FileName: req.FileName,
		FileType: req.FileType,
		MinScore: req.MinScore,
	})
	if err != nil {
		slog.Error(ErrSearchChunks.Error(), "query", req.Query, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSearchChunks.Error(),
		})
		return
	}

	resp := response.SearchResponse{
		Results: make([]response.SearchResultResponse, 0, len(results)),
	}
	for _, r := range results {
		resp.Results = append(resp.Results, response.SearchResultResponse{
			Content: r.Chunk.Text,
			Metadata: response.ChunkMetadata{
				FileName:    r.Chunk.FileName,
				FileType:    r.Chunk.FileType,
				PageNum:     r.Chunk.PageNum,
				ChunkIndex:  r.Chunk.ChunkIndex,
				TotalChunks: r.Chunk.TotalChunks,
				SlideTitle:  r.Chunk.SlideTitle,
				SlideType:   r.Chunk.SlideType,
				StoredAt:    r.Chunk.StoredAt,
			},
			Score:  r.Score,
			Method: r.Method,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}
