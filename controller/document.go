package controller

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"ppt-expansion-backend/dao"
	"ppt-expansion-backend/model"
	"ppt-expansion-backend/request"
	"ppt-expansion-backend/response"
	knowledgebase "ppt-expansion-backend/service/knowledge-base"

	"github.com/gin-gonic/gin"
)

// IngestDocument 摄取一份解析后的文档：文件字节用于去重哈希，pages为解析结果
func IngestDocument(c *gin.Context) {
	var req request.IngestDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		slog.Error(ErrIngestDocument.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrIngestDocument.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error(ErrIngestDocument.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrIngestDocument.Error(),
		})
		return
	}

	var pages []model.ParsedPage
	if err := json.Unmarshal([]byte(req.Pages), &pages); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	result, err := knowledgebase.Ingest(c.Request.Context(), data, fileHeader.Filename, model.FileType(req.FileType), pages, req.Overwrite)
	if err != nil {
		slog.Error(ErrIngestDocument.Error(),
			"file_name", fileHeader.Filename,
			"err", err,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrIngestDocument.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.IngestDocumentResponse{
			DocID:         result.DocID,
			FileHash:      result.FileHash,
			Cached:        result.Cached,
			StoredChunks:  result.StoredChunks,
			SkippedChunks: result.SkippedChunks,
		},
	})
}

func GetDocuments(c *gin.Context) {
	docs, err := dao.ListDocuments()
	if err != nil {
		slog.Error(ErrGetDocuments.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetDocuments.Error(),
		})
		return
	}

	var resp response.ListDocumentsResponse
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, response.DocumentResponse{
			DocID:     doc.DocID,
			FileName:  doc.FileName,
			FileType:  string(doc.FileType),
			FileHash:  doc.FileHash,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func GetDocument(c *gin.Context) {
	docID := c.Param("id")
	doc, err := dao.GetDocumentByID(docID)
	if err != nil {
		slog.Error(ErrGetDocument.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetDocument.Error(),
		})
		return
	}
	if doc == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrDocumentNotFound.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.DocumentResponse{
			DocID:          doc.DocID,
			FileName:       doc.FileName,
			FileType:       string(doc.FileType),
			FileHash:       doc.FileHash,
			Pages:          doc.Pages,
			GlobalAnalysis: doc.GlobalAnalysis,
			CreatedAt:      doc.CreatedAt,
			UpdatedAt:      doc.UpdatedAt,
		},
	})
}

// PurgeDocument 删除文件的chunk和文档缓存记录
func PurgeDocument(c *gin.Context) {
	fileName := c.Query("file-name")
	if fileName == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	deleted, err := knowledgebase.Purge(c.Request.Context(), fileName)
	if err != nil {
		slog.Error(ErrPurgeDocument.Error(), "file_name", fileName, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrPurgeDocument.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.PurgeResponse{
			Deleted: deleted,
		},
	})
}

func GetStats(c *gin.Context) {
	stats, err := knowledgebase.Stats(c.Request.Context())
	if err != nil {
		slog.Error(ErrGetStats.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetStats.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: stats,
	})
}

// UpdateGlobalAnalysis 写入外部分析服务产出的全局分析结果，内容不做解释
func UpdateGlobalAnalysis(c *gin.Context) {
	docID := c.Param("id")
	payload, err := c.GetRawData()
	if err != nil || !json.Valid(payload) {
		slog.Error(ErrParseRequest.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	if err := dao.UpdateGlobalAnalysis(docID, payload); err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
				Msg: ErrDocumentNotFound.Error(),
			})
			return
		}
		slog.Error(ErrUpdateGlobalAnalysis.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateGlobalAnalysis.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func GetPageAnalysis(c *gin.Context) {
	docID := c.Param("id")
	pageID, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	analysis, err := dao.GetPageAnalysis(docID, pageID)
	if err != nil {
		slog.Error(ErrGetPageAnalysis.Error(), "doc_id", docID, "page_id", pageID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetPageAnalysis.Error(),
		})
		return
	}
	if analysis == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrGetPageAnalysis.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.PageAnalysisResponse{
			PageID:    analysis.PageID,
			Analysis:  analysis.Analysis,
			CreatedAt: analysis.CreatedAt,
			UpdatedAt: analysis.UpdatedAt,
		},
	})
}

func UpsertPageAnalysis(c *gin.Context) {
	docID := c.Param("id")
	pageID, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	payload, err := c.GetRawData()
	if err != nil || !json.Valid(payload) {
		slog.Error(ErrParseRequest.Error(), "doc_id", docID, "page_id", pageID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	if err := dao.UpsertPageAnalysis(docID, pageID, payload); err != nil {
		slog.Error(ErrUpsertPageAnalysis.Error(), "doc_id", docID, "page_id", pageID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpsertPageAnalysis.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func ListPageAnalyses(c *gin.Context) {
	docID := c.Param("id")
	analyses, err := dao.ListPageAnalyses(docID)
	if err != nil {
		slog.Error(ErrListPageAnalyses.Error(), "doc_id", docID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrListPageAnalyses.Error(),
		})
		return
	}

	resp := response.ListPageAnalysesResponse{
		Analyses: make(map[int]response.PageAnalysisResponse, len(analyses)),
	}
	for pageID, a := range analyses {
		resp.Analyses[pageID] = response.PageAnalysisResponse{
			PageID:    a.PageID,
			Analysis:  a.Analysis,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		}
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}
