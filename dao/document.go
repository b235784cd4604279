package dao

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ppt-expansion-backend/model"

	"gorm.io/gorm"
)

// 写操作持有粗粒度锁，保证单文档的读后写一致性
var writeMu sync.Mutex

func persistErr(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func GetDocumentByHash(fileHash string) (*model.Document, error) {
	var doc model.Document
	if err := DB.Where("file_hash = ?", fileHash).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistErr(err)
	}
	return &doc, nil
}

func GetDocumentByID(docID string) (*model.Document, error) {
	var doc model.Document
	if err := DB.Where("doc_id = ?", docID).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistErr(err)
	}
	return &doc, nil
}

func ListDocuments() ([]model.Document, error) {
	var docs []model.Document
	if err := DB.Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, persistErr(err)
	}
	return docs, nil
}

// UpsertDocument 以file_hash为去重键写入文档
// 已存在则更新可变字段，global_analysis 仅在提供时覆盖
func UpsertDocument(docID, fileName string, fileType model.FileType, fileHash string, pages, globalAnalysis json.RawMessage) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	var existing model.Document
	err := DB.Where("file_hash = ?", fileHash).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return persistErr(err)
		}

		doc := model.Document{
			DocID:          docID,
			FileName:       fileName,
			FileType:       fileType,
			FileHash:       fileHash,
			Pages:          pages,
			GlobalAnalysis: globalAnalysis,
		}
		if err := DB.Create(&doc).Error; err != nil {
			return persistErr(err)
		}
		return nil
	}

	updates := map[string]any{
		"file_name": fileName,
		"file_type": fileType,
		"pages":     pages,
	}
	if len(globalAnalysis) > 0 {
		updates["global_analysis"] = globalAnalysis
	}

	if err := DB.Model(&model.Document{}).
		Where("file_hash = ?", fileHash).
		Updates(updates).Error; err != nil {
		return persistErr(err)
	}
	return nil
}

func UpdateGlobalAnalysis(docID string, analysis json.RawMessage) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	result := DB.Model(&model.Document{}).
		Where("doc_id = ?", docID).
		Update("global_analysis", analysis)
	if result.Error != nil {
		return persistErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	return nil
}

func DeleteDocumentByFileName(fileName string) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	return DB.Transaction(func(tx *gorm.DB) error {
		var docs []model.Document
		if err := tx.Where("file_name = ?", fileName).
			Find(&docs).Error; err != nil {
			return persistErr(err)
		}

		for _, doc := range docs {
			if err := tx.Where("doc_id = ?", doc.DocID).
				Delete(&model.PageAnalysis{}).Error; err != nil {
				return persistErr(err)
			}
		}

		if err := tx.Where("file_name = ?", fileName).
			Delete(&model.Document{}).Error; err != nil {
			return persistErr(err)
		}
		return nil
	})
}

func GetPageAnalysis(docID string, pageID int) (*model.PageAnalysis, error) {
	var analysis model.PageAnalysis
	if err := DB.Where("doc_id = ? AND page_id = ?", docID, pageID).
		First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistErr(err)
	}
	return &analysis, nil
}

func ListPageAnalyses(docID string) (map[int]model.PageAnalysis, error) {
	var analyses []model.PageAnalysis
	if err := DB.Where("doc_id = ?", docID).
		Find(&analyses).Error; err != nil {
		return nil, persistErr(err)
	}

	result := make(map[int]model.PageAnalysis, len(analyses))
	for _, a := range analyses {
		result[a.PageID] = a
	}
	return result, nil
}

// UpsertPageAnalysis 每个(doc_id, page_id)至多一条记录，重复分析时覆盖
func UpsertPageAnalysis(docID string, pageID int, analysis json.RawMessage) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	var existing model.PageAnalysis
	err := DB.Where("doc_id = ? AND page_id = ?", docID, pageID).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return persistErr(err)
		}

		record := model.PageAnalysis{
			DocID:    docID,
			PageID:   pageID,
			Analysis: analysis,
		}
		if err := DB.Create(&record).Error; err != nil {
			return persistErr(err)
		}
		return nil
	}

	if err := DB.Model(&model.PageAnalysis{}).
		Where("doc_id = ? AND page_id = ?", docID, pageID).
		Update("analysis", analysis).Error; err != nil {
		return persistErr(err)
	}
	return nil
}
