package dao

import "errors"

var (
	// ErrPersistence 底层存储I/O失败，由调用侧决定是否重试
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound 引用了不存在的doc_id或page_id
	ErrNotFound = errors.New("record not found")
)
