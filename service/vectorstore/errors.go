package vectorstore

import "errors"

var (
	// ErrEmbeddingBackend embedding后端不可用或返回服务端错误
	// 由上层检索器决定是否降级为纯文本检索
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrChunkTooLarge 单个chunk超出embedding后端的大小限制
	// 跳过该chunk，不中断同批其他chunk的写入
	ErrChunkTooLarge = errors.New("chunk too large for embedding backend")
)
