package knowledgebase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashReader 流式计算内容的sha256，避免大文件占用整块内存
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %v", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
