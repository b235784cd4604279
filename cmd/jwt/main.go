package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"log/slog"
)

// 生成配置项 jwt.secret_key 使用的随机密钥
func generateJWTSecret(size int) (string, error) {
	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

func main() {
	size := flag.Int("size", 32, "secret key size in bytes")
	flag.Parse()

	secret, err := generateJWTSecret(*size)
	if err != nil {
		slog.Error("Error generating secret", "err", err)
		return
	}

	slog.Info("Generated JWT Secret:", "secret", secret)
}
