package main

import (
	"context"
	"log/slog"
	"os"

	"ppt-expansion-backend/config"
	"ppt-expansion-backend/dao"
	"ppt-expansion-backend/router"
	knowledgebase "ppt-expansion-backend/service/knowledge-base"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	if err := dao.Init(); err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}

	if err := knowledgebase.Init(context.Background()); err != nil {
		slog.Error("Failed to init knowledge base service", "err", err)
		os.Exit(1)
	}

	r := router.Register()
	addr := config.Cfg.Server.Host + ":" + config.Cfg.Server.Port
	if err := r.Run(addr); err != nil {
		slog.Error("Server exited", "err", err)
		os.Exit(1)
	}
}
