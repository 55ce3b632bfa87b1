package main

import (
	"log/slog"

	"github.com/wagomu-no-sunaba/etude-rag2/cmd/cmd"
	"github.com/wagomu-no-sunaba/etude-rag2/internal/logger"
)

func main() {
	logger.Init(slog.LevelInfo)
	cmd.Execute()
}
