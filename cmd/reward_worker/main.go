package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/logger"

	"luckyplay/internal/config"
	"luckyplay/internal/db"
	"luckyplay/internal/handlers"
)

// reward_worker runs the reward retry loop on its own, for deployments that
// keep REWARD_WORKER_ENABLED off in the API process.
func main() {
	defer logger.Init("luckyplay-reward-worker", true, false, io.Discard).Close()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mysql, err := db.NewMySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		logger.Fatalf("mysql init error: %v", err)
	}
	defer mysql.Close()

	srv := handlers.NewServer(cfg, mysql, nil)
	worker := handlers.NewRewardWorker(srv)

	logger.Info("reward worker started")
	worker.Run(ctx)
	logger.Info("reward worker stopped")
}
