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

func main() {
	defer logger.Init("luckyplay", true, false, io.Discard).Close()

	cfg := config.Load()
	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me" {
		logger.Fatal("JWT_SECRET must be set to a non-default value")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mysql, err := db.NewMySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		logger.Fatalf("mysql error: %v", err)
	}
	defer mysql.Close()
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, mysql); err != nil {
			logger.Fatalf("migrate error: %v", err)
		}
	}
	redis, err := db.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis error: %v", err)
	}
	defer redis.Close()

	srv := handlers.NewServer(cfg, mysql, redis)
	srv.Start(ctx)
	if cfg.RewardWorkerEnabled {
		worker := handlers.NewRewardWorker(srv)
		go worker.Run(ctx)
		logger.Info("reward worker enabled in server")
	}

	logger.Infof("server listening on %s", cfg.HTTPAddr)
	if err := srv.Serve(ctx, cfg.HTTPAddr); err != nil {
		logger.Errorf("server: %v", err)
		return
	}
	logger.Info("server stopped")
}
