package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/WallFeed/internal/config"
	"github.com/LJTian/WallFeed/internal/feed"
	"github.com/LJTian/WallFeed/internal/ingest"
	"github.com/LJTian/WallFeed/internal/logger"
	"github.com/LJTian/WallFeed/internal/storage"
	"go.uber.org/zap"
)

// 独立的采集进程，通过 Redis 与 cmd/api 交换快照和指令（FEED_TRANSPORT=redis）
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}
	if err := logger.Init(cfg.LogLevel, cfg.Debug); err != nil {
		panic("init logger: " + err.Error())
	}
	defer logger.Sync()
	log := logger.Log

	if cfg.FeedTransport != config.TransportRedis {
		log.Fatal("cmd/worker needs FEED_TRANSPORT=redis; with memory transport cmd/api runs the worker itself")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := storage.NewRedis(cfg.RedisAddr)
	defer rdb.Close()

	w, err := ingest.FromConfig(cfg,
		feed.NewRedisMailbox(rdb, cfg.FeedRedisPrefix),
		feed.NewRedisCommands(rdb, cfg.FeedRedisPrefix),
	)
	if err != nil {
		log.Fatal("init ingest worker failed", zap.Error(err))
	}

	log.Info("starting ingest worker", zap.String("redis", cfg.RedisAddr), zap.String("prefix", cfg.FeedRedisPrefix))
	if err := w.Run(ctx); err != nil {
		log.Fatal("ingest worker failed", zap.Error(err))
	}
}
