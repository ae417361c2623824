package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/LJTian/WallFeed/internal/collector"
	"github.com/LJTian/WallFeed/internal/config"
	"github.com/LJTian/WallFeed/internal/feed"
	"github.com/LJTian/WallFeed/internal/logger"
	"github.com/LJTian/WallFeed/internal/processor"
	"go.uber.org/zap"
)

// 只执行一次 wall.get 并把抽取结果以 JSON 打印到标准输出：适合手动检查
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

	client := collector.NewClient(cfg.VKAPIURL, cfg.VKAPIVersion)
	fetcher := collector.NewWallFetcher(client, cfg.VKServerKey, cfg.VKGroupID, cfg.VKFetchCount)
	extractor := processor.NewExtractor(cfg.VKGroupID, cfg.ExcerptSentences)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	posts, err := fetcher.Fetch(ctx)
	if err != nil {
		log.Fatal("fetch failed", zap.String("source", fetcher.Name()), zap.Error(err))
	}
	snap := feed.NewSnapshot(extractor.ExtractAll(posts))
	log.Info("collect done", zap.Int("fetched", len(posts)), zap.Int("items", snap.Count))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		log.Fatal("write output failed", zap.Error(err))
	}
}
