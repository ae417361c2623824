package ingest

import (
	"errors"

	"github.com/LJTian/WallFeed/internal/collector"
	"github.com/LJTian/WallFeed/internal/config"
	"github.com/LJTian/WallFeed/internal/feed"
	"github.com/LJTian/WallFeed/internal/processor"
)

// FromConfig 按配置组装 VK 会话、wall.get 拉取器与抽取器
func FromConfig(cfg *config.Config, mailbox feed.Mailbox, commands feed.Commands) (*Worker, error) {
	if cfg.VKGroupID == "" || cfg.VKGroupKey == "" || cfg.VKServerKey == "" {
		return nil, errors.New("VK_GROUP_ID, VK_GROUP_KEY and VK_SERVER_KEY are required")
	}
	client := collector.NewClient(cfg.VKAPIURL, cfg.VKAPIVersion)
	session := collector.NewSession(client, cfg.VKGroupKey, cfg.VKGroupID)
	fetcher := collector.NewWallFetcher(client, cfg.VKServerKey, cfg.VKGroupID, cfg.VKFetchCount)
	extractor := processor.NewExtractor(cfg.VKGroupID, cfg.ExcerptSentences)

	return New(session, fetcher, extractor, mailbox, commands, Options{
		Wait:       cfg.PollWait(),
		ErrorPause: cfg.ErrorPause,
		Verbose:    cfg.Debug,
	}), nil
}
