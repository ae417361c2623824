package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/LJTian/WallFeed/internal/logger"
	"go.uber.org/zap"
)

const opWallGet = "wall.get"

// WallFetcher 通过 wall.get 批量拉取社区墙最近的帖子（用于启动与强制刷新）
type WallFetcher struct {
	client    *Client
	serverKey string
	groupID   string
	count     int
}

func NewWallFetcher(client *Client, serverKey, groupID string, count int) *WallFetcher {
	if count <= 0 || count > 100 {
		count = 100
	}
	return &WallFetcher{client: client, serverKey: serverKey, groupID: groupID, count: count}
}

func (w *WallFetcher) Name() string {
	return "vk_wall"
}

// Fetch 按上游顺序返回最近的帖子
func (w *WallFetcher) Fetch(ctx context.Context) ([]RawPost, error) {
	params := url.Values{
		"access_token": {w.serverKey},
		"owner_id":     {"-" + w.groupID},
		"count":        {strconv.Itoa(w.count)},
	}
	var resp struct {
		Count int                `json:"count"`
		Items *[]json.RawMessage `json:"items"`
	}
	if err := w.client.call(ctx, opWallGet, params, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, &UpstreamError{Op: opWallGet, Status: http.StatusOK, Message: "response lacks items"}
	}

	// 逐条解码，单条结构异常只跳过该帖
	posts := make([]RawPost, 0, len(*resp.Items))
	for _, raw := range *resp.Items {
		var p RawPost
		if err := json.Unmarshal(raw, &p); err != nil {
			logger.Log.Warn("vk wall.get: skip undecodable post", zap.Error(err))
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}
