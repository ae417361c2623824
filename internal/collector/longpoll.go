package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/WallFeed/internal/logger"
	"go.uber.org/zap"
)

const (
	opAcquire = "groups.getLongPollServer"
	opCheck   = "a_check"

	// 长轮询 HTTP 超时在 wait 之上留出的余量，避免客户端先于服务端断开
	pollTimeoutMargin = 10 * time.Second

	updateWallPostNew = "wall_post_new"
)

// ErrSessionExpired 会话已失效（或尚未获取），必须先 Acquire 才能继续 Poll
var ErrSessionExpired = errors.New("vk long poll: session expired, acquire required")

// PollKind 一次 Poll 的结果类型
type PollKind int

const (
	NoChange PollKind = iota
	Update
	Expired
)

func (k PollKind) String() string {
	switch k {
	case NoChange:
		return "no_change"
	case Update:
		return "update"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// PollResult Kind 为 Update 时 Posts 按上游顺序给出新帖
type PollResult struct {
	Kind  PollKind
	Posts []RawPost
}

// Cursor 长轮询连接状态：服务器地址、key、位置 ts
type Cursor struct {
	Server string
	Key    string
	TS     Position
}

// Session 持有可恢复的长轮询状态。非并发安全，只由采集 worker 使用
type Session struct {
	client   *Client
	groupKey string
	groupID  string
	http     *http.Client

	cursor Cursor
	valid  bool
}

func NewSession(client *Client, groupKey, groupID string) *Session {
	return &Session{
		client:   client,
		groupKey: groupKey,
		groupID:  groupID,
		// 超时由每次请求的 context 控制（wait + 余量）
		http: &http.Client{},
	}
}

// Cursor 返回当前游标的副本
func (s *Session) Cursor() Cursor {
	return s.cursor
}

// Valid 当前游标是否可用于 Poll
func (s *Session) Valid() bool {
	return s.valid
}

// Acquire 获取长轮询服务器地址、key 与初始 ts，整体替换旧游标
func (s *Session) Acquire(ctx context.Context) error {
	params := url.Values{
		"access_token": {s.groupKey},
		"group_id":     {s.groupID},
	}
	var resp struct {
		Server string   `json:"server"`
		Key    string   `json:"key"`
		TS     Position `json:"ts"`
	}
	if err := s.client.call(ctx, opAcquire, params, &resp); err != nil {
		return err
	}
	if resp.Server == "" || resp.Key == "" || resp.TS == "" {
		return &UpstreamError{Op: opAcquire, Status: http.StatusOK, Message: "response lacks server, key or ts"}
	}

	server := resp.Server
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}
	s.cursor = Cursor{Server: server, Key: resp.Key, TS: resp.TS}
	s.valid = true
	return nil
}

type checkResponse struct {
	TS      Position `json:"ts"`
	Failed  *int     `json:"failed"`
	Updates []struct {
		Type   string          `json:"type"`
		Object json.RawMessage `json:"object"`
	} `json:"updates"`
}

// Poll 等待最多 wait 时长的新事件。收到新的 ts 时先原地更新游标再返回
func (s *Session) Poll(ctx context.Context, wait time.Duration) (PollResult, error) {
	if !s.valid {
		return PollResult{}, ErrSessionExpired
	}

	waitSec := int(wait / time.Second)
	if waitSec < 0 {
		waitSec = 0
	}
	params := url.Values{
		"act":  {opCheck},
		"key":  {s.cursor.Key},
		"ts":   {string(s.cursor.TS)},
		"wait": {strconv.Itoa(waitSec)},
	}
	sep := "?"
	if strings.Contains(s.cursor.Server, "?") {
		sep = "&"
	}
	u := s.cursor.Server + sep + params.Encode()

	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(waitSec)*time.Second+pollTimeoutMargin)
	defer cancel()

	body, err := getBody(pollCtx, s.http, opCheck, u)
	if err != nil {
		return PollResult{}, err
	}

	var resp checkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return PollResult{}, &UpstreamError{Op: opCheck, Status: http.StatusOK, Message: "decode response", Err: err}
	}
	if resp.TS != "" {
		s.cursor.TS = resp.TS
	}

	if resp.Failed != nil {
		switch *resp.Failed {
		case 1:
			// 历史过期，上游已给出新的 ts，继续用同一个 key
			return PollResult{Kind: NoChange}, nil
		case 2, 3:
			s.valid = false
			return PollResult{Kind: Expired}, nil
		default:
			return PollResult{}, &UpstreamError{Op: opCheck, Status: http.StatusOK, Code: *resp.Failed, Message: "unknown failed code"}
		}
	}

	if resp.TS == "" || resp.Updates == nil {
		return PollResult{}, &UpstreamError{Op: opCheck, Status: http.StatusOK, Message: "response lacks ts or updates"}
	}

	var posts []RawPost
	for _, upd := range resp.Updates {
		if upd.Type != updateWallPostNew {
			continue
		}
		var p RawPost
		if err := json.Unmarshal(upd.Object, &p); err != nil {
			logger.Log.Warn("vk long poll: skip undecodable wall post", zap.Error(err))
			continue
		}
		posts = append(posts, p)
	}
	if len(posts) == 0 {
		return PollResult{Kind: NoChange}, nil
	}
	return PollResult{Kind: Update, Posts: posts}, nil
}
