// Package ingest 采集 worker：长轮询状态机，维护缓冲区并向 API 发布快照
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/WallFeed/internal/collector"
	"github.com/LJTian/WallFeed/internal/feed"
	"github.com/LJTian/WallFeed/internal/logger"
	"go.uber.org/zap"
)

// State worker 所处阶段
type State int

const (
	Bootstrapping State = iota
	Polling
	Reacquiring
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Polling:
		return "polling"
	case Reacquiring:
		return "reacquiring"
	default:
		return "unknown"
	}
}

// Session 长轮询会话，*collector.Session 实现了该接口
type Session interface {
	Acquire(ctx context.Context) error
	Poll(ctx context.Context, wait time.Duration) (collector.PollResult, error)
}

// Extractor 原始帖子到条目的转换，*processor.Extractor 实现了该接口
type Extractor interface {
	Extract(p collector.RawPost) (feed.Item, bool)
}

// Options worker 的可调参数
type Options struct {
	Wait       time.Duration
	ErrorPause time.Duration
	// Verbose 为 true 时每轮输出状态与耗时
	Verbose bool
}

// Worker 单 goroutine 运行，是缓冲区唯一的写入方
type Worker struct {
	session   Session
	fetcher   collector.Fetcher
	extractor Extractor
	mailbox   feed.Mailbox
	commands  feed.Commands
	opts      Options

	buffer *feed.Buffer
	state  State

	// 测试中替换为不真正等待的实现
	sleep func(ctx context.Context, d time.Duration)
}

func New(session Session, fetcher collector.Fetcher, extractor Extractor, mailbox feed.Mailbox, commands feed.Commands, opts Options) *Worker {
	return &Worker{
		session:   session,
		fetcher:   fetcher,
		extractor: extractor,
		mailbox:   mailbox,
		commands:  commands,
		opts:      opts,
		buffer:    feed.NewBuffer(),
		state:     Bootstrapping,
		sleep:     sleepCtx,
	}
}

// State 当前阶段，仅供同一 goroutine 或测试读取
func (w *Worker) State() State {
	return w.state
}

// Run 先完成启动阶段，然后持续轮询直到 ctx 取消。
// 只有启动失败会返回非 nil 错误
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Bootstrap(ctx); err != nil {
		return err
	}
	logger.Log.Info("ingest worker started", zap.Int("items", w.buffer.Len()))
	for ctx.Err() == nil {
		w.Step(ctx)
	}
	logger.Log.Info("ingest worker stopped")
	return nil
}

// Bootstrap 获取会话、批量拉取并发布首个快照，成功后进入 Polling
func (w *Worker) Bootstrap(ctx context.Context) error {
	start := time.Now()
	if err := w.session.Acquire(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := w.rebuild(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	w.state = Polling
	w.trace(Bootstrapping, start)
	return nil
}

// Step 执行一轮循环。出错时记录日志并暂停 ErrorPause，不会返回错误
func (w *Worker) Step(ctx context.Context) {
	start := time.Now()
	state := w.state

	var err error
	switch w.state {
	case Bootstrapping:
		err = w.Bootstrap(ctx)
	case Polling:
		err = w.poll(ctx)
	case Reacquiring:
		if err = w.session.Acquire(ctx); err == nil {
			w.state = Polling
			logger.Log.Info("vk long poll session reacquired")
		}
	}

	w.trace(state, start)
	if err != nil && ctx.Err() == nil {
		logger.Log.Error("ingest iteration failed", zap.Stringer("state", state), zap.Error(err))
		w.sleep(ctx, w.opts.ErrorPause)
	}
}

func (w *Worker) poll(ctx context.Context) error {
	cmd, ok, err := w.commands.TryReceive(ctx)
	if err != nil {
		logger.Log.Warn("command channel receive failed", zap.Error(err))
	}
	if ok && cmd == feed.ForceRefresh {
		logger.Log.Info("force refresh requested")
		if err := w.rebuild(ctx); err != nil {
			return fmt.Errorf("force refresh: %w", err)
		}
		return nil
	}
	if ok {
		logger.Log.Warn("unknown command ignored", zap.String("command", string(cmd)))
	}

	res, err := w.session.Poll(ctx, w.opts.Wait)
	if errors.Is(err, collector.ErrSessionExpired) {
		logger.Log.Info("vk long poll session invalid, reacquiring")
		w.state = Reacquiring
		return nil
	}
	if err != nil {
		return err
	}
	switch res.Kind {
	case collector.Expired:
		logger.Log.Info("vk long poll session expired")
		w.state = Reacquiring
	case collector.Update:
		added := 0
		for _, p := range res.Posts {
			if it, ok := w.extractor.Extract(p); ok {
				w.buffer.Prepend(it)
				added++
			}
		}
		if added > 0 {
			w.publish(ctx)
		}
	}
	return nil
}

// rebuild 批量拉取并整体替换缓冲区；拉取失败时缓冲区保持不变
func (w *Worker) rebuild(ctx context.Context) error {
	posts, err := w.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	items := make([]feed.Item, 0, len(posts))
	for _, p := range posts {
		if it, ok := w.extractor.Extract(p); ok {
			items = append(items, it)
		}
	}
	w.buffer.Rebuild(items)
	w.publish(ctx)
	logger.Log.Info("feed rebuilt", zap.String("source", w.fetcher.Name()), zap.Int("fetched", len(posts)), zap.Int("kept", len(items)))
	return nil
}

func (w *Worker) publish(ctx context.Context) {
	if err := w.mailbox.Publish(ctx, w.buffer.Snapshot()); err != nil {
		logger.Log.Warn("snapshot publish failed", zap.Error(err))
	}
}

func (w *Worker) trace(state State, start time.Time) {
	if !w.opts.Verbose {
		return
	}
	logger.Log.Info("ingest iteration",
		zap.Stringer("state", state),
		zap.Duration("took", time.Since(start)),
		zap.Int("buffered", w.buffer.Len()),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
