package scheduler

import (
	"context"
	"time"

	"github.com/LJTian/WallFeed/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher 接收定时触发的强制刷新，*feed.Cache 实现了该接口
type Refresher interface {
	RequestForceRefresh(ctx context.Context) error
}

// Scheduler 按 cron 表达式定期要求 worker 重建缓冲区
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
}

func New(spec string, refresher Refresher) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:      c,
		refresher: refresher,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 立即触发一次，方便手动调用和测试
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.refresher.RequestForceRefresh(ctx); err != nil {
		logger.Log.Warn("scheduled force refresh failed", zap.Error(err))
		return
	}
	logger.Log.Info("scheduled force refresh queued")
}
