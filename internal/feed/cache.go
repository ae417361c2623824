package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/LJTian/WallFeed/internal/logger"
	"go.uber.org/zap"
)

// Cache API 侧持有最新快照。服务启动时创建一次，以指针传给各 handler
type Cache struct {
	mailbox  Mailbox
	commands Commands

	current atomic.Pointer[Snapshot]
	// 同一时刻只允许一个 Refresh 取信箱，避免旧快照覆盖新快照；抢不到的直接返回
	refreshing sync.Mutex
}

func NewCache(mailbox Mailbox, commands Commands) *Cache {
	c := &Cache{mailbox: mailbox, commands: commands}
	empty := EmptySnapshot()
	c.current.Store(&empty)
	return c
}

// Refresh 非阻塞地取出信箱中的快照，每个请求都可以调用
func (c *Cache) Refresh(ctx context.Context) {
	if !c.refreshing.TryLock() {
		return
	}
	defer c.refreshing.Unlock()

	s, ok, err := c.mailbox.TryTake(ctx)
	if err != nil {
		logger.Log.Warn("snapshot cache: take failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	c.current.Store(&s)
}

// Current 返回最近一次持有的快照；首次取到之前为空快照。
// 调用方不得修改返回的 Items
func (c *Cache) Current() Snapshot {
	return *c.current.Load()
}

// RequestForceRefresh 向 worker 转发 ForceRefresh，本身不做权限校验
func (c *Cache) RequestForceRefresh(ctx context.Context) error {
	return c.commands.Send(ctx, ForceRefresh)
}
