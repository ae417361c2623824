package feed

import (
	"context"
	"sync/atomic"
)

// Mailbox worker -> API 的单槽信箱，Publish 覆盖尚未取走的旧值
type Mailbox interface {
	Publish(ctx context.Context, s Snapshot) error
	TryTake(ctx context.Context) (Snapshot, bool, error)
}

// Commands API -> worker 的先进先出命令通道
type Commands interface {
	Send(ctx context.Context, c Command) error
	TryReceive(ctx context.Context) (Command, bool, error)
}

// MemoryMailbox 进程内无锁实现
type MemoryMailbox struct {
	slot atomic.Pointer[Snapshot]
}

func NewMemoryMailbox() *MemoryMailbox {
	return &MemoryMailbox{}
}

func (m *MemoryMailbox) Publish(_ context.Context, s Snapshot) error {
	m.slot.Store(&s)
	return nil
}

func (m *MemoryMailbox) TryTake(_ context.Context) (Snapshot, bool, error) {
	p := m.slot.Swap(nil)
	if p == nil {
		return Snapshot{}, false, nil
	}
	return *p, true, nil
}

const memoryCommandsCap = 16

// MemoryCommands 进程内实现，基于带缓冲的 channel。
// 缓冲满时直接丢弃：队列里都是 ForceRefresh，已排队的那条会覆盖本次请求
type MemoryCommands struct {
	ch chan Command
}

func NewMemoryCommands() *MemoryCommands {
	return &MemoryCommands{ch: make(chan Command, memoryCommandsCap)}
}

func (m *MemoryCommands) Send(_ context.Context, c Command) error {
	select {
	case m.ch <- c:
	default:
	}
	return nil
}

func (m *MemoryCommands) TryReceive(_ context.Context) (Command, bool, error) {
	select {
	case c := <-m.ch:
		return c, true, nil
	default:
		return "", false, nil
	}
}
