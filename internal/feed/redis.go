package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMailbox 跨进程的单槽信箱：SET 覆盖写入，GETDEL 原子取出并清空
type RedisMailbox struct {
	rdb *redis.Client
	key string
}

func NewRedisMailbox(rdb *redis.Client, prefix string) *RedisMailbox {
	return &RedisMailbox{rdb: rdb, key: prefix + ":snapshot"}
}

func (m *RedisMailbox) Publish(ctx context.Context, s Snapshot) error {
	bs, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis mailbox: marshal snapshot: %w", err)
	}
	if err := m.rdb.Set(ctx, m.key, bs, 0).Err(); err != nil {
		return fmt.Errorf("redis mailbox: publish: %w", err)
	}
	return nil
}

func (m *RedisMailbox) TryTake(ctx context.Context) (Snapshot, bool, error) {
	bs, err := m.rdb.GetDel(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("redis mailbox: take: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(bs, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("redis mailbox: decode snapshot: %w", err)
	}
	if s.Items == nil {
		s.Items = []Item{}
	}
	s.Count = len(s.Items)
	return s, true, nil
}

// RedisCommands 跨进程命令队列：RPUSH 入队，LPOP 非阻塞出队
type RedisCommands struct {
	rdb *redis.Client
	key string
}

func NewRedisCommands(rdb *redis.Client, prefix string) *RedisCommands {
	return &RedisCommands{rdb: rdb, key: prefix + ":commands"}
}

func (c *RedisCommands) Send(ctx context.Context, cmd Command) error {
	if err := c.rdb.RPush(ctx, c.key, string(cmd)).Err(); err != nil {
		return fmt.Errorf("redis commands: send: %w", err)
	}
	return nil
}

func (c *RedisCommands) TryReceive(ctx context.Context) (Command, bool, error) {
	v, err := c.rdb.LPop(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis commands: receive: %w", err)
	}
	return Command(v), true, nil
}
