package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/LJTian/WallFeed/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrOperatorNotFound token 没有对应的操作员
var ErrOperatorNotFound = errors.New("operator not found")

// Operator 可调用受保护接口的操作员，只保存 token 的哈希
type Operator struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:64;uniqueIndex" json:"name"`
	TokenHash   string `gorm:"size:64;uniqueIndex" json:"-"`
	IsSuperuser bool   `gorm:"index" json:"isSuperuser"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RefreshRequest 强制刷新的审计记录
type RefreshRequest struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	Operator    string            `gorm:"size:64;index" json:"operator"`
	RemoteAddr  string            `gorm:"size:64" json:"remoteAddr"`
	RequestedAt time.Time         `gorm:"index" json:"requestedAt"`
	Extra       datatypes.JSONMap `gorm:"type:jsonb" json:"extra"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStore 连接 Postgres 并迁移表结构；redisAddr 为空时不创建 Redis 客户端
func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Operator{}, &RefreshRequest{}); err != nil {
		return nil, err
	}

	s := &Store{DB: db}
	if redisAddr != "" {
		s.Redis = NewRedis(redisAddr)
	}
	return s, nil
}

// NewRedis 创建 Redis 客户端；ping 失败只告警，后续命令失败由调用方处理
func NewRedis(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
	}
	return rdb
}

// HashToken token 的 sha256 十六进制
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// EnsureOperator 确保指定名字的操作员存在，并把 token 与超级用户标志更新为给定值
func (s *Store) EnsureOperator(name, token string, superuser bool) (*Operator, error) {
	name = strings.TrimSpace(name)
	if name == "" || token == "" {
		return nil, errors.New("operator name and token are required")
	}
	hash := HashToken(token)

	op := &Operator{}
	err := s.DB.Where("name = ?", name).First(op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		op = &Operator{Name: name, TokenHash: hash, IsSuperuser: superuser}
		if err := s.DB.Create(op).Error; err != nil {
			return nil, err
		}
		return op, nil
	}
	if err != nil {
		return nil, err
	}

	if changes := operatorChanges(op, hash, superuser); len(changes) > 0 {
		if err := s.DB.Model(op).Updates(changes).Error; err != nil {
			return nil, err
		}
		op.TokenHash = hash
		op.IsSuperuser = superuser
	}
	return op, nil
}

// operatorChanges 已有操作员需要更新的列；token 轮换或超级用户标志变化时非空
func operatorChanges(op *Operator, hash string, superuser bool) map[string]any {
	changes := map[string]any{}
	if op.TokenHash != hash {
		changes["token_hash"] = hash
	}
	if op.IsSuperuser != superuser {
		changes["is_superuser"] = superuser
	}
	return changes
}

// FindOperatorByToken 按 token 查找操作员，找不到时返回 ErrOperatorNotFound
func (s *Store) FindOperatorByToken(ctx context.Context, token string) (*Operator, error) {
	if token == "" {
		return nil, ErrOperatorNotFound
	}
	op := &Operator{}
	err := s.DB.WithContext(ctx).Where("token_hash = ?", HashToken(token)).First(op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOperatorNotFound
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

// RecordRefresh 写入一条强制刷新审计记录
func (s *Store) RecordRefresh(ctx context.Context, operator, remoteAddr string, extra map[string]any) (*RefreshRequest, error) {
	r := &RefreshRequest{
		ID:          uuid.NewString(),
		Operator:    operator,
		RemoteAddr:  remoteAddr,
		RequestedAt: time.Now().UTC(),
		Extra:       datatypes.JSONMap(extra),
	}
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListRefreshes 最近的审计记录，按时间倒序
func (s *Store) ListRefreshes(ctx context.Context, limit int) ([]RefreshRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var list []RefreshRequest
	if err := s.DB.WithContext(ctx).Order("requested_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
