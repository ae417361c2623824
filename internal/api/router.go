package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/LJTian/WallFeed/internal/feed"
	"github.com/LJTian/WallFeed/internal/logger"
	"github.com/LJTian/WallFeed/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OperatorStore 操作员查询与刷新审计，*storage.Store 实现了该接口
type OperatorStore interface {
	FindOperatorByToken(ctx context.Context, token string) (*storage.Operator, error)
	RecordRefresh(ctx context.Context, operator, remoteAddr string, extra map[string]any) (*storage.RefreshRequest, error)
	ListRefreshes(ctx context.Context, limit int) ([]storage.RefreshRequest, error)
}

type Server struct {
	cache     *feed.Cache
	operators OperatorStore
}

func NewServer(cache *feed.Cache, operators OperatorStore) *Server {
	return &Server{cache: cache, operators: operators}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/news/from_vk", s.listFromVK)

		admin := v1.Group("/news/from_vk", s.requireSuperuser())
		admin.POST("/refresh", s.forceRefresh)
		admin.GET("/refreshes", s.listRefreshes)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listFromVK 先尝试取走 worker 发布的新快照，再返回当前持有的快照
func (s *Server) listFromVK(c *gin.Context) {
	s.cache.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, s.cache.Current())
}

func (s *Server) forceRefresh(c *gin.Context) {
	op := c.MustGet(operatorKey).(*storage.Operator)

	if err := s.cache.RequestForceRefresh(c.Request.Context()); err != nil {
		logger.Log.Error("force refresh enqueue failed", zap.String("operator", op.Name), zap.Error(err))
		abortJSON(c, http.StatusServiceUnavailable, "unavailable", "worker command channel unavailable")
		return
	}

	// 审计失败不影响已入队的刷新
	extra := map[string]any{"userAgent": c.Request.UserAgent()}
	if _, err := s.operators.RecordRefresh(c.Request.Context(), op.Name, c.ClientIP(), extra); err != nil {
		logger.Log.Warn("record refresh audit failed", zap.String("operator", op.Name), zap.Error(err))
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) listRefreshes(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	list, err := s.operators.ListRefreshes(c.Request.Context(), limit)
	if err != nil {
		logger.Log.Error("list refresh audit failed", zap.Error(err))
		abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    list,
	})
}
