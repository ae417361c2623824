package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/LJTian/WallFeed/internal/logger"
	"github.com/LJTian/WallFeed/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const operatorKey = "operator"

// SiteBasicAuth 整站的 Basic Auth 访问密码，/health 不做认证便于健康检查。
// 仅当同时配置了用户名和密码时才应挂载
func SiteBasicAuth(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// bearerToken 读取 Authorization: Bearer <token>。
// 站点开启 Basic Auth 时 Authorization 已被占用，因此也接受 X-Operator-Token
func bearerToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.GetHeader("X-Operator-Token")); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// requireSuperuser 没有 token 或 token 未知返回 401，非超级用户返回 403
func (s *Server) requireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "operator token required")
			return
		}
		op, err := s.operators.FindOperatorByToken(c.Request.Context(), token)
		if errors.Is(err, storage.ErrOperatorNotFound) {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "unknown operator token")
			return
		}
		if err != nil {
			logger.Log.Error("operator lookup failed", zap.Error(err))
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if !op.IsSuperuser {
			abortJSON(c, http.StatusForbidden, "forbidden", "superuser required")
			return
		}
		c.Set(operatorKey, op)
		c.Next()
	}
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
