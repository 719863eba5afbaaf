package web

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const cronTokenHeader = "X-Cron-Auth-Token"

var unauthorized = gin.H{"error": "unauthorized"}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// TrustedTrigger 校验定时任务触发方, secret 为空时拒绝所有请求
func TrustedTrigger(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if ok && secretEqual(bearer, secret) {
			c.Next()
			return
		}
		if token := c.GetHeader(cronTokenHeader); token != "" && secretEqual(token, secret) {
			c.Next()
			return
		}
		slog.Warn("rejected untrusted trigger", "path", c.FullPath(), "ip", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
	}
}

// IngestAuth 未配置 secret 时不校验
func IngestAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token := c.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if !secretEqual(token, secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		c.Next()
	}
}

// RequestLogger 用 slog 记录请求
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"elapsed", time.Since(start),
		}
		if status >= http.StatusInternalServerError {
			slog.Error("http request", attrs...)
			return
		}
		slog.Debug("http request", attrs...)
	}
}
