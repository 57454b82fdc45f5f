package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 探测存储是否可用。
type Pinger func(timeout time.Duration) error

// HealthHandler 提供 /health/db。
type HealthHandler struct {
	ping Pinger
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler(ping Pinger) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// DB 执行一次数据库往返，失败时返回 503。
func (h *HealthHandler) DB(c *gin.Context) {
	if err := h.ping(2 * time.Second); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
