package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Snack-JPG/nft-pulse/internal/service/aggregate"
	"github.com/Snack-JPG/nft-pulse/internal/service/monitor"
	"github.com/gin-gonic/gin"
)

// TopMoversPublisher 发布排行榜, 返回是否实际发送
type TopMoversPublisher interface {
	Publish(ctx context.Context) (bool, error)
}

// CronHandler 外部调度器触发的任务入口
type CronHandler struct {
	secret     string
	aggregator aggregate.Service
	detector   monitor.SpikeService
	topMovers  TopMoversPublisher
}

func NewCronHandler(secret string, aggregator aggregate.Service, detector monitor.SpikeService,
	topMovers TopMoversPublisher) *CronHandler {
	return &CronHandler{
		secret:     secret,
		aggregator: aggregator,
		detector:   detector,
		topMovers:  topMovers,
	}
}

func (h *CronHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/api/cron", TrustedTrigger(h.secret))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		g.Handle(method, "/aggregate", h.Aggregate)
		g.Handle(method, "/detect", h.Detect)
		g.Handle(method, "/top-movers", h.TopMovers)
	}
}

func (h *CronHandler) Aggregate(c *gin.Context) {
	summary, err := h.aggregator.Run(c.Request.Context())
	if err != nil {
		slog.Error("aggregate run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation failed", "summary": summary})
		return
	}
	status := http.StatusOK
	if summary.AllFailed() {
		status = http.StatusInternalServerError
	}
	c.JSON(status, summary)
}

func (h *CronHandler) Detect(c *gin.Context) {
	summary, err := h.detector.Run(c.Request.Context())
	if err != nil {
		slog.Error("detect run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "detection failed", "summary": summary})
		return
	}
	status := http.StatusOK
	if summary.AllFailed() {
		status = http.StatusInternalServerError
	}
	c.JSON(status, summary)
}

func (h *CronHandler) TopMovers(c *gin.Context) {
	sent, err := h.topMovers.Publish(c.Request.Context())
	if err != nil {
		slog.Error("top movers publish failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "top movers failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sent": sent})
}
