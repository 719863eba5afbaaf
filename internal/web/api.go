package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/internal/service/ingest"
	"github.com/Snack-JPG/nft-pulse/internal/service/leaderboard"
	"github.com/Snack-JPG/nft-pulse/pkg/decimalx"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 100
	defaultAlertHours = 24
	maxAlertHours     = 168

	trendingSize    = 50
	historyWindow   = 12 * time.Hour
	detailSnapshots = 168
	detailSpikes    = 20
	maxIngestBatch  = 1000
)

var internalError = gin.H{"error": "internal server error"}

type TopSource interface {
	Top(ctx context.Context, limit int) ([]leaderboard.Mover, error)
}

type SaleIngestor interface {
	Ingest(ctx context.Context, inputs []ingest.SaleInput) ingest.Summary
}

// APIHandler 只读查询接口和成交写入接口
type APIHandler struct {
	spikeRepo      repo.SpikeRepo
	snapshotRepo   repo.SnapshotRepo
	collectionRepo repo.CollectionRepo
	board          TopSource
	ingestor       SaleIngestor
	ingestSecret   string
	now            func() time.Time
}

func NewAPIHandler(spikeRepo repo.SpikeRepo, snapshotRepo repo.SnapshotRepo, collectionRepo repo.CollectionRepo,
	board TopSource, ingestor SaleIngestor, ingestSecret string) *APIHandler {
	return &APIHandler{
		spikeRepo:      spikeRepo,
		snapshotRepo:   snapshotRepo,
		collectionRepo: collectionRepo,
		board:          board,
		ingestor:       ingestor,
		ingestSecret:   ingestSecret,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (h *APIHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/alerts", h.Alerts)
		api.GET("/collections", h.Collections)
		api.GET("/collections/:id", h.Collection)
		api.POST("/sales", IngestAuth(h.ingestSecret), h.Sales)
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.now()})
}

// boundedQuery 非法或非正数取默认值, 超过上限取上限
func boundedQuery(c *gin.Context, key string, def, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return min(v, max)
}

func (h *APIHandler) Alerts(c *gin.Context) {
	ctx := c.Request.Context()
	limit := boundedQuery(c, "limit", defaultAlertLimit, maxAlertLimit)
	hours := boundedQuery(c, "hours", defaultAlertHours, maxAlertHours)

	spikes, err := h.spikeRepo.FindSince(ctx, h.now().Add(-time.Duration(hours)*time.Hour), limit)
	if err != nil {
		slog.Error("failed to list alerts", "hours", hours, "limit", limit, "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}
	collections := h.resolveCollections(ctx, lo.Uniq(lo.Map(spikes, func(item entity.Spike, index int) string {
		return item.CollectionId
	})))
	c.JSON(http.StatusOK, lo.Map(spikes, func(item entity.Spike, index int) alertView {
		return toAlertView(item, collections[item.CollectionId])
	}))
}

// resolveCollections 查不到的 collection 用 id 兜底
func (h *APIHandler) resolveCollections(ctx context.Context, ids []string) map[string]entity.Collection {
	res := make(map[string]entity.Collection, len(ids))
	for _, id := range ids {
		collection, err := h.collectionRepo.FindById(ctx, id)
		if err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				slog.Warn("failed to resolve collection", "collection", id, "error", err)
			}
			collection = entity.Collection{Id: id}
		}
		res[id] = collection
	}
	return res
}

func (h *APIHandler) Collections(c *gin.Context) {
	ctx := c.Request.Context()
	movers, err := h.board.Top(ctx, trendingSize)
	if err != nil {
		slog.Error("failed to list trending collections", "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	now := h.now()
	views := make([]trendingView, 0, len(movers))
	for _, m := range movers {
		history, err := h.snapshotRepo.FindWindow(ctx, m.CollectionId, now.Add(-historyWindow), now.Add(time.Second), int(historyWindow/time.Hour))
		if err != nil {
			slog.Warn("failed to load volume history", "collection", m.CollectionId, "error", err)
		}
		volumes := make([]float64, 0, len(history))
		for i := len(history) - 1; i >= 0; i-- {
			volumes = append(volumes, decimalx.Float(history[i].Volume1h))
		}
		views = append(views, trendingView{Mover: m, VolumeHistory: volumes})
	}
	c.JSON(http.StatusOK, views)
}

func (h *APIHandler) Collection(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	collection, err := h.collectionRepo.FindById(ctx, id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		collection = entity.Collection{Id: id}
	case err != nil:
		slog.Error("failed to load collection", "collection", id, "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}
	snapshots, err := h.snapshotRepo.FindRecent(ctx, id, detailSnapshots)
	if err != nil {
		slog.Error("failed to load snapshots", "collection", id, "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}
	spikes, err := h.spikeRepo.FindRecent(ctx, id, detailSpikes)
	if err != nil {
		slog.Error("failed to load spikes", "collection", id, "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	snapshotViews := lo.Map(snapshots, func(item entity.Snapshot, index int) snapshotView {
		return toSnapshotView(item)
	})
	spikeViews := lo.Map(spikes, func(item entity.Spike, index int) alertView {
		return toAlertView(item, collection)
	})
	c.JSON(http.StatusOK, gin.H{
		"collection": toCollectionView(collection),
		"snapshots":  snapshotViews,
		"spikes":     spikeViews,
	})
}

func (h *APIHandler) Sales(c *gin.Context) {
	var inputs []ingest.SaleInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sales payload"})
		return
	}
	if len(inputs) == 0 || len(inputs) > maxIngestBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch must contain 1 to " + strconv.Itoa(maxIngestBatch) + " sales"})
		return
	}

	summary := h.ingestor.Ingest(c.Request.Context(), inputs)
	status := http.StatusOK
	if summary.Failed > 0 && summary.Inserted == 0 && summary.Duplicates == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, summary)
}
