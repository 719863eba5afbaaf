package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/internal/service/leaderboard"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
	"github.com/samber/lo"
)

const (
	topSize        = 5
	recentAlerts   = 5
	alertsLookback = 7 * 24 * time.Hour
)

const helpText = "NFT Pulse - Solana Volume Tracker\n\n" +
	"Commands:\n" +
	"/start - Subscribe to spike alerts\n" +
	"/stop - Unsubscribe\n" +
	"/top - Top trending collections\n" +
	"/alerts - Most recent spikes\n" +
	"/watchlist - Manage your watchlist\n" +
	"/threshold - Set alert threshold"

const (
	thresholdUsage = "Set with: /threshold elevated|spike|extreme"
	watchlistUsage = "Usage: /watchlist add <collection>\n/watchlist remove <collection>"
	internalError  = "Something went wrong, please try again later."
)

// TopSource 排行榜数据源
type TopSource interface {
	Top(ctx context.Context, limit int) ([]leaderboard.Mover, error)
}

type Handler struct {
	subRepo    repo.SubscriberRepo
	watchRepo  repo.WatchlistRepo
	spikeRepo  repo.SpikeRepo
	board      TopSource
	thresholds spike.Thresholds
	now        func() time.Time
}

func NewHandler(subRepo repo.SubscriberRepo, watchRepo repo.WatchlistRepo, spikeRepo repo.SpikeRepo,
	board TopSource, thresholds spike.Thresholds) *Handler {
	return &Handler{
		subRepo:    subRepo,
		watchRepo:  watchRepo,
		spikeRepo:  spikeRepo,
		board:      board,
		thresholds: thresholds,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle 处理一条命令, 返回回复文本, 内部错误只记录日志
func (h *Handler) Handle(ctx context.Context, chatId, command, args string) string {
	args = strings.TrimSpace(args)

	var (
		reply string
		err   error
	)
	switch strings.ToLower(command) {
	case "start":
		reply, err = h.start(ctx, chatId)
	case "stop":
		reply, err = h.stop(ctx, chatId)
	case "threshold":
		reply, err = h.threshold(ctx, chatId, args)
	case "watchlist":
		reply, err = h.watchlist(ctx, chatId, args)
	case "top":
		reply, err = h.top(ctx)
	case "alerts":
		reply, err = h.alerts(ctx)
	default:
		reply = helpText
	}
	if err != nil {
		slog.Error("failed to handle bot command", "command", command, "chat", chatId, "error", err)
		return internalError
	}
	return reply
}

// currentThreshold 未订阅时返回默认阈值
func (h *Handler) currentThreshold(ctx context.Context, chatId string) (entity.SpikeLevel, error) {
	level, err := h.subRepo.GetThreshold(ctx, chatId)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !level.Valid()) {
		return entity.DefaultThreshold, nil
	}
	return level, err
}

func (h *Handler) start(ctx context.Context, chatId string) (string, error) {
	level, err := h.currentThreshold(ctx, chatId)
	if err != nil {
		return "", err
	}
	if err = h.subRepo.Upsert(ctx, chatId, level, true); err != nil {
		return "", err
	}
	return fmt.Sprintf("Subscribed. You will receive %s alerts and above.\n\n%s", level, helpText), nil
}

func (h *Handler) stop(ctx context.Context, chatId string) (string, error) {
	err := h.subRepo.SetActive(ctx, chatId, false)
	if errors.Is(err, repo.ErrNotFound) {
		return "You are not subscribed. Use /start to subscribe.", nil
	}
	if err != nil {
		return "", err
	}
	return "Unsubscribed. Watchlist alerts still apply, use /watchlist remove to stop them.", nil
}

func (h *Handler) threshold(ctx context.Context, chatId, args string) (string, error) {
	if args == "" {
		level, err := h.currentThreshold(ctx, chatId)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Alert Threshold\n\nCurrent: %s (z >= %.1f)\n\n%s", level, h.zFor(level), thresholdUsage), nil
	}

	level := entity.SpikeLevel(strings.ToLower(args))
	if !level.Valid() {
		return "Unknown level " + args + ".\n\n" + thresholdUsage, nil
	}
	// 设置阈值同时订阅
	if err := h.subRepo.Upsert(ctx, chatId, level, true); err != nil {
		return "", err
	}
	return fmt.Sprintf("Alert threshold set to %s (z >= %.1f)", level, h.zFor(level)), nil
}

func (h *Handler) zFor(level entity.SpikeLevel) float64 {
	switch level {
	case entity.LevelElevated:
		return h.thresholds.Elevated
	case entity.LevelExtreme:
		return h.thresholds.Extreme
	}
	return h.thresholds.Spike
}

func (h *Handler) watchlist(ctx context.Context, chatId, args string) (string, error) {
	if args == "" {
		ids, err := h.watchRepo.List(ctx, chatId)
		if err != nil {
			return "", err
		}
		if len(ids) == 0 {
			return "Your Watchlist\n\nNo collections yet.\n\n" + watchlistUsage, nil
		}
		lines := lo.Map(ids, func(item string, index int) string {
			return "• " + item
		})
		return "Your Watchlist\n\n" + strings.Join(lines, "\n"), nil
	}

	action, collectionId, _ := strings.Cut(args, " ")
	collectionId = strings.TrimSpace(collectionId)
	if collectionId == "" {
		return watchlistUsage, nil
	}
	switch strings.ToLower(action) {
	case "add":
		if err := h.watchRepo.Add(ctx, chatId, collectionId); err != nil {
			return "", err
		}
		return "Added " + collectionId + " to your watchlist.", nil
	case "remove":
		err := h.watchRepo.Remove(ctx, chatId, collectionId)
		if errors.Is(err, repo.ErrNotFound) {
			return collectionId + " is not on your watchlist.", nil
		}
		if err != nil {
			return "", err
		}
		return "Removed " + collectionId + " from your watchlist.", nil
	}
	return watchlistUsage, nil
}

func (h *Handler) top(ctx context.Context) (string, error) {
	movers, err := h.board.Top(ctx, topSize)
	if err != nil {
		return "", err
	}
	if len(movers) == 0 {
		return "No trading activity in the last hour.", nil
	}
	var sb strings.Builder
	sb.WriteString("Top Collections (1h Volume)\n")
	for i, m := range movers {
		fmt.Fprintf(&sb, "\n%d. %s - %s SOL (%d sales)", i+1, m.Name, m.Volume1h.StringFixed(1), m.SalesCount1h)
	}
	return sb.String(), nil
}

func (h *Handler) alerts(ctx context.Context) (string, error) {
	spikes, err := h.spikeRepo.FindSince(ctx, h.now().Add(-alertsLookback), recentAlerts)
	if err != nil {
		return "", err
	}
	if len(spikes) == 0 {
		return "No spikes detected in the last 7 days.", nil
	}
	var sb strings.Builder
	sb.WriteString("Recent Spikes\n")
	for _, s := range spikes {
		fmt.Fprintf(&sb, "\n%s - %s\n%.1f SOL (%sx baseline) at %s",
			strings.ToUpper(string(s.Level)), s.CollectionId, s.CurrentValue,
			multiplierText(s), s.DetectedAt.UTC().Format("Jan 2 15:04 UTC"))
	}
	return sb.String(), nil
}

func multiplierText(s entity.Spike) string {
	if s.Multiplier == nil {
		return "∞"
	}
	return fmt.Sprintf("%.1f", *s.Multiplier)
}
