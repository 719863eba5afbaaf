package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification/discord"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	slashTopSize     = 10
	slashReplyWindow = 3 * time.Second
	statusLookback   = 24 * time.Hour
	alertsColor      = 0xef4444
	statusColor      = 0x22c55e
	slashFooter      = "NFT Pulse"
)

// SlashCommands 注册到 guild 的斜杠命令
var SlashCommands = []*discordgo.ApplicationCommand{
	{Name: "top", Description: "Top collections by 1h volume"},
	{Name: "alerts", Description: "Most recent spike alerts"},
	{Name: "status", Description: "Tracker status"},
}

// InteractionSession *discordgo.Session 的子集
type InteractionSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// SnapshotSource 每个 collection 最新的快照
type SnapshotSource interface {
	LatestSince(ctx context.Context, since time.Time) ([]entity.Snapshot, error)
}

type SlashHandler struct {
	spikeRepo repo.SpikeRepo
	snapshots SnapshotSource
	board     TopSource
	now       func() time.Time
}

func NewSlashHandler(spikeRepo repo.SpikeRepo, snapshots SnapshotSource, board TopSource) *SlashHandler {
	return &SlashHandler{
		spikeRepo: spikeRepo,
		snapshots: snapshots,
		board:     board,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// RegisterCommands 覆盖 guild 下已有的命令, 重复调用是幂等的
func RegisterCommands(s CommandRegistrar, appId, guildId string) error {
	_, err := s.ApplicationCommandBulkOverwrite(appId, guildId, SlashCommands)
	if err != nil {
		return fmt.Errorf("register slash commands: %w", err)
	}
	return nil
}

// OnInteraction 通过 session.AddHandler 注册
func (h *SlashHandler) OnInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.Respond(s, i)
}

// Respond discord 要求 3 秒内应答, 超时后回复也没有意义
func (h *SlashHandler) Respond(s InteractionSession, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), slashReplyWindow)
	defer cancel()

	name := i.ApplicationCommandData().Name
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: h.Reply(ctx, name),
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.Error("failed to respond to slash command", "command", name, "guild", i.GuildID, "error", err)
	}
}

// Reply 内部错误只记录日志, 回复仅调用者可见的提示
func (h *SlashHandler) Reply(ctx context.Context, name string) *discordgo.InteractionResponseData {
	var (
		data *discordgo.InteractionResponseData
		err  error
	)
	switch name {
	case "top":
		data, err = h.top(ctx)
	case "alerts":
		data, err = h.alerts(ctx)
	case "status":
		data, err = h.status(ctx)
	default:
		return ephemeral("Unknown command.")
	}
	if err != nil {
		slog.Error("failed to handle slash command", "command", name, "error", err)
		return ephemeral("⚠️ Failed to fetch " + name + ".")
	}
	return data
}

func ephemeral(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}
}

func (h *SlashHandler) top(ctx context.Context) (*discordgo.InteractionResponseData, error) {
	movers, err := h.board.Top(ctx, slashTopSize)
	if err != nil {
		return nil, err
	}
	if len(movers) == 0 {
		return &discordgo.InteractionResponseData{
			Content: "📡 No data yet. Waiting for collections to be tracked.",
		}, nil
	}
	embed := discord.BuildTopMoversEmbed(movers, h.now())
	embed.Title = "📈 Top Collections (1h Volume)"
	embed.Footer = &discordgo.MessageEmbedFooter{Text: slashFooter}
	return &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func (h *SlashHandler) alerts(ctx context.Context) (*discordgo.InteractionResponseData, error) {
	spikes, err := h.spikeRepo.FindSince(ctx, h.now().Add(-alertsLookback), recentAlerts)
	if err != nil {
		return nil, err
	}
	if len(spikes) == 0 {
		return &discordgo.InteractionResponseData{Content: "No recent spikes detected."}, nil
	}
	lines := lo.Map(spikes, func(s entity.Spike, _ int) string {
		return fmt.Sprintf("**%s** · %sx baseline · %.1f SOL · %s",
			s.CollectionId, multiplierText(s), s.CurrentValue, relativeTime(s.DetectedAt))
	})
	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "🚨 Recent Spike Alerts",
				Color:       alertsColor,
				Description: strings.Join(lines, "\n"),
				Timestamp:   h.now().Format(time.RFC3339),
				Footer:      &discordgo.MessageEmbedFooter{Text: slashFooter},
			},
		},
	}, nil
}

func (h *SlashHandler) status(ctx context.Context) (*discordgo.InteractionResponseData, error) {
	since := h.now().Add(-statusLookback)

	var (
		snapshots []entity.Snapshot
		spikes    int64
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		snapshots, err = h.snapshots.LatestSince(ctx, since)
		return err
	})
	eg.Go(func() error {
		var err error
		spikes, err = h.spikeRepo.CountSince(ctx, since)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	lastUpdate := "Never"
	if len(snapshots) > 0 {
		latest := lo.MaxBy(snapshots, func(a, b entity.Snapshot) bool {
			return a.SnapshotAt.After(b.SnapshotAt)
		})
		lastUpdate = relativeTime(latest.SnapshotAt)
	}
	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: "📊 NFT Pulse Status",
				Color: statusColor,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Collections Tracked", Value: strconv.Itoa(len(snapshots)), Inline: true},
					{Name: "Spikes (24h)", Value: strconv.FormatInt(spikes, 10), Inline: true},
					{Name: "Last Update", Value: lastUpdate, Inline: true},
				},
				Timestamp: h.now().Format(time.RFC3339),
				Footer:    &discordgo.MessageEmbedFooter{Text: slashFooter},
			},
		},
	}, nil
}

// relativeTime discord 客户端按本地时区渲染的相对时间
func relativeTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
