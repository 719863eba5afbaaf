package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/service/notification"
	"github.com/Snack-JPG/nft-pulse/pkg/cache"
	"github.com/Snack-JPG/nft-pulse/pkg/retry"
	"github.com/bwmarrin/discordgo"
)

const footer = "NFT Pulse · Solana Volume Tracker"

// Session *discordgo.Session 的子集
type Session interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Sink struct {
	session  Session
	guildId  string
	channels cache.Cache
	cacheTTL time.Duration
}

func NewSink(session Session, guildId string, channels cache.Cache, cacheTTL time.Duration) *Sink {
	return &Sink{
		session:  session,
		guildId:  guildId,
		channels: channels,
		cacheTTL: cacheTTL,
	}
}

func (s *Sink) Name() string {
	return "discord"
}

func (s *Sink) cacheKey(name string) string {
	return "discord:channel:" + s.guildId + ":" + name
}

// ResolveChannel 频道名到 id 的映射带 TTL 缓存, 未命中时拉取整个 guild 的频道列表
func (s *Sink) ResolveChannel(ctx context.Context, name string) (string, error) {
	return cache.GetOrRefresh(ctx, s.channels, s.cacheKey(name), s.cacheTTL, func(ctx context.Context) (string, error) {
		channels, err := s.session.GuildChannels(s.guildId, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("list guild channels: %w", err)
		}
		found := ""
		for _, ch := range channels {
			if ch == nil || ch.Name == "" {
				continue
			}
			_ = s.channels.Set(ctx, s.cacheKey(ch.Name), ch.ID, s.cacheTTL)
			if ch.Name == name {
				found = ch.ID
			}
		}
		if found == "" {
			return "", fmt.Errorf("discord channel %q: %w", name, notification.ErrChannelNotFound)
		}
		return found, nil
	})
}

// Send recipientId 为频道 id
func (s *Sink) Send(ctx context.Context, recipientId string, msg notification.Message) error {
	_, err := s.session.ChannelMessageSendEmbed(recipientId, BuildEmbed(msg), discordgo.WithContext(ctx))
	return classify(err)
}

// classify 除限流外的 4xx 不重试, 例如缺少频道权限或频道已删除
func classify(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return err
	}
	code := restErr.Response.StatusCode
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

// BuildEmbed 告警 embed, 颜色和图标随严重程度变化
func BuildEmbed(msg notification.Message) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		URL:   msg.Link,
		Title: msg.Title(),
		Color: msg.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Volume",
				Value:  fmt.Sprintf("**%s** (%sx baseline)", msg.ValueText(), msg.MultiplierText()),
				Inline: true,
			},
			{
				Name:   "Z-Score",
				Value:  msg.ScoreText(),
				Inline: true,
			},
			{
				Name:   "Type",
				Value:  string(msg.SpikeType),
				Inline: true,
			},
		},
		Timestamp: msg.DetectedAt.UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: footer,
		},
	}
}
