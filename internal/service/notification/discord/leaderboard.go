package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/service/leaderboard"
	"github.com/bwmarrin/discordgo"
)

const (
	TopMoversChannel = "top-movers"
	topMoversColor   = 0x8b5cf6
)

// PublishTopMovers 发送到 #top-movers
func (s *Sink) PublishTopMovers(ctx context.Context, movers []leaderboard.Mover) error {
	channelId, err := s.ResolveChannel(ctx, TopMoversChannel)
	if err != nil {
		return err
	}
	_, err = s.session.ChannelMessageSendEmbed(channelId, BuildTopMoversEmbed(movers, time.Now()), discordgo.WithContext(ctx))
	return classify(err)
}

func BuildTopMoversEmbed(movers []leaderboard.Mover, now time.Time) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(movers))
	for i, m := range movers {
		floor := "—"
		if m.FloorPriceSol.Valid {
			floor = m.FloorPriceSol.Decimal.StringFixed(2)
		}
		lines = append(lines, fmt.Sprintf("**%d.** %s\nFloor: %s SOL · 1h: %s SOL · 24h: %s SOL",
			i+1, m.Name, floor, m.Volume1h.StringFixed(1), m.Volume24h.StringFixed(0)))
	}
	return &discordgo.MessageEmbed{
		Title:       "📈 Top Movers - Hourly Leaderboard",
		Color:       topMoversColor,
		Description: strings.Join(lines, "\n\n"),
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "NFT Pulse · Updates every hour",
		},
	}
}
