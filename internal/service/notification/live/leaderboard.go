package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Snack-JPG/nft-pulse/internal/service/leaderboard"
)

type topMoversEvent struct {
	Type   string              `json:"type"`
	Movers []leaderboard.Mover `json:"movers"`
}

// PublishTopMovers 排行榜也推送给在线连接
func (h *Hub) PublishTopMovers(ctx context.Context, movers []leaderboard.Mover) error {
	data, err := json.Marshal(topMoversEvent{Type: "top_movers", Movers: movers})
	if err != nil {
		return fmt.Errorf("marshal top movers: %w", err)
	}
	return h.enqueue(ctx, data)
}
