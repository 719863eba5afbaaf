package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Mover 按最近 1h 成交量排名的 collection
type Mover struct {
	CollectionId   string              `json:"collection_id"`
	Name           string              `json:"name"`
	ImageUrl       string              `json:"image_url,omitempty"`
	FloorPriceSol  decimal.NullDecimal `json:"floor_price_sol"`
	Volume1h       decimal.Decimal     `json:"volume_1h"`
	Volume24h      decimal.Decimal     `json:"volume_24h"`
	SalesCount1h   int                 `json:"sales_count_1h"`
	SalesCount24h  int                 `json:"sales_count_24h"`
	UniqueBuyers1h int                 `json:"unique_buyers_1h"`
	SnapshotAt     time.Time           `json:"snapshot_at"`
}

type Board struct {
	snapshotRepo   repo.SnapshotRepo
	collectionRepo repo.CollectionRepo
	lookback       time.Duration
	now            func() time.Time
}

func NewBoard(snapshotRepo repo.SnapshotRepo, collectionRepo repo.CollectionRepo, lookback time.Duration) *Board {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Board{
		snapshotRepo:   snapshotRepo,
		collectionRepo: collectionRepo,
		lookback:       lookback,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Top 取每个 collection 最新快照, 过滤掉 1h 无成交的, 按 1h 成交量倒序
func (b *Board) Top(ctx context.Context, limit int) ([]Mover, error) {
	snapshots, err := b.snapshotRepo.LatestSince(ctx, b.now().Add(-b.lookback))
	if err != nil {
		return nil, fmt.Errorf("latest snapshots: %w", err)
	}
	snapshots = lo.Filter(snapshots, func(item entity.Snapshot, index int) bool {
		return item.Volume1h.IsPositive()
	})
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Volume1h.GreaterThan(snapshots[j].Volume1h)
	})
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}

	movers := make([]Mover, 0, len(snapshots))
	for _, s := range snapshots {
		mover := Mover{
			CollectionId:   s.CollectionId,
			Name:           s.CollectionId,
			FloorPriceSol:  s.FloorPriceSol,
			Volume1h:       s.Volume1h,
			Volume24h:      s.Volume24h,
			SalesCount1h:   s.SalesCount1h,
			SalesCount24h:  s.SalesCount24h,
			UniqueBuyers1h: s.UniqueBuyers1h,
			SnapshotAt:     s.SnapshotAt,
		}
		collection, err := b.collectionRepo.FindById(ctx, s.CollectionId)
		switch {
		case err == nil:
			mover.Name = collection.DisplayName()
			mover.ImageUrl = collection.ImageUrl
		case !errors.Is(err, repo.ErrNotFound):
			slog.Warn("failed to resolve collection name", "collection", s.CollectionId, "error", err)
		}
		movers = append(movers, mover)
	}
	return movers, nil
}
