package web

import (
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/service/leaderboard"
	"github.com/shopspring/decimal"
)

type collectionView struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	ImageUrl string `json:"image_url,omitempty"`
}

func toCollectionView(c entity.Collection) collectionView {
	return collectionView{
		Id:       c.Id,
		Name:     c.DisplayName(),
		ImageUrl: c.ImageUrl,
	}
}

// alertView multiplier/score 为 null 表示无穷大
type alertView struct {
	Id             int64             `json:"id"`
	CollectionId   string            `json:"collection_id"`
	CollectionName string            `json:"collection_name"`
	ImageUrl       string            `json:"image_url,omitempty"`
	SpikeType      entity.SpikeType  `json:"spike_type"`
	Level          entity.SpikeLevel `json:"level"`
	CurrentValue   float64           `json:"current_value"`
	BaselineValue  float64           `json:"baseline_value"`
	BaselineStddev float64           `json:"baseline_stddev"`
	Multiplier     *float64          `json:"multiplier"`
	Score          *float64          `json:"score"`
	DetectedAt     time.Time         `json:"detected_at"`
	Alerted        bool              `json:"alerted"`
}

func toAlertView(s entity.Spike, c entity.Collection) alertView {
	return alertView{
		Id:             s.Id,
		CollectionId:   s.CollectionId,
		CollectionName: c.DisplayName(),
		ImageUrl:       c.ImageUrl,
		SpikeType:      s.SpikeType,
		Level:          s.Level,
		CurrentValue:   s.CurrentValue,
		BaselineValue:  s.BaselineValue,
		BaselineStddev: s.BaselineStddev,
		Multiplier:     s.Multiplier,
		Score:          s.Score,
		DetectedAt:     s.DetectedAt,
		Alerted:        s.Alerted,
	}
}

type snapshotView struct {
	CollectionId   string              `json:"collection_id"`
	FloorPriceSol  decimal.NullDecimal `json:"floor_price_sol"`
	Volume1h       decimal.Decimal     `json:"volume_1h"`
	Volume24h      decimal.Decimal     `json:"volume_24h"`
	SalesCount1h   int                 `json:"sales_count_1h"`
	SalesCount24h  int                 `json:"sales_count_24h"`
	UniqueBuyers1h int                 `json:"unique_buyers_1h"`
	ListingsCount  *int                `json:"listings_count"`
	SnapshotAt     time.Time           `json:"snapshot_at"`
}

func toSnapshotView(s entity.Snapshot) snapshotView {
	return snapshotView{
		CollectionId:   s.CollectionId,
		FloorPriceSol:  s.FloorPriceSol,
		Volume1h:       s.Volume1h,
		Volume24h:      s.Volume24h,
		SalesCount1h:   s.SalesCount1h,
		SalesCount24h:  s.SalesCount24h,
		UniqueBuyers1h: s.UniqueBuyers1h,
		ListingsCount:  s.ListingsCount,
		SnapshotAt:     s.SnapshotAt,
	}
}

// trendingView 排行榜条目加上最近 12h 的 1h 成交量走势, 按时间正序
type trendingView struct {
	leaderboard.Mover
	VolumeHistory []float64 `json:"volume_history"`
}
