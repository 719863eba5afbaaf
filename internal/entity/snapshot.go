package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot 某个 collection 在某一时刻的滚动窗口统计, 只追加不修改
type Snapshot struct {
	Id             int64               `gorm:"primaryKey;autoIncrement"`
	CollectionId   string              `gorm:"index:idx_snapshots_collection_time,priority:1;size:128"`
	FloorPriceSol  decimal.NullDecimal `gorm:"type:numeric(20,9)"`
	Volume1h       decimal.Decimal     `gorm:"type:numeric(20,9)"`
	Volume24h      decimal.Decimal     `gorm:"type:numeric(20,9)"`
	SalesCount1h   int
	SalesCount24h  int
	UniqueBuyers1h int
	ListingsCount  *int
	SnapshotAt     time.Time `gorm:"index:idx_snapshots_collection_time,priority:2;index;not null"`
}

func (Snapshot) TableName() string {
	return "collection_snapshots"
}
