package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Marketplace 成交所在的市场
type Marketplace string

const (
	MarketplaceTensor    Marketplace = "tensor"
	MarketplaceMagicEden Marketplace = "magic_eden"
	MarketplaceHadeswap  Marketplace = "hadeswap"
	MarketplaceSolanart  Marketplace = "solanart"
	MarketplaceUnknown   Marketplace = "unknown"
)

var Marketplaces = []Marketplace{
	MarketplaceTensor,
	MarketplaceMagicEden,
	MarketplaceHadeswap,
	MarketplaceSolanart,
	MarketplaceUnknown,
}

// Sale 一笔已成交的 NFT 交易, signature 唯一
type Sale struct {
	Id           int64           `gorm:"primaryKey;autoIncrement"`
	Signature    string          `gorm:"uniqueIndex;size:128"`
	CollectionId string          `gorm:"index:idx_sales_collection_time,priority:1;size:128"`
	Marketplace  Marketplace     `gorm:"size:32"`
	PriceSol     decimal.Decimal `gorm:"type:numeric(20,9)"`
	Buyer        string          `gorm:"size:64"`
	Seller       string          `gorm:"size:64"`
	Mint         string          `gorm:"size:64"`
	Timestamp    time.Time       `gorm:"index:idx_sales_collection_time,priority:2;not null"`
	Raw          datatypes.JSON
	CreatedAt    time.Time
}

func (Sale) TableName() string {
	return "nft_sales"
}
