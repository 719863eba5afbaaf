package ingest

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidSale = errors.New("invalid sale")

// SaleInput 已经规范化的成交事件, 由外部适配器(helius/tensor 等)产出
type SaleInput struct {
	Signature      string          `json:"signature"`
	CollectionId   string          `json:"collection_id"`
	CollectionName string          `json:"collection_name,omitempty"`
	Marketplace    string          `json:"marketplace"`
	PriceSol       decimal.Decimal `json:"price_sol"`
	Buyer          string          `json:"buyer"`
	Seller         string          `json:"seller"`
	Mint           string          `json:"mint"`
	Timestamp      time.Time       `json:"timestamp"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// Rejection 单条被拒绝的原因
type Rejection struct {
	Index     int    `json:"index"`
	Signature string `json:"signature"`
	Reason    string `json:"reason"`
}

type Summary struct {
	Received   int         `json:"received"`
	Inserted   int         `json:"inserted"`
	Duplicates int         `json:"duplicates"`
	Rejected   int         `json:"rejected"`
	Failed     int         `json:"failed"`
	Rejections []Rejection `json:"rejections,omitempty"`
}
