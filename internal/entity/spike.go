package entity

import (
	"math"
	"time"
)

type SpikeLevel string

const (
	LevelElevated SpikeLevel = "elevated"
	LevelSpike    SpikeLevel = "spike"
	LevelExtreme  SpikeLevel = "extreme"
)

// Rank 严重程度排序 elevated < spike < extreme, 未知等级为 0
func (l SpikeLevel) Rank() int {
	switch l {
	case LevelElevated:
		return 1
	case LevelSpike:
		return 2
	case LevelExtreme:
		return 3
	}
	return 0
}

func (l SpikeLevel) Valid() bool {
	return l.Rank() > 0
}

// AtLeast l 是否达到 threshold
func (l SpikeLevel) AtLeast(threshold SpikeLevel) bool {
	return l.Valid() && l.Rank() >= threshold.Rank()
}

type SpikeType string

const (
	SpikeTypeVolume       SpikeType = "volume"
	SpikeTypeSalesCount   SpikeType = "sales_count"
	SpikeTypeUniqueBuyers SpikeType = "unique_buyers"
)

// Spike 检测到的成交量异动, 只有 Alerted 字段会被更新
type Spike struct {
	Id             int64      `gorm:"primaryKey;autoIncrement"`
	CollectionId   string     `gorm:"index;size:128"`
	SpikeType      SpikeType  `gorm:"size:32"`
	Level          SpikeLevel `gorm:"size:16;index"`
	CurrentValue   float64
	BaselineValue  float64
	BaselineStddev float64
	Multiplier     *float64 // nil: baseline mean 为 0, 倍数视为无穷大
	Score          *float64 // nil: z-score 无穷大
	DetectedAt     time.Time `gorm:"index;not null"`
	Alerted        bool      `gorm:"index"`
}

func (Spike) TableName() string {
	return "volume_spikes"
}

// MultiplierValue 倍数为空时返回 +Inf
func (s Spike) MultiplierValue() float64 {
	if s.Multiplier == nil {
		return math.Inf(1)
	}
	return *s.Multiplier
}

func (s Spike) ScoreValue() float64 {
	if s.Score == nil {
		return math.Inf(1)
	}
	return *s.Score
}

// FiniteOrNil 无穷大/NaN 无法入库, 转成 nil
func FiniteOrNil(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
