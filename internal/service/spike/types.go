package spike

import (
	"math"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
)

// Baseline 历史成交量的均值和总体标准差
type Baseline struct {
	Mean   float64
	Stddev float64
}

// Thresholds z-score 阈值, 包含等号, 从高到低判断
type Thresholds struct {
	Elevated float64 `mapstructure:"elevated"`
	Spike    float64 `mapstructure:"spike"`
	Extreme  float64 `mapstructure:"extreme"`
}

type Config struct {
	Thresholds   Thresholds `mapstructure:"thresholds"`
	MinVolumeSOL float64    `mapstructure:"min_volume_sol"`
	MinSaleCount int        `mapstructure:"min_sale_count"`
}

func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			Elevated: 2,
			Spike:    3,
			Extreme:  5,
		},
		MinVolumeSOL: 1,
		MinSaleCount: 5,
	}
}

// Result 分类结果, Score 为 z-score 或平坦基线下的倍数得分
type Result struct {
	CollectionId   string
	Level          entity.SpikeLevel
	Score          float64
	CurrentValue   float64
	BaselineMean   float64
	BaselineStddev float64
	SpikeType      entity.SpikeType
}

// Multiplier 当前值相对基线均值的倍数, 均值为 0 时为 +Inf
func (r Result) Multiplier() float64 {
	if r.BaselineMean == 0 {
		return math.Inf(1)
	}
	return r.CurrentValue / r.BaselineMean
}
