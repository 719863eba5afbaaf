package spike

import (
	"math"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
)

// 平坦基线(方差为 0)时使用的倍数档位
const (
	flatExtremeMultiplier  = 5
	flatSpikeMultiplier    = 3
	flatElevatedMultiplier = 2
)

type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg: cfg,
	}
}

// Classify 判断当前值相对基线是否异动, 未异动时返回 false
func (c *Classifier) Classify(collectionId string, currentVolume float64, currentSaleCount int,
	baseline Baseline, spikeType entity.SpikeType) (Result, bool) {
	// 过滤噪音
	if currentVolume < c.cfg.MinVolumeSOL {
		return Result{}, false
	}
	if currentSaleCount < c.cfg.MinSaleCount {
		return Result{}, false
	}

	result := Result{
		CollectionId:   collectionId,
		CurrentValue:   currentVolume,
		BaselineMean:   baseline.Mean,
		BaselineStddev: baseline.Stddev,
		SpikeType:      spikeType,
	}

	if baseline.Stddev == 0 {
		// 没有历史数据, 达到最低门槛本身就值得关注
		if baseline.Mean == 0 {
			result.Level = entity.LevelElevated
			result.Score = math.Inf(1)
			return result, true
		}

		mult := currentVolume / baseline.Mean
		switch {
		case mult >= flatExtremeMultiplier:
			result.Level, result.Score = entity.LevelExtreme, mult*2
		case mult >= flatSpikeMultiplier:
			result.Level, result.Score = entity.LevelSpike, mult*1.5
		case mult >= flatElevatedMultiplier:
			result.Level, result.Score = entity.LevelElevated, mult
		default:
			return Result{}, false
		}
		return result, true
	}

	z := (currentVolume - baseline.Mean) / baseline.Stddev
	level, ok := c.level(z)
	if !ok {
		return Result{}, false
	}
	result.Level = level
	result.Score = z
	return result, true
}

func (c *Classifier) level(z float64) (entity.SpikeLevel, bool) {
	t := c.cfg.Thresholds
	switch {
	case z >= t.Extreme:
		return entity.LevelExtreme, true
	case z >= t.Spike:
		return entity.LevelSpike, true
	case z >= t.Elevated:
		return entity.LevelElevated, true
	}
	return "", false
}
