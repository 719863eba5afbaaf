package monitor

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
)

type Config struct {
	BaselineWindowDays int           `mapstructure:"baseline_window_days"`
	RecencyWindow      time.Duration `mapstructure:"recency_window"`
	Interval           time.Duration `mapstructure:"interval"`
	Concurrency        int           `mapstructure:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		BaselineWindowDays: 7,
		RecencyWindow:      10 * time.Minute,
		Interval:           time.Minute,
		Concurrency:        4,
	}
}

// Summary 一次检测的结果
type Summary struct {
	RunId      string    `json:"run_id"`
	Checked    int       `json:"checked"`
	Spikes     int       `json:"spikes"`
	AlertsSent int       `json:"alerts_sent"`
	Failed     int       `json:"failed"`
	Timestamp  time.Time `json:"timestamp"`
}

// AllFailed 有尝试且全部失败
func (s Summary) AllFailed() bool {
	return s.Checked > 0 && s.Failed == s.Checked
}

// SpikeService 检测服务接口
type SpikeService interface {
	Run(ctx context.Context) (Summary, error)
}

type Classifier interface {
	Classify(collectionId string, currentVolume float64, currentSaleCount int,
		baseline spike.Baseline, spikeType entity.SpikeType) (spike.Result, bool)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, res spike.Result, displayName string) notification.Report
}
