package aggregate

import (
	"context"
	"time"
)

type Config struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Interval:    time.Hour,
		Concurrency: 8,
	}
}

// Summary 一次聚合的结果
type Summary struct {
	RunId      string    `json:"run_id"`
	Aggregated int       `json:"aggregated"`
	Failed     int       `json:"failed"`
	Timestamp  time.Time `json:"timestamp"`
}

// AllFailed 有尝试且全部失败
func (s Summary) AllFailed() bool {
	return s.Failed > 0 && s.Aggregated == 0
}

type Service interface {
	Run(ctx context.Context) (Summary, error)
}
