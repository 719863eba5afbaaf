package notification

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
)

// Message 与具体渠道无关的告警内容, 各 Sink 自行渲染
type Message struct {
	CollectionId string            `json:"collection_id"`
	DisplayName  string            `json:"display_name"`
	Level        entity.SpikeLevel `json:"level"`
	SpikeType    entity.SpikeType  `json:"spike_type"`
	CurrentValue float64           `json:"current_value"`
	BaselineMean float64           `json:"baseline_mean"`
	// Multiplier/Score 为 +Inf 时 json 中序列化为 null
	Multiplier float64   `json:"-"`
	Score      float64   `json:"-"`
	DetectedAt time.Time `json:"detected_at"`
	Link       string    `json:"link"`
}

// Sink 点对点发送, 如 telegram chat
type Sink interface {
	Name() string
	Send(ctx context.Context, recipientId string, msg Message) error
}

// ChannelSink 按名称路由到公共频道, 如 discord
type ChannelSink interface {
	Sink
	// ResolveChannel 频道名转成可发送的 id, 不存在时返回 ErrChannelNotFound
	ResolveChannel(ctx context.Context, name string) (string, error)
}

// Feed 广播给所有在线连接, 如 websocket
type Feed interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type ChannelsConfig struct {
	Elevated string `mapstructure:"elevated"`
	Spike    string `mapstructure:"spike"`
	Extreme  string `mapstructure:"extreme"`
	Fallback string `mapstructure:"fallback"`
}

// ForLevel 按严重程度选择频道名
func (c ChannelsConfig) ForLevel(level entity.SpikeLevel) string {
	switch level {
	case entity.LevelExtreme:
		return c.Extreme
	case entity.LevelSpike:
		return c.Spike
	case entity.LevelElevated:
		return c.Elevated
	}
	return c.Fallback
}

type Config struct {
	Fanout      int            `mapstructure:"fanout"`
	SendTimeout time.Duration  `mapstructure:"send_timeout"`
	Retry       RetryConfig    `mapstructure:"retry"`
	Channels    ChannelsConfig `mapstructure:"channels"`
	LinkBaseURL string         `mapstructure:"link_base_url"`
}

func DefaultConfig() Config {
	return Config{
		Fanout:      8,
		SendTimeout: 10 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
		},
		Channels: ChannelsConfig{
			Elevated: "alerts-elevated",
			Spike:    "alerts-spike",
			Extreme:  "alerts-extreme",
			Fallback: "alerts",
		},
	}
}

// Report 一次分发的结果, 区分 "检测到" 与 "成功送达"
type Report struct {
	Broadcast int `json:"broadcast"`
	Watchlist int `json:"watchlist"`
	Channel   int `json:"channel"`
	Feed      int `json:"feed"`
	Failed    int `json:"failed"`
}

// Delivered 成功送达的总数
func (r Report) Delivered() int {
	return r.Broadcast + r.Watchlist + r.Channel + r.Feed
}
