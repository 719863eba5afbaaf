package ioc

import (
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/service/aggregate"
	"github.com/Snack-JPG/nft-pulse/internal/service/monitor"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
	"github.com/Snack-JPG/nft-pulse/internal/web"
	"github.com/spf13/viper"
)

// SetDefaults 注册所有配置项, 环境变量覆盖只对已注册的 key 生效
func SetDefaults() {
	detection := spike.DefaultConfig()
	viper.SetDefault("detection.thresholds.elevated", detection.Thresholds.Elevated)
	viper.SetDefault("detection.thresholds.spike", detection.Thresholds.Spike)
	viper.SetDefault("detection.thresholds.extreme", detection.Thresholds.Extreme)
	viper.SetDefault("detection.min_volume_sol", detection.MinVolumeSOL)
	viper.SetDefault("detection.min_sale_count", detection.MinSaleCount)

	mon := monitor.DefaultConfig()
	viper.SetDefault("detection.baseline_window_days", mon.BaselineWindowDays)
	viper.SetDefault("detection.recency_window", mon.RecencyWindow)
	viper.SetDefault("detection.interval", mon.Interval)
	viper.SetDefault("detection.concurrency", mon.Concurrency)

	agg := aggregate.DefaultConfig()
	viper.SetDefault("aggregation.interval", agg.Interval)
	viper.SetDefault("aggregation.concurrency", agg.Concurrency)

	alert := notification.DefaultConfig()
	viper.SetDefault("alert.fanout", alert.Fanout)
	viper.SetDefault("alert.send_timeout", alert.SendTimeout)
	viper.SetDefault("alert.retry.max_attempts", alert.Retry.MaxAttempts)
	viper.SetDefault("alert.retry.base_delay", alert.Retry.BaseDelay)
	viper.SetDefault("alert.channels.elevated", alert.Channels.Elevated)
	viper.SetDefault("alert.channels.spike", alert.Channels.Spike)
	viper.SetDefault("alert.channels.extreme", alert.Channels.Extreme)
	viper.SetDefault("alert.channels.fallback", alert.Channels.Fallback)
	viper.SetDefault("alert.link_base_url", alert.LinkBaseURL)

	httpCfg := web.DefaultConfig()
	viper.SetDefault("http.addr", httpCfg.Addr)
	viper.SetDefault("http.mode", httpCfg.Mode)
	viper.SetDefault("trigger.secret", "")
	viper.SetDefault("ingest.secret", "")

	viper.SetDefault("schedule.enabled", true)
	viper.SetDefault("schedule.run_timeout", 5*time.Minute)
	viper.SetDefault("leaderboard.interval", time.Hour)
	viper.SetDefault("leaderboard.lookback", 24*time.Hour)

	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.dsn", "nft-pulse.db")
	viper.SetDefault("db.log_level", "warn")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.prefix", "nftpulse:")
	viper.SetDefault("cache.channel_ttl", 5*time.Minute)

	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.listen", true)
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.commands", true)
}

func unmarshalKey[T any](key string, cfg T) T {
	if err := viper.UnmarshalKey(key, &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func InitDetectionConfig() spike.Config {
	return unmarshalKey("detection", spike.DefaultConfig())
}

func InitMonitorConfig() monitor.Config {
	return unmarshalKey("detection", monitor.DefaultConfig())
}

func InitAggregationConfig() aggregate.Config {
	return unmarshalKey("aggregation", aggregate.DefaultConfig())
}

func InitAlertConfig() notification.Config {
	return unmarshalKey("alert", notification.DefaultConfig())
}

func InitHTTPConfig() web.Config {
	cfg := unmarshalKey("http", web.DefaultConfig())
	cfg.TriggerSecret = viper.GetString("trigger.secret")
	cfg.IngestSecret = viper.GetString("ingest.secret")
	return cfg
}

type ScheduleConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
	LeaderboardInterval time.Duration `mapstructure:"-"`
	LeaderboardLookback time.Duration `mapstructure:"-"`
}

func InitScheduleConfig() ScheduleConfig {
	cfg := unmarshalKey("schedule", ScheduleConfig{})
	cfg.LeaderboardInterval = viper.GetDuration("leaderboard.interval")
	cfg.LeaderboardLookback = viper.GetDuration("leaderboard.lookback")
	return cfg
}
