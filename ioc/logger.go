package ioc

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// InitLogger 设置全局 slog, format 为 text 或 json
func InitLogger() {
	type Config struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("log", &cfg); err != nil {
		panic(err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
