package ioc

import (
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB() *gorm.DB {
	type Config struct {
		Driver   string `mapstructure:"driver"`
		DSN      string `mapstructure:"dsn"`
		LogLevel string `mapstructure:"log_level"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("db", &cfg); err != nil {
		panic(err)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		// lib/pq 注册的驱动名为 postgres
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.DSN,
		})
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		panic(fmt.Errorf("unsupported db driver %q", cfg.Driver))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		panic(err)
	}
	return db
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}
