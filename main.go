package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/internal/schedule"
	"github.com/Snack-JPG/nft-pulse/internal/service/aggregate"
	"github.com/Snack-JPG/nft-pulse/internal/service/bot"
	"github.com/Snack-JPG/nft-pulse/internal/service/ingest"
	"github.com/Snack-JPG/nft-pulse/internal/service/leaderboard"
	"github.com/Snack-JPG/nft-pulse/internal/service/monitor"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification/discord"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification/live"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification/telegram"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
	"github.com/Snack-JPG/nft-pulse/internal/web"
	"github.com/Snack-JPG/nft-pulse/ioc"
	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {
	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	// 本地开发时从 .env 读取 secret
	_ = godotenv.Load()

	ioc.SetDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

func main() {
	initViper()
	ioc.InitLogger()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	saleRepo := repo.NewSaleRepo(db)
	snapshotRepo := repo.NewSnapshotRepo(db)
	spikeRepo := repo.NewSpikeRepo(db)
	subRepo := repo.NewSubscriberRepo(db)
	watchRepo := repo.NewWatchlistRepo(db)
	collectionRepo := repo.NewCollectionRepo(db)
	kv := ioc.InitCache()

	detectionCfg := ioc.InitDetectionConfig()
	scheduleCfg := ioc.InitScheduleConfig()
	httpCfg := ioc.InitHTTPConfig()

	hub := live.NewHub()
	board := leaderboard.NewBoard(snapshotRepo, collectionRepo, scheduleCfg.LeaderboardLookback)
	publishers := leaderboard.Publishers{hub}
	opts := []notification.Option{notification.WithFeed(hub)}

	tg := ioc.InitTelegramBot()
	if tg != nil {
		opts = append(opts, notification.WithChatSink(telegram.NewSink(tg)))
	}
	session, guildId := ioc.InitDiscordSession()
	if session != nil {
		discordSink := discord.NewSink(session, guildId, kv, viper.GetDuration("cache.channel_ttl"))
		opts = append(opts, notification.WithChannelSink(discordSink))
		publishers = append(publishers, discordSink)
	}

	dispatcher := notification.NewDispatcher(ioc.InitAlertConfig(), subRepo, watchRepo, opts...)
	aggregationCfg := ioc.InitAggregationConfig()
	aggregator := aggregate.NewAggregator(aggregationCfg, saleRepo, snapshotRepo)
	monitorCfg := ioc.InitMonitorConfig()
	spikeMonitor := monitor.NewSpikeMonitor(monitorCfg, spike.NewClassifier(detectionCfg), dispatcher,
		snapshotRepo, spikeRepo, collectionRepo)
	topMovers := leaderboard.NewPublishTask(board, publishers)
	ingestor := ingest.NewIngestor(saleRepo, collectionRepo, kv)

	router := web.NewRouter(httpCfg.Mode, hub.ServeWS,
		web.NewCronHandler(httpCfg.TriggerSecret, aggregator, spikeMonitor, topMovers),
		web.NewAPIHandler(spikeRepo, snapshotRepo, collectionRepo, board, ingestor, httpCfg.IngestSecret),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg conc.WaitGroup
	wg.Go(func() {
		hub.Run(ctx)
	})
	if scheduleCfg.Enabled {
		runner := schedule.NewRunner(scheduleCfg.RunTimeout).
			Add(aggregate.NewAggregateTask(aggregator), aggregationCfg.Interval).
			Add(monitor.NewSpikeMonitorTask(spikeMonitor), monitorCfg.Interval).
			Add(topMovers, scheduleCfg.LeaderboardInterval)
		wg.Go(func() {
			runner.Run(ctx)
		})
	}
	if tg != nil && viper.GetBool("telegram.listen") {
		handler := bot.NewHandler(subRepo, watchRepo, spikeRepo, board, detectionCfg.Thresholds)
		wg.Go(func() {
			if err := bot.NewListener(tg, handler).Run(ctx); err != nil {
				slog.Error("telegram listener exited", "error", err)
			}
		})
	}

	if session != nil && viper.GetBool("discord.commands") {
		slash := bot.NewSlashHandler(spikeRepo, snapshotRepo, board)
		session.AddHandler(slash.OnInteraction)
		if err := session.Open(); err != nil {
			slog.Error("failed to open discord gateway", "error", err)
		} else {
			defer session.Close()
			// READY 之后 state 里才有 bot 自己的 user id
			if session.State == nil || session.State.User == nil {
				slog.Error("discord ready state missing, slash commands not registered", "guild", guildId)
			} else if err = bot.RegisterCommands(session, session.State.User.ID, guildId); err != nil {
				slog.Error("failed to register discord commands", "guild", guildId, "error", err)
			}
		}
	}

	if err := web.Serve(ctx, httpCfg.Addr, router); err != nil {
		slog.Error("http server exited", "error", err)
		stop()
	}
	wg.Wait()
	slog.Info("nft pulse stopped")
}
