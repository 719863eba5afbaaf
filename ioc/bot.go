package ioc

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/viper"
)

// InitTelegramBot 未配置 token 时返回 nil
func InitTelegramBot() *tgbotapi.BotAPI {
	token := viper.GetString("telegram.token")
	if token == "" {
		slog.Warn("telegram token not set, telegram alerts disabled")
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		panic(err)
	}
	slog.Info("telegram bot authorized", "username", bot.Self.UserName)
	return bot
}

// InitDiscordSession 未配置 token 或 guild 时返回 nil
func InitDiscordSession() (*discordgo.Session, string) {
	type Config struct {
		Token   string `mapstructure:"token"`
		GuildId string `mapstructure:"guild_id"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("discord", &cfg); err != nil {
		panic(err)
	}
	if cfg.Token == "" || cfg.GuildId == "" {
		slog.Warn("discord token or guild not set, discord alerts disabled")
		return nil, ""
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		panic(err)
	}
	return session, cfg.GuildId
}
