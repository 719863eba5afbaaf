package bot

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/service/notification/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const replyTimeout = 10 * time.Second

// Updater *tgbotapi.BotAPI 的子集
type Updater interface {
	telegram.Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Listener 长轮询 telegram 更新并回复命令
type Listener struct {
	bot         Updater
	handler     *Handler
	pollTimeout int
}

func NewListener(bot Updater, handler *Handler) *Listener {
	return &Listener{
		bot:         bot,
		handler:     handler,
		pollTimeout: 30,
	}
}

// Run 阻塞直到 ctx 取消或更新通道关闭
func (l *Listener) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = l.pollTimeout
	updates := l.bot.GetUpdatesChan(u)
	defer l.bot.StopReceivingUpdates()

	slog.Info("telegram listener started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("telegram listener stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			l.handle(ctx, update)
		}
	}
}

func (l *Listener) handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatId := strconv.FormatInt(msg.Chat.ID, 10)
	reply := l.handler.Handle(ctx, chatId, msg.Command(), msg.CommandArguments())

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.DisableWebPagePreview = true
	if err := telegram.SendWithContext(ctx, l.bot, out); err != nil {
		slog.Warn("failed to reply bot command", "chat", chatId, "command", msg.Command(), "error", err)
	}
}
