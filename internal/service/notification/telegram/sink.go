package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Snack-JPG/nft-pulse/internal/service/notification"
	"github.com/Snack-JPG/nft-pulse/pkg/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender *tgbotapi.BotAPI 的子集
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Sink struct {
	bot Sender
}

func NewSink(bot Sender) *Sink {
	return &Sink{
		bot: bot,
	}
}

func (s *Sink) Name() string {
	return "telegram"
}

// Send recipientId 为 chat id
func (s *Sink) Send(ctx context.Context, recipientId string, msg notification.Message) error {
	chatId, err := strconv.ParseInt(recipientId, 10, 64)
	if err != nil {
		return retry.Permanent(fmt.Errorf("invalid telegram chat id %q: %w", recipientId, err))
	}
	m := tgbotapi.NewMessage(chatId, msg.HTML())
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	return SendWithContext(ctx, s.bot, m)
}

// SendWithContext tgbotapi 不支持 context, 超时后放弃等待结果
func SendWithContext(ctx context.Context, bot Sender, c tgbotapi.Chattable) error {
	done := make(chan error, 1)
	go func() {
		_, err := bot.Send(c)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return classify(err)
	}
}

// classify 除限流外的 4xx 不重试, 例如用户屏蔽了 bot
func classify(err error) error {
	if err == nil {
		return nil
	}
	code := 0
	var pe *tgbotapi.Error
	var ve tgbotapi.Error
	switch {
	case errors.As(err, &pe):
		code = pe.Code
	case errors.As(err, &ve):
		code = ve.Code
	}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
