package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/service/notification"
	"github.com/Snack-JPG/nft-pulse/pkg/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func testMessage() notification.Message {
	return notification.Message{
		CollectionId: "mad_lads",
		DisplayName:  "Mad Lads",
		Level:        entity.LevelSpike,
		SpikeType:    entity.SpikeTypeVolume,
		CurrentValue: 85,
		BaselineMean: 50,
		Multiplier:   1.7,
		Score:        3.5,
		DetectedAt:   time.Now(),
		Link:         "https://pulse.example/collection/mad_lads",
	}
}

func TestSink_Send(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		m, ok := c.(tgbotapi.MessageConfig)
		return ok && m.ChatID == -100123 && m.ParseMode == tgbotapi.ModeHTML
	})).Return(tgbotapi.Message{}, nil).Once()

	sink := NewSink(sender)
	require.NoError(t, sink.Send(context.Background(), "-100123", testMessage()))
	sender.AssertExpectations(t)
}

func TestSink_SendErrors(t *testing.T) {
	testCases := []struct {
		name          string
		recipient     string
		sendErr       error
		wantPermanent bool
	}{
		{
			name:          "非法 chat id",
			recipient:     "abc",
			wantPermanent: true,
		},
		{
			name:          "用户屏蔽 bot",
			recipient:     "1",
			sendErr:       &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
			wantPermanent: true,
		},
		{
			name:      "限流可以重试",
			recipient: "1",
			sendErr:   &tgbotapi.Error{Code: 429, Message: "Too Many Requests"},
		},
		{
			name:      "网络错误可以重试",
			recipient: "1",
			sendErr:   errors.New("connection reset"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sender := new(MockSender)
			sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, tc.sendErr)

			err := NewSink(sender).Send(context.Background(), tc.recipient, testMessage())
			require.Error(t, err)
			assert.Equal(t, tc.wantPermanent, errors.Is(err, retry.ErrPermanent))
		})
	}
}

type blockingSender struct {
	release chan struct{}
}

func (b *blockingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-b.release
	return tgbotapi.Message{}, nil
}

func TestSendWithContext_Timeout(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	defer close(sender.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := SendWithContext(ctx, sender, tgbotapi.NewMessage(1, "hi"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
