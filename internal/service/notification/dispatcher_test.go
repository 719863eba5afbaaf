package notification

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// ============ Mock 定义 ============

type MockSubscriberRepo struct {
	mock.Mock
}

func (m *MockSubscriberRepo) Upsert(ctx context.Context, channelId string, threshold entity.SpikeLevel, active bool) error {
	args := m.Called(ctx, channelId, threshold, active)
	return args.Error(0)
}

func (m *MockSubscriberRepo) SetActive(ctx context.Context, channelId string, active bool) error {
	args := m.Called(ctx, channelId, active)
	return args.Error(0)
}

func (m *MockSubscriberRepo) ListActive(ctx context.Context) ([]entity.Subscriber, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepo) GetThreshold(ctx context.Context, channelId string) (entity.SpikeLevel, error) {
	args := m.Called(ctx, channelId)
	return args.Get(0).(entity.SpikeLevel), args.Error(1)
}

type MockWatchlistRepo struct {
	mock.Mock
}

func (m *MockWatchlistRepo) Add(ctx context.Context, channelId, collectionId string) error {
	args := m.Called(ctx, channelId, collectionId)
	return args.Error(0)
}

func (m *MockWatchlistRepo) Remove(ctx context.Context, channelId, collectionId string) error {
	args := m.Called(ctx, channelId, collectionId)
	return args.Error(0)
}

func (m *MockWatchlistRepo) List(ctx context.Context, channelId string) ([]string, error) {
	args := m.Called(ctx, channelId)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockWatchlistRepo) ListWatchers(ctx context.Context, collectionId string) ([]string, error) {
	args := m.Called(ctx, collectionId)
	return args.Get(0).([]string), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string {
	return "mock-chat"
}

func (m *MockSink) Send(ctx context.Context, recipientId string, msg Message) error {
	args := m.Called(ctx, recipientId, msg)
	return args.Error(0)
}

type MockChannelSink struct {
	MockSink
}

func (m *MockChannelSink) Name() string {
	return "mock-channel"
}

func (m *MockChannelSink) ResolveChannel(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

type MockFeed struct {
	mock.Mock
}

func (m *MockFeed) Name() string {
	return "mock-feed"
}

func (m *MockFeed) Publish(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// ============ 测试 ============

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry.BaseDelay = 0
	cfg.LinkBaseURL = "https://pulse.example"
	return cfg
}

func result(level entity.SpikeLevel) spike.Result {
	return spike.Result{
		CollectionId:   "mad_lads",
		Level:          level,
		Score:          3.5,
		CurrentValue:   85,
		BaselineMean:   50,
		BaselineStddev: 10,
		SpikeType:      entity.SpikeTypeVolume,
	}
}

var subscribers = []entity.Subscriber{
	{ChannelId: "spike-sub", Threshold: entity.LevelSpike, Active: true},
	{ChannelId: "extreme-sub", Threshold: entity.LevelExtreme, Active: true},
	{ChannelId: "elevated-sub", Threshold: entity.LevelElevated, Active: true},
}

func TestDispatcher_AudienceFilter(t *testing.T) {
	testCases := []struct {
		name  string
		level entity.SpikeLevel
		want  []string
	}{
		{
			name:  "elevated 只发给 elevated 订阅者",
			level: entity.LevelElevated,
			want:  []string{"elevated-sub"},
		},
		{
			name:  "spike 不发给 extreme 订阅者",
			level: entity.LevelSpike,
			want:  []string{"spike-sub", "elevated-sub"},
		},
		{
			name:  "extreme 发给所有人",
			level: entity.LevelExtreme,
			want:  []string{"spike-sub", "extreme-sub", "elevated-sub"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			subRepo := new(MockSubscriberRepo)
			watchRepo := new(MockWatchlistRepo)
			sink := new(MockSink)
			subRepo.On("ListActive", mock.Anything).Return(subscribers, nil)
			watchRepo.On("ListWatchers", mock.Anything, "mad_lads").Return([]string{}, nil)
			for _, id := range tc.want {
				sink.On("Send", mock.Anything, id, mock.Anything).Return(nil).Once()
			}

			d := NewDispatcher(testConfig(), subRepo, watchRepo, WithChatSink(sink))
			report := d.Dispatch(context.Background(), result(tc.level), "Mad Lads")

			assert.Equal(t, len(tc.want), report.Broadcast)
			assert.Equal(t, len(tc.want), report.Delivered())
			assert.Zero(t, report.Failed)
			sink.AssertExpectations(t)
			sink.AssertNumberOfCalls(t, "Send", len(tc.want))
		})
	}
}

func TestDispatcher_WatchlistOverride(t *testing.T) {
	subRepo := new(MockSubscriberRepo)
	watchRepo := new(MockWatchlistRepo)
	sink := new(MockSink)
	subRepo.On("ListActive", mock.Anything).Return(subscribers, nil)
	// elevated-sub 已经通过广播收到, 不重复发送
	watchRepo.On("ListWatchers", mock.Anything, "mad_lads").
		Return([]string{"extreme-sub", "elevated-sub", "inactive-watcher"}, nil)
	sink.On("Send", mock.Anything, "elevated-sub", mock.Anything).Return(nil).Once()
	sink.On("Send", mock.Anything, "extreme-sub", mock.Anything).Return(nil).Once()
	sink.On("Send", mock.Anything, "inactive-watcher", mock.Anything).Return(nil).Once()

	d := NewDispatcher(testConfig(), subRepo, watchRepo, WithChatSink(sink))
	report := d.Dispatch(context.Background(), result(entity.LevelElevated), "Mad Lads")

	assert.Equal(t, 1, report.Broadcast)
	assert.Equal(t, 2, report.Watchlist)
	assert.Equal(t, 3, report.Delivered())
	sink.AssertExpectations(t)
	sink.AssertNumberOfCalls(t, "Send", 3)
}

func TestDispatcher_PartialFailure(t *testing.T) {
	subRepo := new(MockSubscriberRepo)
	watchRepo := new(MockWatchlistRepo)
	sink := new(MockSink)
	subRepo.On("ListActive", mock.Anything).Return([]entity.Subscriber{
		{ChannelId: "a", Threshold: entity.LevelElevated, Active: true},
		{ChannelId: "b", Threshold: entity.LevelElevated, Active: true},
	}, nil)
	watchRepo.On("ListWatchers", mock.Anything, mock.Anything).Return([]string{}, nil)
	sink.On("Send", mock.Anything, "a", mock.Anything).Return(errors.New("chat not found"))
	sink.On("Send", mock.Anything, "b", mock.Anything).Return(nil)

	d := NewDispatcher(testConfig(), subRepo, watchRepo, WithChatSink(sink))
	report := d.Dispatch(context.Background(), result(entity.LevelSpike), "Mad Lads")

	assert.Equal(t, 1, report.Delivered())
	assert.Equal(t, 1, report.Failed)
	// 失败的接收方按重试次数尝试
	sink.AssertNumberOfCalls(t, "Send", testConfig().Retry.MaxAttempts+1)
}

func TestDispatcher_RetryThenSuccess(t *testing.T) {
	subRepo := new(MockSubscriberRepo)
	watchRepo := new(MockWatchlistRepo)
	sink := new(MockSink)
	subRepo.On("ListActive", mock.Anything).Return([]entity.Subscriber{
		{ChannelId: "a", Threshold: entity.LevelSpike, Active: true},
	}, nil)
	watchRepo.On("ListWatchers", mock.Anything, mock.Anything).Return([]string{}, nil)
	sink.On("Send", mock.Anything, "a", mock.Anything).Return(errors.New("timeout")).Once()
	sink.On("Send", mock.Anything, "a", mock.Anything).Return(nil).Once()

	d := NewDispatcher(testConfig(), subRepo, watchRepo, WithChatSink(sink))
	report := d.Dispatch(context.Background(), result(entity.LevelSpike), "Mad Lads")

	assert.Equal(t, 1, report.Broadcast)
	assert.Zero(t, report.Failed)
	sink.AssertExpectations(t)
}

func TestDispatcher_ListFailure(t *testing.T) {
	subRepo := new(MockSubscriberRepo)
	watchRepo := new(MockWatchlistRepo)
	sink := new(MockSink)
	subRepo.On("ListActive", mock.Anything).Return([]entity.Subscriber(nil), errors.New("db down"))
	watchRepo.On("ListWatchers", mock.Anything, mock.Anything).Return([]string{"w"}, nil)
	sink.On("Send", mock.Anything, "w", mock.Anything).Return(nil)

	d := NewDispatcher(testConfig(), subRepo, watchRepo, WithChatSink(sink))
	report := d.Dispatch(context.Background(), result(entity.LevelSpike), "Mad Lads")

	assert.Equal(t, 1, report.Watchlist)
	assert.Equal(t, 1, report.Failed)
}

func TestDispatcher_ChannelRouting(t *testing.T) {
	testCases := []struct {
		name        string
		level       entity.SpikeLevel
		mock        func(sink *MockChannelSink)
		wantChannel int
		wantFailed  int
	}{
		{
			name:  "按严重程度路由",
			level: entity.LevelSpike,
			mock: func(sink *MockChannelSink) {
				sink.On("ResolveChannel", mock.Anything, "alerts-spike").Return("111", nil)
				sink.On("Send", mock.Anything, "111", mock.Anything).Return(nil).Once()
			},
			wantChannel: 1,
		},
		{
			name:  "严重程度频道不存在时使用 fallback",
			level: entity.LevelExtreme,
			mock: func(sink *MockChannelSink) {
				sink.On("ResolveChannel", mock.Anything, "alerts-extreme").Return("", ErrChannelNotFound)
				sink.On("ResolveChannel", mock.Anything, "alerts").Return("999", nil)
				sink.On("Send", mock.Anything, "999", mock.Anything).Return(nil).Once()
			},
			wantChannel: 1,
		},
		{
			name:  "fallback 也不存在",
			level: entity.LevelElevated,
			mock: func(sink *MockChannelSink) {
				sink.On("ResolveChannel", mock.Anything, mock.Anything).Return("", ErrChannelNotFound)
			},
			wantFailed: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sink := new(MockChannelSink)
			tc.mock(sink)

			d := NewDispatcher(testConfig(), new(MockSubscriberRepo), new(MockWatchlistRepo), WithChannelSink(sink))
			report := d.Dispatch(context.Background(), result(tc.level), "Mad Lads")

			assert.Equal(t, tc.wantChannel, report.Channel)
			assert.Equal(t, tc.wantFailed, report.Failed)
			sink.AssertExpectations(t)
		})
	}
}

func TestDispatcher_Feed(t *testing.T) {
	feed := new(MockFeed)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	feed.On("Publish", mock.Anything, mock.MatchedBy(func(msg Message) bool {
		return msg.CollectionId == "mad_lads" &&
			msg.DisplayName == "Mad Lads" &&
			msg.Link == "https://pulse.example/collection/mad_lads" &&
			msg.DetectedAt.Equal(now)
	})).Return(nil).Once()

	d := NewDispatcher(testConfig(), new(MockSubscriberRepo), new(MockWatchlistRepo),
		WithFeed(feed), WithClock(func() time.Time { return now }))
	report := d.Dispatch(context.Background(), result(entity.LevelSpike), "Mad Lads")

	assert.Equal(t, 1, report.Feed)
	feed.AssertExpectations(t)
}

func TestDispatcher_CanceledContext(t *testing.T) {
	subRepo := new(MockSubscriberRepo)
	watchRepo := new(MockWatchlistRepo)
	sink := new(MockSink)
	subRepo.On("ListActive", mock.Anything).Return(subscribers, nil)
	watchRepo.On("ListWatchers", mock.Anything, mock.Anything).Return([]string{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDispatcher(testConfig(), subRepo, watchRepo, WithChatSink(sink))
	report := d.Dispatch(ctx, result(entity.LevelExtreme), "Mad Lads")

	assert.Zero(t, report.Delivered())
	assert.Equal(t, 3, report.Failed)
	sink.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageFormat(t *testing.T) {
	res := result(entity.LevelExtreme)
	res.BaselineMean = 0
	res.Score = math.Inf(1)
	msg := NewMessage(res, "", "https://pulse.example/", time.Now())

	assert.Equal(t, "mad_lads", msg.DisplayName)
	assert.Equal(t, "∞", msg.MultiplierText())
	assert.Equal(t, "∞", msg.ScoreText())
	assert.Equal(t, "EXTREME - mad_lads\nVolume: 85.0 SOL (∞x baseline)\nZ-Score: ∞", msg.Text())
	assert.Contains(t, msg.HTML(), `<a href="https://pulse.example/collection/mad_lads">mad_lads</a>`)
	assert.Equal(t, "🚨", msg.Emoji())
	assert.Equal(t, 0xef4444, msg.Color())

	data, err := msg.MarshalJSON()
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"multiplier":null`)
	assert.Contains(t, string(data), `"level":"extreme"`)

	msg = NewMessage(result(entity.LevelSpike), "Mad <Lads>", "", time.Now())
	assert.Equal(t, "1.7", msg.MultiplierText())
	assert.Equal(t, "3.5", msg.ScoreText())
	assert.Empty(t, msg.Link)
	assert.Contains(t, msg.HTML(), "Mad &lt;Lads&gt;")
}
