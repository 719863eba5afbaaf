package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
	"github.com/Snack-JPG/nft-pulse/pkg/retry"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

var ErrChannelNotFound = errors.New("channel not found")

type path int

const (
	pathBroadcast path = iota
	pathWatchlist
	pathChannel
	pathFeed
)

type delivery struct {
	path path
	err  error
}

type job struct {
	path   path
	target string
	send   func(ctx context.Context) error
}

type Dispatcher struct {
	cfg       Config
	policy    retry.Policy
	subRepo   repo.SubscriberRepo
	watchRepo repo.WatchlistRepo

	chatSink     Sink
	channelSinks []ChannelSink
	feeds        []Feed

	now func() time.Time
}

type Option func(d *Dispatcher)

// WithChatSink 订阅者与 watchlist 使用的点对点渠道
func WithChatSink(sink Sink) Option {
	return func(d *Dispatcher) {
		d.chatSink = sink
	}
}

func WithChannelSink(sink ChannelSink) Option {
	return func(d *Dispatcher) {
		d.channelSinks = append(d.channelSinks, sink)
	}
}

func WithFeed(feed Feed) Option {
	return func(d *Dispatcher) {
		d.feeds = append(d.feeds, feed)
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(cfg Config, subRepo repo.SubscriberRepo, watchRepo repo.WatchlistRepo, opts ...Option) *Dispatcher {
	if cfg.Fanout <= 0 {
		cfg.Fanout = 1
	}
	d := &Dispatcher{
		cfg: cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			Label:       "alert delivery",
		},
		subRepo:   subRepo,
		watchRepo: watchRepo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch 尽力送达所有受众, 单个失败只计数不返回错误
func (d *Dispatcher) Dispatch(ctx context.Context, res spike.Result, displayName string) Report {
	msg := NewMessage(res, displayName, d.cfg.LinkBaseURL, d.now())

	var report Report
	jobs := d.chatJobs(ctx, msg, &report)
	for _, sink := range d.channelSinks {
		jobs = append(jobs, d.channelJob(sink, msg))
	}
	for _, feed := range d.feeds {
		feed := feed
		jobs = append(jobs, job{
			path:   pathFeed,
			target: feed.Name(),
			send: func(ctx context.Context) error {
				return feed.Publish(ctx, msg)
			},
		})
	}

	p := pool.NewWithResults[delivery]().WithMaxGoroutines(d.cfg.Fanout)
	for _, j := range jobs {
		j := j
		p.Go(func() delivery {
			return delivery{path: j.path, err: d.deliver(ctx, msg, j)}
		})
	}

	for _, res := range p.Wait() {
		if res.err != nil {
			report.Failed++
			continue
		}
		switch res.path {
		case pathBroadcast:
			report.Broadcast++
		case pathWatchlist:
			report.Watchlist++
		case pathChannel:
			report.Channel++
		case pathFeed:
			report.Feed++
		}
	}
	slog.Info("spike alert dispatched", "collection", msg.CollectionId, "level", msg.Level,
		"delivered", report.Delivered(), "failed", report.Failed)
	return report
}

// chatJobs 广播按阈值过滤, watchlist 忽略阈值, 同一 chat 只发一次
func (d *Dispatcher) chatJobs(ctx context.Context, msg Message, report *Report) []job {
	if d.chatSink == nil {
		return nil
	}

	subs, err := d.subRepo.ListActive(ctx)
	if err != nil {
		slog.Error("failed to list active subscribers", "collection", msg.CollectionId, "error", err)
		report.Failed++
	}
	broadcast := lo.FilterMap(subs, func(item entity.Subscriber, index int) (string, bool) {
		threshold := item.Threshold
		if !threshold.Valid() {
			threshold = entity.DefaultThreshold
		}
		return item.ChannelId, msg.Level.AtLeast(threshold)
	})
	broadcast = lo.Uniq(broadcast)

	watchers, err := d.watchRepo.ListWatchers(ctx, msg.CollectionId)
	if err != nil {
		slog.Error("failed to list watchers", "collection", msg.CollectionId, "error", err)
		report.Failed++
	}
	reached := lo.SliceToMap(broadcast, func(item string) (string, struct{}) {
		return item, struct{}{}
	})
	watchers = lo.Uniq(lo.Reject(watchers, func(item string, index int) bool {
		_, ok := reached[item]
		return ok
	}))

	jobs := make([]job, 0, len(broadcast)+len(watchers))
	for _, chatId := range broadcast {
		jobs = append(jobs, d.chatJob(pathBroadcast, chatId, msg))
	}
	for _, chatId := range watchers {
		jobs = append(jobs, d.chatJob(pathWatchlist, chatId, msg))
	}
	return jobs
}

func (d *Dispatcher) chatJob(p path, chatId string, msg Message) job {
	return job{
		path:   p,
		target: chatId,
		send: func(ctx context.Context) error {
			return d.chatSink.Send(ctx, chatId, msg)
		},
	}
}

// channelJob 先找严重程度对应的频道, 找不到时使用 fallback
func (d *Dispatcher) channelJob(sink ChannelSink, msg Message) job {
	return job{
		path:   pathChannel,
		target: sink.Name(),
		send: func(ctx context.Context) error {
			channelId, err := d.resolveChannel(ctx, sink, msg.Level)
			if errors.Is(err, ErrChannelNotFound) {
				return retry.Permanent(err)
			}
			if err != nil {
				return err
			}
			return sink.Send(ctx, channelId, msg)
		},
	}
}

func (d *Dispatcher) resolveChannel(ctx context.Context, sink ChannelSink, level entity.SpikeLevel) (string, error) {
	name := d.cfg.Channels.ForLevel(level)
	if name != "" {
		channelId, err := sink.ResolveChannel(ctx, name)
		if err == nil {
			return channelId, nil
		}
		slog.Warn("severity channel unavailable, using fallback", "sink", sink.Name(), "channel", name, "error", err)
	}
	if d.cfg.Channels.Fallback == "" {
		return "", fmt.Errorf("resolve %q: %w", name, ErrChannelNotFound)
	}
	return sink.ResolveChannel(ctx, d.cfg.Channels.Fallback)
}

// deliver 每次尝试单独计算超时
func (d *Dispatcher) deliver(ctx context.Context, msg Message, j job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		if d.cfg.SendTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.cfg.SendTimeout)
			defer cancel()
		}
		return j.send(ctx)
	})
	if err != nil {
		slog.Error("failed to deliver spike alert", "collection", msg.CollectionId, "target", j.target, "error", err)
	}
	return err
}
