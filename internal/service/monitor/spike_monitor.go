package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
	"github.com/Snack-JPG/nft-pulse/pkg/decimalx"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type SpikeMonitor struct {
	cfg        Config
	classifier Classifier
	dispatcher Dispatcher

	snapshotRepo   repo.SnapshotRepo
	spikeRepo      repo.SpikeRepo
	collectionRepo repo.CollectionRepo

	now func() time.Time
}

type Option func(m *SpikeMonitor)

func WithClock(now func() time.Time) Option {
	return func(m *SpikeMonitor) {
		m.now = now
	}
}

func NewSpikeMonitor(cfg Config, classifier Classifier, dispatcher Dispatcher,
	snapshotRepo repo.SnapshotRepo, spikeRepo repo.SpikeRepo, collectionRepo repo.CollectionRepo, opts ...Option) *SpikeMonitor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BaselineWindowDays <= 0 {
		cfg.BaselineWindowDays = DefaultConfig().BaselineWindowDays
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = DefaultConfig().RecencyWindow
	}
	m := &SpikeMonitor{
		cfg:            cfg,
		classifier:     classifier,
		dispatcher:     dispatcher,
		snapshotRepo:   snapshotRepo,
		spikeRepo:      spikeRepo,
		collectionRepo: collectionRepo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type outcome struct {
	spiked bool
	sent   int
}

// Run 对最近有快照的 collection 逐个检测, 不同 collection 并发, 单个 collection 内顺序执行
func (m *SpikeMonitor) Run(ctx context.Context) (Summary, error) {
	now := m.now()
	summary := Summary{
		RunId:     uuid.NewString(),
		Timestamp: now,
	}

	latest, err := m.snapshotRepo.LatestSince(ctx, now.Add(-m.cfg.RecencyWindow))
	if err != nil {
		return summary, fmt.Errorf("latest snapshots: %w", err)
	}
	summary.Checked = len(latest)

	var spikes, sent, failed atomic.Int64
	eg := errgroup.Group{}
	eg.SetLimit(m.cfg.Concurrency)
	for _, snapshot := range latest {
		snapshot := snapshot
		if ctx.Err() != nil {
			failed.Add(1)
			continue
		}
		eg.Go(func() error {
			res, err := m.detect(ctx, snapshot, now)
			if err != nil {
				slog.Error("failed to detect collection spike", "run", summary.RunId,
					"collection", snapshot.CollectionId, "error", err)
				failed.Add(1)
			}
			if res.spiked {
				spikes.Add(1)
			}
			sent.Add(int64(res.sent))
			return nil
		})
	}
	_ = eg.Wait()

	summary.Spikes = int(spikes.Load())
	summary.AlertsSent = int(sent.Load())
	summary.Failed = int(failed.Load())
	slog.Info("spike detection finished", "run", summary.RunId, "checked", summary.Checked,
		"spikes", summary.Spikes, "alerts_sent", summary.AlertsSent, "failed", summary.Failed)
	return summary, nil
}

func (m *SpikeMonitor) detect(ctx context.Context, snapshot entity.Snapshot, now time.Time) (outcome, error) {
	days := m.cfg.BaselineWindowDays
	window, err := m.snapshotRepo.FindWindow(ctx, snapshot.CollectionId,
		now.Add(-time.Duration(days)*24*time.Hour), now.Add(-time.Hour), days*24)
	if err != nil {
		return outcome{}, fmt.Errorf("baseline window: %w", err)
	}

	values := decimalx.Floats(lo.Map(window, func(item entity.Snapshot, index int) decimal.Decimal {
		return item.Volume1h
	}))
	baseline := spike.ComputeBaseline(values)
	res, ok := m.classifier.Classify(snapshot.CollectionId, decimalx.Float(snapshot.Volume1h),
		snapshot.SalesCount1h, baseline, entity.SpikeTypeVolume)
	if !ok {
		return outcome{}, nil
	}

	// 先落库再通知
	id, err := m.spikeRepo.Create(ctx, entity.Spike{
		CollectionId:   res.CollectionId,
		SpikeType:      res.SpikeType,
		Level:          res.Level,
		CurrentValue:   res.CurrentValue,
		BaselineValue:  res.BaselineMean,
		BaselineStddev: res.BaselineStddev,
		Multiplier:     entity.FiniteOrNil(res.Multiplier()),
		Score:          entity.FiniteOrNil(res.Score),
		DetectedAt:     now,
	})
	if err != nil {
		return outcome{spiked: true}, fmt.Errorf("save spike: %w", err)
	}
	slog.Info("volume spike detected", "collection", res.CollectionId, "level", res.Level,
		"score", res.Score, "current", res.CurrentValue, "baseline", res.BaselineMean)

	report := m.dispatcher.Dispatch(ctx, res, m.displayName(ctx, res.CollectionId))

	// 已尝试分发即标记, 即使没有送达
	if err = m.spikeRepo.MarkAlerted(ctx, id); err != nil {
		return outcome{spiked: true, sent: report.Delivered()}, fmt.Errorf("mark spike %d alerted: %w", id, err)
	}
	return outcome{spiked: true, sent: report.Delivered()}, nil
}

func (m *SpikeMonitor) displayName(ctx context.Context, collectionId string) string {
	collection, err := m.collectionRepo.FindById(ctx, collectionId)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			slog.Warn("failed to resolve collection name", "collection", collectionId, "error", err)
		}
		return collectionId
	}
	return collection.DisplayName()
}
