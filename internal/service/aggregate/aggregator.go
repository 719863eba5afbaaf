package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/pkg/decimalx"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	shortWindow = time.Hour
	longWindow  = 24 * time.Hour
)

type Aggregator struct {
	cfg          Config
	saleRepo     repo.SaleRepo
	snapshotRepo repo.SnapshotRepo
	now          func() time.Time
}

type Option func(a *Aggregator)

// WithClock 测试时固定当前时间
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(cfg Config, saleRepo repo.SaleRepo, snapshotRepo repo.SnapshotRepo, opts ...Option) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	a := &Aggregator{
		cfg:          cfg,
		saleRepo:     saleRepo,
		snapshotRepo: snapshotRepo,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 为过去 24 小时有成交的每个 collection 追加一条快照, 单个失败不影响其他
func (a *Aggregator) Run(ctx context.Context) (Summary, error) {
	now := a.now()
	summary := Summary{
		RunId:     uuid.NewString(),
		Timestamp: now,
	}

	collections, err := a.saleRepo.ListCollectionsSince(ctx, now.Add(-longWindow))
	if err != nil {
		return summary, fmt.Errorf("list active collections: %w", err)
	}

	var aggregated, failed atomic.Int64
	eg := errgroup.Group{}
	eg.SetLimit(a.cfg.Concurrency)
	for _, collectionId := range collections {
		collectionId := collectionId
		if ctx.Err() != nil {
			failed.Add(1)
			continue
		}
		eg.Go(func() error {
			ok, err := a.aggregateOne(ctx, collectionId, now)
			if err != nil {
				slog.Error("failed to aggregate collection", "run", summary.RunId, "collection", collectionId, "error", err)
				failed.Add(1)
				return nil
			}
			if ok {
				aggregated.Add(1)
			}
			return nil
		})
	}
	_ = eg.Wait()

	summary.Aggregated = int(aggregated.Load())
	summary.Failed = int(failed.Load())
	slog.Info("aggregation finished", "run", summary.RunId, "aggregated", summary.Aggregated, "failed", summary.Failed)
	return summary, nil
}

func (a *Aggregator) aggregateOne(ctx context.Context, collectionId string, now time.Time) (bool, error) {
	sales, err := a.saleRepo.FindByCollectionSince(ctx, collectionId, now.Add(-longWindow))
	if err != nil {
		return false, fmt.Errorf("find sales: %w", err)
	}
	snapshot := BuildSnapshot(collectionId, sales, now)
	// 窗口 (now-24h, now] 内没有成交不写快照, 避免用 0 污染基线
	if snapshot.SalesCount24h == 0 {
		return false, nil
	}
	if _, err = a.snapshotRepo.Create(ctx, snapshot); err != nil {
		return false, fmt.Errorf("create snapshot: %w", err)
	}
	return true, nil
}

// BuildSnapshot 按 1h/24h 窗口统计成交, 窗口为 (now-window, now]
func BuildSnapshot(collectionId string, sales []entity.Sale, now time.Time) entity.Snapshot {
	inWindow := func(window time.Duration) []entity.Sale {
		from := now.Add(-window)
		return lo.Filter(sales, func(item entity.Sale, index int) bool {
			return item.Timestamp.After(from) && !item.Timestamp.After(now)
		})
	}
	price := func(item entity.Sale) decimal.Decimal {
		return item.PriceSol
	}

	short := inWindow(shortWindow)
	long := inWindow(longWindow)
	buyers := lo.Uniq(lo.FilterMap(short, func(item entity.Sale, index int) (string, bool) {
		return item.Buyer, item.Buyer != ""
	}))

	return entity.Snapshot{
		CollectionId:   collectionId,
		Volume1h:       decimalx.SumBy(short, price),
		Volume24h:      decimalx.SumBy(long, price),
		SalesCount1h:   len(short),
		SalesCount24h:  len(long),
		UniqueBuyers1h: len(buyers),
		SnapshotAt:     now,
	}
}
