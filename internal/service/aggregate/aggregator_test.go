package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/pkg/decimalx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============ Mock 定义 ============

type MockSaleRepo struct {
	mock.Mock
}

func (m *MockSaleRepo) InsertIfAbsent(ctx context.Context, sale entity.Sale) (bool, error) {
	args := m.Called(ctx, sale)
	return args.Bool(0), args.Error(1)
}

func (m *MockSaleRepo) ListCollectionsSince(ctx context.Context, since time.Time) ([]string, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSaleRepo) FindByCollectionSince(ctx context.Context, collectionId string, since time.Time) ([]entity.Sale, error) {
	args := m.Called(ctx, collectionId, since)
	return args.Get(0).([]entity.Sale), args.Error(1)
}

func (m *MockSaleRepo) FindCollectionByMint(ctx context.Context, mint string) (string, error) {
	args := m.Called(ctx, mint)
	return args.String(0), args.Error(1)
}

type MockSnapshotRepo struct {
	mock.Mock
}

func (m *MockSnapshotRepo) Create(ctx context.Context, snapshot entity.Snapshot) (int64, error) {
	args := m.Called(ctx, snapshot)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSnapshotRepo) LatestSince(ctx context.Context, since time.Time) ([]entity.Snapshot, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]entity.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepo) FindWindow(ctx context.Context, collectionId string, from, to time.Time, limit int) ([]entity.Snapshot, error) {
	args := m.Called(ctx, collectionId, from, to, limit)
	return args.Get(0).([]entity.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepo) FindRecent(ctx context.Context, collectionId string, limit int) ([]entity.Snapshot, error) {
	args := m.Called(ctx, collectionId, limit)
	return args.Get(0).([]entity.Snapshot), args.Error(1)
}

// ============ 测试 ============

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sale(buyer, price string, ago time.Duration) entity.Sale {
	return entity.Sale{
		CollectionId: "mad_lads",
		Buyer:        buyer,
		PriceSol:     decimalx.MustFromString(price),
		Timestamp:    now.Add(-ago),
	}
}

func TestBuildSnapshot(t *testing.T) {
	sales := []entity.Sale{
		sale("alice", "10", 10*time.Minute),
		sale("bob", "5.5", 30*time.Minute),
		sale("alice", "2", 59*time.Minute),
		sale("carol", "100", 2*time.Hour),
		sale("dave", "1", 23*time.Hour),
		sale("", "3", 20*time.Minute),
	}

	snapshot := BuildSnapshot("mad_lads", sales, now)
	assert.Equal(t, "mad_lads", snapshot.CollectionId)
	assert.Equal(t, "20.5", snapshot.Volume1h.String())
	assert.Equal(t, "121.5", snapshot.Volume24h.String())
	assert.Equal(t, 4, snapshot.SalesCount1h)
	assert.Equal(t, 6, snapshot.SalesCount24h)
	assert.Equal(t, 2, snapshot.UniqueBuyers1h)
	assert.Equal(t, now, snapshot.SnapshotAt)
}

func TestAggregator_Run(t *testing.T) {
	errDB := errors.New("db down")

	testCases := []struct {
		name           string
		mock           func(sales *MockSaleRepo, snapshots *MockSnapshotRepo)
		wantAggregated int
		wantFailed     int
		wantErr        bool
	}{
		{
			name: "正常聚合",
			mock: func(sales *MockSaleRepo, snapshots *MockSnapshotRepo) {
				sales.On("ListCollectionsSince", mock.Anything, now.Add(-24*time.Hour)).
					Return([]string{"a", "b"}, nil)
				sales.On("FindByCollectionSince", mock.Anything, "a", now.Add(-24*time.Hour)).
					Return([]entity.Sale{sale("x", "1", time.Minute)}, nil)
				sales.On("FindByCollectionSince", mock.Anything, "b", now.Add(-24*time.Hour)).
					Return([]entity.Sale{sale("y", "2", 2*time.Hour)}, nil)
				snapshots.On("Create", mock.Anything, mock.MatchedBy(func(s entity.Snapshot) bool {
					return s.SnapshotAt.Equal(now)
				})).Return(int64(1), nil).Twice()
			},
			wantAggregated: 2,
		},
		{
			name: "24 小时无成交不写快照",
			mock: func(sales *MockSaleRepo, snapshots *MockSnapshotRepo) {
				sales.On("ListCollectionsSince", mock.Anything, mock.Anything).
					Return([]string{"quiet"}, nil)
				sales.On("FindByCollectionSince", mock.Anything, "quiet", mock.Anything).
					Return([]entity.Sale{}, nil)
			},
		},
		{
			name: "只有未来时间的成交不写快照",
			mock: func(sales *MockSaleRepo, snapshots *MockSnapshotRepo) {
				sales.On("ListCollectionsSince", mock.Anything, mock.Anything).
					Return([]string{"skewed"}, nil)
				sales.On("FindByCollectionSince", mock.Anything, "skewed", mock.Anything).
					Return([]entity.Sale{sale("x", "7", -2*time.Hour)}, nil)
			},
		},
		{
			name: "单个失败不影响其他",
			mock: func(sales *MockSaleRepo, snapshots *MockSnapshotRepo) {
				sales.On("ListCollectionsSince", mock.Anything, mock.Anything).
					Return([]string{"a", "b", "c"}, nil)
				sales.On("FindByCollectionSince", mock.Anything, "a", mock.Anything).
					Return([]entity.Sale(nil), errDB)
				sales.On("FindByCollectionSince", mock.Anything, "b", mock.Anything).
					Return([]entity.Sale{sale("x", "1", time.Minute)}, nil)
				sales.On("FindByCollectionSince", mock.Anything, "c", mock.Anything).
					Return([]entity.Sale{sale("y", "1", time.Minute)}, nil)
				snapshots.On("Create", mock.Anything, mock.MatchedBy(func(s entity.Snapshot) bool {
					return s.CollectionId == "b"
				})).Return(int64(0), errDB).Once()
				snapshots.On("Create", mock.Anything, mock.Anything).Return(int64(2), nil)
			},
			wantAggregated: 1,
			wantFailed:     2,
		},
		{
			name: "列出 collection 失败",
			mock: func(sales *MockSaleRepo, snapshots *MockSnapshotRepo) {
				sales.On("ListCollectionsSince", mock.Anything, mock.Anything).
					Return([]string(nil), errDB)
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sales := new(MockSaleRepo)
			snapshots := new(MockSnapshotRepo)
			tc.mock(sales, snapshots)

			agg := NewAggregator(Config{Concurrency: 1}, sales, snapshots, WithClock(func() time.Time {
				return now
			}))
			summary, err := agg.Run(context.Background())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAggregated, summary.Aggregated)
			assert.Equal(t, tc.wantFailed, summary.Failed)
			assert.NotEmpty(t, summary.RunId)
			assert.Equal(t, now, summary.Timestamp)
			sales.AssertExpectations(t)
			snapshots.AssertExpectations(t)
		})
	}
}

func TestSummary_AllFailed(t *testing.T) {
	assert.False(t, Summary{}.AllFailed())
	assert.True(t, Summary{Failed: 2}.AllFailed())
	assert.False(t, Summary{Failed: 2, Aggregated: 1}.AllFailed())
}
