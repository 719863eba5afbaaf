package web

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/service/aggregate"
	"github.com/Snack-JPG/nft-pulse/internal/service/ingest"
	"github.com/Snack-JPG/nft-pulse/internal/service/leaderboard"
	"github.com/Snack-JPG/nft-pulse/internal/service/monitor"
	"github.com/stretchr/testify/mock"
)

type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) Run(ctx context.Context) (aggregate.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(aggregate.Summary), args.Error(1)
}

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Run(ctx context.Context) (monitor.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.Summary), args.Error(1)
}

type MockTopMovers struct {
	mock.Mock
}

func (m *MockTopMovers) Publish(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type MockBoard struct {
	mock.Mock
}

func (m *MockBoard) Top(ctx context.Context, limit int) ([]leaderboard.Mover, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]leaderboard.Mover), args.Error(1)
}

type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) Ingest(ctx context.Context, inputs []ingest.SaleInput) ingest.Summary {
	args := m.Called(ctx, inputs)
	return args.Get(0).(ingest.Summary)
}

type MockSpikeRepo struct {
	mock.Mock
}

func (m *MockSpikeRepo) Create(ctx context.Context, s entity.Spike) (int64, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSpikeRepo) FindRecent(ctx context.Context, collectionId string, limit int) ([]entity.Spike, error) {
	args := m.Called(ctx, collectionId, limit)
	return args.Get(0).([]entity.Spike), args.Error(1)
}

func (m *MockSpikeRepo) FindSince(ctx context.Context, since time.Time, limit int) ([]entity.Spike, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]entity.Spike), args.Error(1)
}

func (m *MockSpikeRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSpikeRepo) MarkAlerted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
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

type MockCollectionRepo struct {
	mock.Mock
}

func (m *MockCollectionRepo) Upsert(ctx context.Context, collection entity.Collection) error {
	args := m.Called(ctx, collection)
	return args.Error(0)
}

func (m *MockCollectionRepo) FindById(ctx context.Context, id string) (entity.Collection, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.Collection), args.Error(1)
}
