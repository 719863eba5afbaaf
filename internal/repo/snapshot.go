package repo

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type SnapshotRepo interface {
	Create(ctx context.Context, snapshot entity.Snapshot) (int64, error)
	// LatestSince 每个 collection 在 since 之后最新的一条快照
	LatestSince(ctx context.Context, since time.Time) ([]entity.Snapshot, error)
	// FindWindow (from, to) 区间内的快照, 按时间倒序, 最多 limit 条
	FindWindow(ctx context.Context, collectionId string, from, to time.Time, limit int) ([]entity.Snapshot, error)
	FindRecent(ctx context.Context, collectionId string, limit int) ([]entity.Snapshot, error)
}

type snapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) SnapshotRepo {
	return &snapshotRepo{
		db: db,
	}
}

func (r *snapshotRepo) Create(ctx context.Context, snapshot entity.Snapshot) (int64, error) {
	err := r.db.WithContext(ctx).Create(&snapshot).Error
	if err != nil {
		return 0, err
	}
	return snapshot.Id, nil
}

func (r *snapshotRepo) LatestSince(ctx context.Context, since time.Time) ([]entity.Snapshot, error) {
	var snapshots []entity.Snapshot
	// DISTINCT ON 只有 postgres 支持, 这里排序后在内存里去重
	err := r.db.WithContext(ctx).
		Where("snapshot_at > ?", since).
		Order("collection_id").Order("snapshot_at DESC").Order("id DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return lo.UniqBy(snapshots, func(item entity.Snapshot) string {
		return item.CollectionId
	}), nil
}

func (r *snapshotRepo) FindWindow(ctx context.Context, collectionId string, from, to time.Time, limit int) ([]entity.Snapshot, error) {
	var snapshots []entity.Snapshot
	err := r.db.WithContext(ctx).
		Where("collection_id = ? AND snapshot_at > ? AND snapshot_at < ?", collectionId, from, to).
		Order("snapshot_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *snapshotRepo) FindRecent(ctx context.Context, collectionId string, limit int) ([]entity.Snapshot, error) {
	var snapshots []entity.Snapshot
	err := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionId).
		Order("snapshot_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
