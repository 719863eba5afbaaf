package repo

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchlistRepo interface {
	// Add 重复添加不报错
	Add(ctx context.Context, channelId, collectionId string) error
	Remove(ctx context.Context, channelId, collectionId string) error
	List(ctx context.Context, channelId string) ([]string, error)
	ListWatchers(ctx context.Context, collectionId string) ([]string, error)
}

type watchlistRepo struct {
	db *gorm.DB
}

func NewWatchlistRepo(db *gorm.DB) WatchlistRepo {
	return &watchlistRepo{
		db: db,
	}
}

func (r *watchlistRepo) Add(ctx context.Context, channelId, collectionId string) error {
	entry := entity.WatchlistEntry{
		ChannelId:    channelId,
		CollectionId: collectionId,
		CreatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "collection_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

func (r *watchlistRepo) Remove(ctx context.Context, channelId, collectionId string) error {
	res := r.db.WithContext(ctx).
		Where("channel_id = ? AND collection_id = ?", channelId, collectionId).
		Delete(&entity.WatchlistEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *watchlistRepo) List(ctx context.Context, channelId string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.WatchlistEntry{}).
		Where("channel_id = ?", channelId).
		Order("collection_id").
		Pluck("collection_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *watchlistRepo) ListWatchers(ctx context.Context, collectionId string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.WatchlistEntry{}).
		Where("collection_id = ?", collectionId).
		Order("channel_id").
		Pluck("channel_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
