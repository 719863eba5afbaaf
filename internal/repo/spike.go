package repo

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"gorm.io/gorm"
)

type SpikeRepo interface {
	Create(ctx context.Context, spike entity.Spike) (int64, error)
	FindRecent(ctx context.Context, collectionId string, limit int) ([]entity.Spike, error)
	FindSince(ctx context.Context, since time.Time, limit int) ([]entity.Spike, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// MarkAlerted 按主键标记, 并发检测同一 collection 时不会标错行
	MarkAlerted(ctx context.Context, id int64) error
}

type spikeRepo struct {
	db *gorm.DB
}

func NewSpikeRepo(db *gorm.DB) SpikeRepo {
	return &spikeRepo{
		db: db,
	}
}

func (r *spikeRepo) Create(ctx context.Context, spike entity.Spike) (int64, error) {
	err := r.db.WithContext(ctx).Create(&spike).Error
	if err != nil {
		return 0, err
	}
	return spike.Id, nil
}

func (r *spikeRepo) FindRecent(ctx context.Context, collectionId string, limit int) ([]entity.Spike, error) {
	var spikes []entity.Spike
	err := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionId).
		Order("detected_at DESC").Order("id DESC").
		Limit(limit).
		Find(&spikes).Error
	if err != nil {
		return nil, err
	}
	return spikes, nil
}

func (r *spikeRepo) FindSince(ctx context.Context, since time.Time, limit int) ([]entity.Spike, error) {
	var spikes []entity.Spike
	err := r.db.WithContext(ctx).
		Where("detected_at > ?", since).
		Order("detected_at DESC").Order("id DESC").
		Limit(limit).
		Find(&spikes).Error
	if err != nil {
		return nil, err
	}
	return spikes, nil
}

func (r *spikeRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Spike{}).
		Where("detected_at > ?", since).
		Count(&count).Error
	return count, err
}

func (r *spikeRepo) MarkAlerted(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&entity.Spike{}).Where("id = ?", id).Update("alerted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
