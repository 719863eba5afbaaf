package repo

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriberRepo interface {
	// Upsert 按 channelId 插入或更新阈值和状态
	Upsert(ctx context.Context, channelId string, threshold entity.SpikeLevel, active bool) error
	SetActive(ctx context.Context, channelId string, active bool) error
	ListActive(ctx context.Context) ([]entity.Subscriber, error)
	GetThreshold(ctx context.Context, channelId string) (entity.SpikeLevel, error)
}

type subscriberRepo struct {
	db *gorm.DB
}

func NewSubscriberRepo(db *gorm.DB) SubscriberRepo {
	return &subscriberRepo{
		db: db,
	}
}

func (r *subscriberRepo) Upsert(ctx context.Context, channelId string, threshold entity.SpikeLevel, active bool) error {
	now := time.Now().UTC()
	sub := entity.Subscriber{
		ChannelId: channelId,
		Threshold: threshold,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"threshold", "active", "updated_at"}),
	}).Create(&sub).Error
}

func (r *subscriberRepo) SetActive(ctx context.Context, channelId string, active bool) error {
	res := r.db.WithContext(ctx).Model(&entity.Subscriber{}).
		Where("channel_id = ?", channelId).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *subscriberRepo) ListActive(ctx context.Context) ([]entity.Subscriber, error) {
	var subs []entity.Subscriber
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriberRepo) GetThreshold(ctx context.Context, channelId string) (entity.SpikeLevel, error) {
	var sub entity.Subscriber
	err := r.db.WithContext(ctx).Where("channel_id = ?", channelId).First(&sub).Error
	if err != nil {
		return "", convertErr(err)
	}
	return sub.Threshold, nil
}
