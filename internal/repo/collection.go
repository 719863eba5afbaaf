package repo

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CollectionRepo interface {
	Upsert(ctx context.Context, collection entity.Collection) error
	FindById(ctx context.Context, id string) (entity.Collection, error)
}

type collectionRepo struct {
	db *gorm.DB
}

func NewCollectionRepo(db *gorm.DB) CollectionRepo {
	return &collectionRepo{
		db: db,
	}
}

func (r *collectionRepo) Upsert(ctx context.Context, collection entity.Collection) error {
	collection.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "image_url", "updated_at"}),
	}).Create(&collection).Error
}

func (r *collectionRepo) FindById(ctx context.Context, id string) (entity.Collection, error) {
	var collection entity.Collection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&collection).Error
	if err != nil {
		return entity.Collection{}, convertErr(err)
	}
	return collection, nil
}
