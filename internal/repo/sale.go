package repo

import (
	"context"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepo interface {
	// InsertIfAbsent 按 signature 幂等写入, 重复时 inserted=false 且不返回错误
	InsertIfAbsent(ctx context.Context, sale entity.Sale) (inserted bool, err error)
	ListCollectionsSince(ctx context.Context, since time.Time) ([]string, error)
	FindByCollectionSince(ctx context.Context, collectionId string, since time.Time) ([]entity.Sale, error)
	// FindCollectionByMint 该 mint 最近一笔成交所属的 collection
	FindCollectionByMint(ctx context.Context, mint string) (string, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepo {
	return &saleRepo{
		db: db,
	}
}

func (r *saleRepo) InsertIfAbsent(ctx context.Context, sale entity.Sale) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signature"}},
		DoNothing: true,
	}).Create(&sale)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *saleRepo) ListCollectionsSince(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.Sale{}).
		Where("timestamp > ?", since).
		Distinct().
		Order("collection_id").
		Pluck("collection_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *saleRepo) FindByCollectionSince(ctx context.Context, collectionId string, since time.Time) ([]entity.Sale, error) {
	var sales []entity.Sale
	err := r.db.WithContext(ctx).
		Where("collection_id = ? AND timestamp > ?", collectionId, since).
		Order("timestamp").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepo) FindCollectionByMint(ctx context.Context, mint string) (string, error) {
	var sale entity.Sale
	err := r.db.WithContext(ctx).
		Where("mint = ? AND collection_id <> ''", mint).
		Order("timestamp DESC").
		First(&sale).Error
	if err != nil {
		return "", convertErr(err)
	}
	return sale.CollectionId, nil
}
