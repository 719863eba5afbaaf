package repo

import (
	"errors"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Sale{},
		&entity.Snapshot{},
		&entity.Spike{},
		&entity.Subscriber{},
		&entity.WatchlistEntry{},
		&entity.Collection{},
	)
}

// convertErr 统一把 gorm 的 not found 转成 ErrNotFound
func convertErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
