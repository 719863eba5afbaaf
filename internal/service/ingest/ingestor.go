package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/repo"
	"github.com/Snack-JPG/nft-pulse/pkg/cache"
	"gorm.io/datatypes"
)

const mintCacheTTL = time.Hour

type Ingestor struct {
	saleRepo       repo.SaleRepo
	collectionRepo repo.CollectionRepo
	mints          cache.Cache
}

func NewIngestor(saleRepo repo.SaleRepo, collectionRepo repo.CollectionRepo, mints cache.Cache) *Ingestor {
	return &Ingestor{
		saleRepo:       saleRepo,
		collectionRepo: collectionRepo,
		mints:          mints,
	}
}

// Ingest 逐条校验并幂等写入, 坏数据只拒绝当前条
func (i *Ingestor) Ingest(ctx context.Context, inputs []SaleInput) Summary {
	summary := Summary{Received: len(inputs)}
	named := make(map[string]struct{})

	for idx, in := range inputs {
		if ctx.Err() != nil {
			summary.Failed += len(inputs) - idx
			break
		}
		sale, err := i.normalize(ctx, in)
		if err != nil && !errors.Is(err, ErrInvalidSale) {
			slog.Error("failed to normalize sale", "signature", in.Signature, "error", err)
			summary.Failed++
			continue
		}
		if err != nil {
			summary.Rejected++
			summary.Rejections = append(summary.Rejections, Rejection{
				Index:     idx,
				Signature: in.Signature,
				Reason:    err.Error(),
			})
			continue
		}

		inserted, err := i.saleRepo.InsertIfAbsent(ctx, sale)
		if err != nil {
			slog.Error("failed to insert sale", "signature", sale.Signature, "collection", sale.CollectionId, "error", err)
			summary.Failed++
			continue
		}
		if !inserted {
			summary.Duplicates++
			continue
		}
		summary.Inserted++

		if sale.Mint != "" && in.CollectionId != "" {
			if err = i.mints.Set(ctx, mintKey(sale.Mint), sale.CollectionId, mintCacheTTL); err != nil {
				slog.Warn("failed to cache mint collection", "mint", sale.Mint, "collection", sale.CollectionId, "error", err)
			}
		}
		if _, ok := named[sale.CollectionId]; in.CollectionName != "" && !ok {
			named[sale.CollectionId] = struct{}{}
			err = i.collectionRepo.Upsert(ctx, entity.Collection{Id: sale.CollectionId, Name: in.CollectionName})
			if err != nil {
				slog.Warn("failed to upsert collection name", "collection", sale.CollectionId, "error", err)
			}
		}
	}
	slog.Info("sales ingested", "received", summary.Received, "inserted", summary.Inserted,
		"duplicates", summary.Duplicates, "rejected", summary.Rejected, "failed", summary.Failed)
	return summary
}

func (i *Ingestor) normalize(ctx context.Context, in SaleInput) (entity.Sale, error) {
	if err := Validate(in); err != nil {
		return entity.Sale{}, err
	}
	collectionId, err := i.resolveCollection(ctx, in)
	if err != nil {
		return entity.Sale{}, err
	}
	sale := entity.Sale{
		Signature:    in.Signature,
		CollectionId: collectionId,
		Marketplace:  MapMarketplace(in.Marketplace),
		PriceSol:     in.PriceSol,
		Buyer:        in.Buyer,
		Seller:       in.Seller,
		Mint:         in.Mint,
		Timestamp:    in.Timestamp.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if len(in.Raw) > 0 {
		sale.Raw = datatypes.JSON(in.Raw)
	}
	return sale, nil
}

// resolveCollection 没有 collection id 时通过 mint 反查, 结果缓存
func (i *Ingestor) resolveCollection(ctx context.Context, in SaleInput) (string, error) {
	if in.CollectionId != "" {
		return in.CollectionId, nil
	}
	collectionId, err := cache.GetOrRefresh(ctx, i.mints, mintKey(in.Mint), mintCacheTTL, func(ctx context.Context) (string, error) {
		return i.saleRepo.FindCollectionByMint(ctx, in.Mint)
	})
	if errors.Is(err, repo.ErrNotFound) {
		return "", fmt.Errorf("%w: unknown collection for mint %s", ErrInvalidSale, in.Mint)
	}
	if err != nil {
		return "", fmt.Errorf("resolve collection for mint %s: %w", in.Mint, err)
	}
	return collectionId, nil
}

func mintKey(mint string) string {
	return "mint:" + mint
}
