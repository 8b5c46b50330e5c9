package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/product/dto"
	"go.uber.org/zap"
)

type productUseCase struct {
	repo     product.Repository
	es       product.SearchIndex
	notifier product.Notifier
	logger   logger.ZapLogger
}

// NewProductUseCase wires the mirror. es and notifier may be nil: without an index filters
// fall back to SQL, without a notifier local edits stay local.
func NewProductUseCase(repo product.Repository, es product.SearchIndex, notifier product.Notifier, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:     repo,
		es:       es,
		notifier: notifier,
		logger:   log,
	}
}

func (uc *productUseCase) SaveProduct(ctx context.Context, p *model.Product) error {
	if err := uc.repo.Upsert(ctx, p); err != nil {
		return err
	}
	uc.syncToElastic(ctx, p)
	return nil
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	if err := uc.es.IndexProduct(ctx, p); err != nil {
		uc.logger.Error("failed to index product",
			zap.Int64("shop_id", p.ShopID),
			zap.Int64("product_id", p.ExternalID),
			zap.Error(err),
		)
	}
}

func (uc *productUseCase) GetProduct(ctx context.Context, shopID, externalID int64) (*model.Product, error) {
	return uc.repo.FindByExternalID(ctx, shopID, externalID)
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, shopID, externalID int64) error {
	deleted, err := uc.repo.DeleteByExternalID(ctx, shopID, externalID)
	if err != nil {
		return err
	}
	if !deleted {
		uc.logger.Debug("product already absent", zap.Int64("shop_id", shopID), zap.Int64("product_id", externalID))
		return nil
	}

	if uc.es != nil {
		if err := uc.es.DeleteProduct(ctx, shopID, externalID); err != nil {
			uc.logger.Error("failed to delete product from ES", zap.Int64("product_id", externalID), zap.Error(err))
		}
	}
	return nil
}

func (uc *productUseCase) GetVariants(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Variant, error) {
	return uc.repo.FindVariants(ctx, shopID, variantIDs)
}

func (uc *productUseCase) ResolveVariantIDs(ctx context.Context, f *dto.VariantFilter) ([]int64, error) {
	// Free text goes to the index when there is one; structured filters are exact in SQL.
	if f.Query != "" && uc.es != nil {
		ids, err := uc.es.SearchVariantIDs(ctx, f)
		if err == nil {
			return ids, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Int64("shop_id", f.ShopID), zap.Error(err))
	}
	return uc.repo.FindVariantIDs(ctx, f)
}

func (uc *productUseCase) SaveVariantCodes(ctx context.Context, shopID, variantID int64, codes *dto.VariantCodes, notify bool) error {
	if codes.Empty() {
		return nil
	}
	if err := uc.repo.UpdateVariantCodes(ctx, shopID, variantID, codes); err != nil {
		return err
	}
	if !notify || uc.notifier == nil {
		return nil
	}

	variants, err := uc.repo.FindVariants(ctx, shopID, []int64{variantID})
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		return fmt.Errorf("variant %d vanished after update", variantID)
	}
	return uc.notifier.VariantsChanged(ctx, shopID, variants[0].ProductExternalID, []int64{variantID})
}

func (uc *productUseCase) ListBarcodes(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Barcode, error) {
	return uc.repo.FindBarcodes(ctx, shopID, variantIDs)
}
