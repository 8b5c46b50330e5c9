package product

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product/dto"
)

type Repository interface {
	// Upsert writes the product and its variants in one transaction, keyed by
	// (shop_id, external_id) for products and external_id for variants.
	Upsert(ctx context.Context, product *model.Product) error
	FindByExternalID(ctx context.Context, shopID, externalID int64) (*model.Product, error)
	DeleteByExternalID(ctx context.Context, shopID, externalID int64) (bool, error)

	FindVariants(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Variant, error)
	FindVariantIDs(ctx context.Context, filter *dto.VariantFilter) ([]int64, error)
	UpdateVariantCodes(ctx context.Context, shopID, variantID int64, codes *dto.VariantCodes) error

	FindBarcodes(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Barcode, error)
}
