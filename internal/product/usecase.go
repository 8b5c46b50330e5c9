package product

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product/dto"
)

type UseCase interface {
	SaveProduct(ctx context.Context, product *model.Product) error
	GetProduct(ctx context.Context, shopID, externalID int64) (*model.Product, error)
	DeleteProduct(ctx context.Context, shopID, externalID int64) error

	GetVariants(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Variant, error)
	ResolveVariantIDs(ctx context.Context, filter *dto.VariantFilter) ([]int64, error)

	// SaveVariantCodes persists new sku/barcode values. With notify false the write is a
	// quiet save: no outbound sync is triggered.
	SaveVariantCodes(ctx context.Context, shopID, variantID int64, codes *dto.VariantCodes, notify bool) error

	ListBarcodes(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Barcode, error)
}

// Notifier is told about local variant edits that should reach Shopify.
type Notifier interface {
	VariantsChanged(ctx context.Context, shopID, productExternalID int64, variantIDs []int64) error
}

// SearchIndex mirrors products for filter queries.
type SearchIndex interface {
	IndexProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, shopID, externalID int64) error
	SearchVariantIDs(ctx context.Context, filter *dto.VariantFilter) ([]int64, error)
}
