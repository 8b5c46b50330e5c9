package repository_test

import (
	"context"
	"testing"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/database/dbtest"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product/dto"
	"github.com/fekuna/shopsync-service/internal/product/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleProduct(shopID int64) *model.Product {
	return &model.Product{
		ShopID:      shopID,
		ExternalID:  1001,
		Title:       "Classic Tee",
		Description: "<p>Soft</p>",
		Status:      model.ProductStatusActive,
		Vendor:      "Acme",
		ProductType: "Shirts",
		Tags:        model.StringList{"Red", "Blue"},
		Images:      model.ImageList{{ID: 9, Src: "https://cdn.shopify.com/tee.jpg", Alt: "tee"}},
		Variants: []model.Variant{
			{
				ExternalID:        5001,
				Title:             "S",
				SKU:               strPtr("TS-S"),
				Barcode:           strPtr("TS-S"),
				Price:             decimal.RequireFromString("19.99"),
				InventoryQuantity: 3,
				Option1:           strPtr("S"),
				ImageSrc:          strPtr("https://cdn.shopify.com/tee.jpg"),
			},
			{
				ExternalID: 5002,
				Title:      "M",
				Barcode:    strPtr("AUTO-5002"),
				Price:      decimal.RequireFromString("21.50"),
				Option1:    strPtr("M"),
			},
		},
	}
}

func TestUpsert_ReplayLeavesRowsUnchanged(t *testing.T) {
	db := dbtest.New(t)
	shopID := dbtest.SeedShop(t, db, "demo.myshopify.com")
	repo := repository.NewPGRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleProduct(shopID)))
	first, err := repo.FindByExternalID(ctx, shopID, 1001)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Len(t, first.Variants, 2)

	require.NoError(t, repo.Upsert(ctx, sampleProduct(shopID)))
	second, err := repo.FindByExternalID(ctx, shopID, 1001)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Tags, second.Tags)
	assert.Equal(t, first.Images, second.Images)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt), "unchanged product must not be rewritten")
	for i := range first.Variants {
		a, b := first.Variants[i], second.Variants[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.ExternalID, b.ExternalID)
		assert.Equal(t, a.SKU, b.SKU)
		assert.Equal(t, a.Barcode, b.Barcode)
		assert.True(t, a.Price.Equal(b.Price))
		assert.True(t, a.UpdatedAt.Equal(b.UpdatedAt), "unchanged variant must not be rewritten")
	}

	var products, variants int
	require.NoError(t, db.Get(&products, `SELECT count(*) FROM products`))
	require.NoError(t, db.Get(&variants, `SELECT count(*) FROM variants`))
	assert.Equal(t, 1, products)
	assert.Equal(t, 2, variants)
}

func TestUpsert_UpdatesAndPrunesVariants(t *testing.T) {
	db := dbtest.New(t)
	shopID := dbtest.SeedShop(t, db, "demo.myshopify.com")
	repo := repository.NewPGRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleProduct(shopID)))

	changed := sampleProduct(shopID)
	changed.Title = "Classic Tee v2"
	changed.Variants = changed.Variants[:1]
	changed.Variants[0].InventoryQuantity = 10
	require.NoError(t, repo.Upsert(ctx, changed))

	got, err := repo.FindByExternalID(ctx, shopID, 1001)
	require.NoError(t, err)
	assert.Equal(t, "Classic Tee v2", got.Title)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, int64(5001), got.Variants[0].ExternalID)
	assert.Equal(t, 10, got.Variants[0].InventoryQuantity)
	assert.Equal(t, int64(1001), got.Variants[0].ProductExternalID)
}

func TestUpdateVariantCodes_AndBarcodeView(t *testing.T) {
	db := dbtest.New(t)
	shopID := dbtest.SeedShop(t, db, "demo.myshopify.com")
	repo := repository.NewPGRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, sampleProduct(shopID)))

	err := repo.UpdateVariantCodes(ctx, shopID, 5002, &dto.VariantCodes{
		SKU:           strPtr("TS-M"),
		Barcode:       strPtr("TS-S"),
		BarcodeFormat: strPtr("CODE128"),
	})
	require.NoError(t, err)

	variants, err := repo.FindVariants(ctx, shopID, []int64{5002})
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "TS-M", variants[0].SKUValue())
	assert.Equal(t, int64(1001), variants[0].ProductExternalID)

	barcodes, err := repo.FindBarcodes(ctx, shopID, nil)
	require.NoError(t, err)
	require.Len(t, barcodes, 2)
	for _, b := range barcodes {
		assert.Equal(t, "TS-S", b.Value)
		assert.True(t, b.Duplicate, "variant %d shares its barcode", b.VariantID)
	}
	assert.Equal(t, "CODE128", barcodes[1].Format)

	err = repo.UpdateVariantCodes(ctx, shopID, 999, &dto.VariantCodes{SKU: strPtr("X")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFindVariantIDs_Filters(t *testing.T) {
	db := dbtest.New(t)
	shopID := dbtest.SeedShop(t, db, "demo.myshopify.com")
	otherShop := dbtest.SeedShop(t, db, "other.myshopify.com")
	repo := repository.NewPGRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleProduct(shopID)))
	mug := &model.Product{
		ShopID: shopID, ExternalID: 2002, Title: "Mug", Status: model.ProductStatusDraft, Vendor: "Other",
		Variants: []model.Variant{{ExternalID: 6001, Title: "Default", Price: decimal.NewFromInt(8)}},
	}
	require.NoError(t, repo.Upsert(ctx, mug))
	foreign := sampleProduct(otherShop)
	foreign.ExternalID = 3003
	foreign.Variants = []model.Variant{{ExternalID: 7001, Title: "S", Price: decimal.NewFromInt(1)}}
	require.NoError(t, repo.Upsert(ctx, foreign))

	ids, err := repo.FindVariantIDs(ctx, &dto.VariantFilter{ShopID: shopID})
	require.NoError(t, err)
	assert.Equal(t, []int64{5001, 5002, 6001}, ids)

	ids, err = repo.FindVariantIDs(ctx, &dto.VariantFilter{ShopID: shopID, Vendor: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []int64{5001, 5002}, ids)

	ids, err = repo.FindVariantIDs(ctx, &dto.VariantFilter{ShopID: shopID, Query: "ts-s"})
	require.NoError(t, err)
	assert.Equal(t, []int64{5001}, ids)

	ids, err = repo.FindVariantIDs(ctx, &dto.VariantFilter{ShopID: shopID, Status: model.ProductStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, []int64{6001}, ids)
}

func TestDeleteByExternalID(t *testing.T) {
	db := dbtest.New(t)
	shopID := dbtest.SeedShop(t, db, "demo.myshopify.com")
	repo := repository.NewPGRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, sampleProduct(shopID)))

	deleted, err := repo.DeleteByExternalID(ctx, shopID, 1001)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.FindByExternalID(ctx, shopID, 1001)
	require.NoError(t, err)
	assert.Nil(t, got)

	var variants int
	require.NoError(t, db.Get(&variants, `SELECT count(*) FROM variants`))
	assert.Zero(t, variants)

	deleted, err = repo.DeleteByExternalID(ctx, shopID, 1001)
	require.NoError(t, err)
	assert.False(t, deleted)
}
