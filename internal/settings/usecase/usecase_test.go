package usecase_test

import (
	"context"
	"testing"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/database/dbtest"
	"github.com/fekuna/shopsync-service/internal/generator"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/settings"
	"github.com/fekuna/shopsync-service/internal/settings/repository"
	"github.com/fekuna/shopsync-service/internal/settings/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase(t *testing.T) settings.UseCase {
	return usecase.NewSettingsUseCase(repository.NewPGRepository(dbtest.New(t)), logger.NewNop())
}

func TestRulesDefaultWhenUnset(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	sku, err := uc.SKURules(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, usecase.DefaultSKURules(), sku)

	barcode, err := uc.BarcodeRules(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, usecase.DefaultBarcodeRules(), barcode)
}

func TestStoredRulesOverlayDefaults(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	require.NoError(t, uc.SetNamespace(ctx, 1, settings.NamespaceSKURules, map[string]string{
		"prefix":      "PROD",
		"per_product": "true",
	}))
	require.NoError(t, uc.SetNamespace(ctx, 1, settings.NamespaceBarcodeRules, map[string]string{
		"format":    generator.FormatUPC,
		"auto_fill": "nope",
	}))

	sku, err := uc.SKURules(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, generator.SKURules{Prefix: "PROD", Delimiter: "-", AutoStart: "0001", PerProduct: true}, sku)
	assert.Equal(t, "PROD-0007", generator.GenerateSKU(7, sku))

	barcode, err := uc.BarcodeRules(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, generator.FormatUPC, barcode.Format)
	assert.True(t, barcode.AutoFill, "unparseable flags keep the default")

	other, err := uc.SKURules(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "SKU", other.Prefix)
}

func TestSetNamespace(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	require.NoError(t, uc.SetNamespace(ctx, 1, settings.NamespaceLabelTemplate, map[string]string{"size": "50x30", "font": "mono"}))
	require.NoError(t, uc.SetNamespace(ctx, 1, settings.NamespaceLabelTemplate, map[string]string{"size": "40x20", "font": ""}))

	values, err := uc.GetNamespace(ctx, 1, settings.NamespaceLabelTemplate)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"size": "40x20"}, values)

	assert.Error(t, uc.SetNamespace(ctx, 1, "colors", map[string]string{"a": "b"}))
	_, err = uc.GetNamespace(ctx, 1, "colors")
	assert.Error(t, err)
}

func TestInvalidStoredRules(t *testing.T) {
	repo := repository.NewPGRepository(dbtest.New(t))
	uc := usecase.NewSettingsUseCase(repo, logger.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, &model.Setting{ShopID: 1, Namespace: settings.NamespaceBarcodeRules, Key: "format", Value: "PDF417"}))

	_, err := uc.BarcodeRules(ctx, 1)
	assert.Error(t, err)
}

func TestSetNamespaceRejectsInvalidRules(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()
	require.NoError(t, uc.SetNamespace(ctx, 1, settings.NamespaceSKURules, map[string]string{"prefix": "P"}))

	err := uc.SetNamespace(ctx, 1, settings.NamespaceBarcodeRules, map[string]string{"format": "PDF417"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	err = uc.SetNamespace(ctx, 1, settings.NamespaceSKURules, map[string]string{"auto_start": "00a1", "prefix": "Q"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	values, err := uc.GetNamespace(ctx, 1, settings.NamespaceSKURules)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"prefix": "P"}, values, "a rejected update writes nothing")

	_, err = uc.GetNamespace(ctx, 1, "colors")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestStoredLowercaseFormatIsNormalized(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	require.NoError(t, uc.SetNamespace(ctx, 1, settings.NamespaceBarcodeRules, map[string]string{
		"format": " ean13",
	}))

	rules, err := uc.BarcodeRules(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, generator.FormatEAN13, rules.Format)
}
