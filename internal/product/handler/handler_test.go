package handler_test

import (
	"context"
	"testing"

	"github.com/fekuna/shopsync-service/internal/auth"
	"github.com/fekuna/shopsync-service/internal/database/dbtest"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product/handler"
	"github.com/fekuna/shopsync-service/internal/product/repository"
	"github.com/fekuna/shopsync-service/internal/product/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type notification struct {
	shopID, productID int64
	variantIDs        []int64
}

type recordingNotifier struct {
	calls []notification
}

func (n *recordingNotifier) VariantsChanged(_ context.Context, shopID, productID int64, variantIDs []int64) error {
	n.calls = append(n.calls, notification{shopID, productID, variantIDs})
	return nil
}

func setup(t *testing.T) (*handler.ProductHandler, *recordingNotifier, context.Context) {
	t.Helper()
	db := dbtest.New(t)
	shopID := dbtest.SeedShop(t, db, "demo.myshopify.com")
	repo := repository.NewPGRepository(db)

	require.NoError(t, repo.Upsert(context.Background(), &model.Product{
		ShopID: shopID, ExternalID: 1001, Title: "Classic Tee", Status: model.ProductStatusActive,
		Variants: []model.Variant{
			{ExternalID: 5001, Title: "S", Price: decimal.NewFromInt(10)},
			{ExternalID: 5002, Title: "M", Price: decimal.NewFromInt(10)},
		},
	}))

	notifier := &recordingNotifier{}
	uc := usecase.NewProductUseCase(repo, nil, notifier, logger.NewNop())
	return handler.NewProductHandler(uc, logger.NewNop()), notifier, auth.WithShopID(context.Background(), shopID)
}

func TestGetProduct(t *testing.T) {
	h, _, ctx := setup(t)

	out, err := h.GetProduct(ctx, wrapperspb.Int64(1001))
	require.NoError(t, err)
	assert.Equal(t, "Classic Tee", out.Fields["title"].GetStringValue())
	assert.Len(t, out.Fields["variants"].GetListValue().GetValues(), 2)

	_, err = h.GetProduct(ctx, wrapperspb.Int64(42))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.GetProduct(context.Background(), wrapperspb.Int64(1001))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUpdateVariant_NotifiesUnlessQuiet(t *testing.T) {
	h, notifier, ctx := setup(t)

	in, err := structpb.NewStruct(map[string]any{"variant_id": 5001, "sku": "TEE-S", "barcode": "012345678905"})
	require.NoError(t, err)
	_, err = h.UpdateVariant(ctx, in)
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, int64(1001), notifier.calls[0].productID)
	assert.Equal(t, []int64{5001}, notifier.calls[0].variantIDs)

	quiet, err := structpb.NewStruct(map[string]any{"variant_id": 5002, "sku": "TEE-M", "quiet": true})
	require.NoError(t, err)
	_, err = h.UpdateVariant(ctx, quiet)
	require.NoError(t, err)
	assert.Len(t, notifier.calls, 1)

	out, err := h.ListBarcodes(ctx, &structpb.Struct{})
	require.NoError(t, err)
	barcodes := out.Fields["barcodes"].GetListValue().GetValues()
	require.Len(t, barcodes, 1)
	assert.Equal(t, "012345678905", barcodes[0].GetStructValue().Fields["value"].GetStringValue())
}

func TestUpdateVariant_Errors(t *testing.T) {
	h, _, ctx := setup(t)

	missing, err := structpb.NewStruct(map[string]any{"sku": "X"})
	require.NoError(t, err)
	_, err = h.UpdateVariant(ctx, missing)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	unknown, err := structpb.NewStruct(map[string]any{"variant_id": 999, "sku": "X"})
	require.NoError(t, err)
	_, err = h.UpdateVariant(ctx, unknown)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
