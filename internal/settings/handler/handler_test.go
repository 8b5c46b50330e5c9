package handler_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/fekuna/shopsync-service/internal/auth"
	"github.com/fekuna/shopsync-service/internal/counter"
	counterrepo "github.com/fekuna/shopsync-service/internal/counter/repository"
	"github.com/fekuna/shopsync-service/internal/database/dbtest"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/rpc"
	"github.com/fekuna/shopsync-service/internal/settings"
	"github.com/fekuna/shopsync-service/internal/settings/handler"
	"github.com/fekuna/shopsync-service/internal/settings/repository"
	"github.com/fekuna/shopsync-service/internal/settings/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type env struct {
	client   *rpc.SettingsServiceClient
	counters *counterrepo.PGRepository
	uc       settings.UseCase
	shopID   int64
	other    int64
}

func setup(t *testing.T) *env {
	t.Helper()
	db := dbtest.New(t)
	shopID := dbtest.SeedShop(t, db, "demo.myshopify.com")
	other := dbtest.SeedShop(t, db, "other.myshopify.com")
	log := logger.NewNop()

	uc := usecase.NewSettingsUseCase(repository.NewPGRepository(db), log)
	counters := counterrepo.NewPGRepository(db, time.Second)

	lis := bufconn.Listen(1 << 20)
	srv, _ := rpc.NewServer(log)
	rpc.RegisterSettingsServiceServer(srv, handler.NewSettingsHandler(uc, counters, log))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &env{client: rpc.NewSettingsServiceClient(conn), counters: counters, uc: uc, shopID: shopID, other: other}
}

func asShop(shopID int64) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), auth.ShopIDHeader, strconv.FormatInt(shopID, 10))
}

func values(t *testing.T, out *structpb.Struct) map[string]any {
	t.Helper()
	return out.Fields["values"].GetStructValue().AsMap()
}

func TestUpdateAndGetSettings(t *testing.T) {
	e := setup(t)

	in, err := structpb.NewStruct(map[string]any{
		"namespace": settings.NamespaceLabelTemplate,
		"values":    map[string]any{"size": "50x30", "font": "mono"},
	})
	require.NoError(t, err)
	out, err := e.client.UpdateSettings(asShop(e.shopID), in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"size": "50x30", "font": "mono"}, values(t, out))

	in, err = structpb.NewStruct(map[string]any{
		"namespace": settings.NamespaceLabelTemplate,
		"values":    map[string]any{"font": ""},
	})
	require.NoError(t, err)
	_, err = e.client.UpdateSettings(asShop(e.shopID), in)
	require.NoError(t, err)

	get, err := structpb.NewStruct(map[string]any{"namespace": settings.NamespaceLabelTemplate})
	require.NoError(t, err)
	out, err = e.client.GetSettings(asShop(e.shopID), get)
	require.NoError(t, err)
	assert.Equal(t, settings.NamespaceLabelTemplate, out.Fields["namespace"].GetStringValue())
	assert.Equal(t, map[string]any{"size": "50x30"}, values(t, out))

	out, err = e.client.GetSettings(asShop(e.other), get)
	require.NoError(t, err)
	assert.Empty(t, values(t, out), "settings are per shop")
}

func TestUpdatedRulesFeedGeneration(t *testing.T) {
	e := setup(t)

	in, err := structpb.NewStruct(map[string]any{
		"namespace": settings.NamespaceBarcodeRules,
		"values":    map[string]any{"format": "upc", "prefix": "04"},
	})
	require.NoError(t, err)
	_, err = e.client.UpdateSettings(asShop(e.shopID), in)
	require.NoError(t, err)

	rules, err := e.uc.BarcodeRules(context.Background(), e.shopID)
	require.NoError(t, err)
	assert.Equal(t, "UPC", rules.Format)
	assert.Equal(t, "04", rules.Prefix)
}

func TestSettings_Errors(t *testing.T) {
	e := setup(t)

	get, err := structpb.NewStruct(map[string]any{"namespace": settings.NamespaceSKURules})
	require.NoError(t, err)
	_, err = e.client.GetSettings(context.Background(), get)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	unknown, err := structpb.NewStruct(map[string]any{"namespace": "colors"})
	require.NoError(t, err)
	_, err = e.client.GetSettings(asShop(e.shopID), unknown)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	invalid, err := structpb.NewStruct(map[string]any{
		"namespace": settings.NamespaceBarcodeRules,
		"values":    map[string]any{"format": "PDF417"},
	})
	require.NoError(t, err)
	_, err = e.client.UpdateSettings(asShop(e.shopID), invalid)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	malformed, err := structpb.NewStruct(map[string]any{
		"namespace": settings.NamespaceLabelTemplate,
		"values":    "size=50x30",
	})
	require.NoError(t, err)
	_, err = e.client.UpdateSettings(asShop(e.shopID), malformed)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetCounters(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	out, err := e.client.GetCounters(asShop(e.shopID), &emptypb.Empty{})
	require.NoError(t, err)
	sku := out.Fields[counter.ScopeSKU].GetStructValue().AsMap()
	assert.Equal(t, false, sku["used"])
	assert.EqualValues(t, 0, sku["value"])

	for i := 0; i < 3; i++ {
		_, err := e.counters.NextValue(ctx, counter.Key{ShopID: e.shopID, Scope: counter.ScopeSKU}, 100)
		require.NoError(t, err)
	}
	_, err = e.counters.NextValue(ctx, counter.Key{ShopID: e.other, Scope: counter.ScopeBarcode}, 1)
	require.NoError(t, err)

	out, err = e.client.GetCounters(asShop(e.shopID), &emptypb.Empty{})
	require.NoError(t, err)
	sku = out.Fields[counter.ScopeSKU].GetStructValue().AsMap()
	assert.Equal(t, true, sku["used"])
	assert.EqualValues(t, 102, sku["value"])
	barcode := out.Fields[counter.ScopeBarcode].GetStructValue().AsMap()
	assert.Equal(t, false, barcode["used"], "another shop's sequence is not reported")

	_, err = e.client.GetCounters(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
