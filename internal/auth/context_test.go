package auth_test

import (
	"context"
	"testing"

	"github.com/fekuna/shopsync-service/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func TestGetShopID(t *testing.T) {
	assert.Zero(t, auth.GetShopID(context.Background()))
	assert.Equal(t, int64(7), auth.GetShopID(incoming(auth.ShopIDHeader, "7")))
	assert.Zero(t, auth.GetShopID(incoming(auth.ShopIDHeader, "seven")))
	assert.Equal(t, int64(9), auth.GetShopID(auth.WithShopID(incoming(auth.ShopIDHeader, "7"), 9)))
}

func TestContextInterceptor(t *testing.T) {
	intercept := auth.ContextInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Method"}

	var seen int64
	handler := func(ctx context.Context, _ any) (any, error) {
		seen = auth.GetShopID(ctx)
		return nil, nil
	}

	_, err := intercept(incoming(auth.ShopIDHeader, "42"), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, int64(42), seen)

	_, err = intercept(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.Zero(t, seen)

	_, err = intercept(incoming(auth.ShopIDHeader, "-1"), nil, info, handler)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
