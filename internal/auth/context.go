package auth

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ShopIDHeader is the metadata key the admin backend sets for the calling shop.
const ShopIDHeader = "x-shop-id"

type shopIDKey struct{}

func WithShopID(ctx context.Context, shopID int64) context.Context {
	return context.WithValue(ctx, shopIDKey{}, shopID)
}

// GetShopID returns the calling shop, or 0 when the request carries none.
func GetShopID(ctx context.Context) int64 {
	// Check if added to context by interceptor
	if val, ok := ctx.Value(shopIDKey{}).(int64); ok {
		return val
	}

	// Fallback to metadata
	if id, ok, _ := shopIDFromMetadata(ctx); ok {
		return id
	}
	return 0
}

func shopIDFromMetadata(ctx context.Context) (int64, bool, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, false, nil
	}
	vals := md.Get(ShopIDHeader)
	if len(vals) == 0 || vals[0] == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(vals[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false, status.Errorf(codes.InvalidArgument, "invalid %s %q", ShopIDHeader, vals[0])
	}
	return id, true, nil
}

// ContextInterceptor moves the shop id from metadata into the context. Requests without
// one pass through; handlers that need a shop reject them.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id, ok, err := shopIDFromMetadata(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			ctx = WithShopID(ctx, id)
		}
		return handler(ctx, req)
	}
}
