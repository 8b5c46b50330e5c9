package handler

import (
	"context"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/auth"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/product/dto"
	"github.com/fekuna/shopsync-service/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

var _ rpc.ProductServiceServer = (*ProductHandler)(nil)

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

// UpdateVariantRequest is a manual edit from the admin UI. Unlike generated codes, manual
// edits are pushed to Shopify unless Quiet is set.
type UpdateVariantRequest struct {
	VariantID int64 `json:"variant_id"`
	dto.VariantCodes
	Quiet bool `json:"quiet"`
}

func (h *ProductHandler) GetProduct(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	shopID := auth.GetShopID(ctx)
	if shopID == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing shop")
	}

	p, err := h.uc.GetProduct(ctx, shopID, req.GetValue())
	if err != nil {
		return nil, rpc.Error(err)
	}
	if p == nil {
		return nil, status.Error(codes.NotFound, "product not found")
	}
	return rpc.EncodeStruct(p)
}

func (h *ProductHandler) UpdateVariant(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	shopID := auth.GetShopID(ctx)
	if shopID == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing shop")
	}

	var req UpdateVariantRequest
	if err := rpc.DecodeStruct(in, &req); err != nil {
		return nil, err
	}
	if req.VariantID <= 0 {
		return nil, rpc.Error(fmt.Errorf("%w: variant_id required", apperr.ErrInvalidInput))
	}

	if err := h.uc.SaveVariantCodes(ctx, shopID, req.VariantID, &req.VariantCodes, !req.Quiet); err != nil {
		h.logger.Error("failed to update variant", zap.Int64("shop_id", shopID), zap.Int64("variant_id", req.VariantID), zap.Error(err))
		return nil, rpc.Error(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *ProductHandler) ListBarcodes(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	shopID := auth.GetShopID(ctx)
	if shopID == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing shop")
	}

	var req struct {
		VariantIDs []int64 `json:"variant_ids"`
	}
	if err := rpc.DecodeStruct(in, &req); err != nil {
		return nil, err
	}

	barcodes, err := h.uc.ListBarcodes(ctx, shopID, req.VariantIDs)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.EncodeStruct(map[string]any{"barcodes": barcodes})
}
