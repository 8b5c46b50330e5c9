package handler

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/auth"
	"github.com/fekuna/shopsync-service/internal/counter"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/rpc"
	"github.com/fekuna/shopsync-service/internal/settings"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type SettingsHandler struct {
	uc       settings.UseCase
	counters counter.Repository
	logger   logger.ZapLogger
}

var _ rpc.SettingsServiceServer = (*SettingsHandler)(nil)

func NewSettingsHandler(uc settings.UseCase, counters counter.Repository, log logger.ZapLogger) *SettingsHandler {
	return &SettingsHandler{
		uc:       uc,
		counters: counters,
		logger:   log,
	}
}

type namespaceRequest struct {
	Namespace string            `json:"namespace"`
	Values    map[string]string `json:"values"`
}

type counterView struct {
	Value int64 `json:"value"`
	Used  bool  `json:"used"`
}

func shopFromContext(ctx context.Context) (int64, error) {
	shopID := auth.GetShopID(ctx)
	if shopID == 0 {
		return 0, status.Error(codes.Unauthenticated, "missing shop")
	}
	return shopID, nil
}

func (h *SettingsHandler) GetSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	shopID, err := shopFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var req namespaceRequest
	if err := rpc.DecodeStruct(in, &req); err != nil {
		return nil, err
	}
	return h.namespace(ctx, shopID, req.Namespace)
}

// UpdateSettings writes the given keys and answers with the whole namespace. An empty
// value removes its key.
func (h *SettingsHandler) UpdateSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	shopID, err := shopFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var req namespaceRequest
	if err := rpc.DecodeStruct(in, &req); err != nil {
		return nil, err
	}
	if err := h.uc.SetNamespace(ctx, shopID, req.Namespace, req.Values); err != nil {
		h.logger.Warn("failed to update settings", zap.Int64("shop_id", shopID), zap.String("namespace", req.Namespace), zap.Error(err))
		return nil, rpc.Error(err)
	}

	h.logger.Info("settings updated", zap.Int64("shop_id", shopID), zap.String("namespace", req.Namespace), zap.Int("keys", len(req.Values)))
	return h.namespace(ctx, shopID, req.Namespace)
}

// GetCounters reports the shop-wide sku and barcode sequences. Per-product sequences
// are not listed.
func (h *SettingsHandler) GetCounters(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	shopID, err := shopFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]counterView, 2)
	for _, scope := range []string{counter.ScopeSKU, counter.ScopeBarcode} {
		value, used, err := h.counters.Current(ctx, counter.Key{ShopID: shopID, Scope: scope})
		if err != nil {
			return nil, rpc.Error(err)
		}
		out[scope] = counterView{Value: value, Used: used}
	}
	return rpc.EncodeStruct(out)
}

func (h *SettingsHandler) namespace(ctx context.Context, shopID int64, namespace string) (*structpb.Struct, error) {
	values, err := h.uc.GetNamespace(ctx, shopID, namespace)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.EncodeStruct(namespaceRequest{Namespace: namespace, Values: values})
}
