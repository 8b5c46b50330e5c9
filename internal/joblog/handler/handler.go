package handler

import (
	"context"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/auth"
	"github.com/fekuna/shopsync-service/internal/batch"
	"github.com/fekuna/shopsync-service/internal/joblog"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Generator starts and cancels generation runs.
type Generator interface {
	Start(ctx context.Context, req *batch.GenerateRequest) (*model.JobLog, error)
	Cancel(ctx context.Context, shopID, jobLogID int64) error
}

type JobHandler struct {
	gen    Generator
	uc     joblog.UseCase
	logger logger.ZapLogger
}

var _ rpc.JobServiceServer = (*JobHandler)(nil)

func NewJobHandler(gen Generator, uc joblog.UseCase, log logger.ZapLogger) *JobHandler {
	return &JobHandler{
		gen:    gen,
		uc:     uc,
		logger: log,
	}
}

type jobView struct {
	*model.JobLog
	Progress int `json:"progress"`
}

func mapJob(j *model.JobLog) jobView {
	return jobView{JobLog: j, Progress: j.Progress()}
}

func shopFromContext(ctx context.Context) (int64, error) {
	shopID := auth.GetShopID(ctx)
	if shopID == 0 {
		return 0, status.Error(codes.Unauthenticated, "missing shop")
	}
	return shopID, nil
}

func (h *JobHandler) StartGeneration(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	shopID, err := shopFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var req batch.GenerateRequest
	if err := rpc.DecodeStruct(in, &req); err != nil {
		return nil, err
	}
	req.ShopID = shopID

	job, err := h.gen.Start(ctx, &req)
	if err != nil {
		h.logger.Warn("failed to start generation", zap.Int64("shop_id", shopID), zap.String("kind", req.Kind), zap.Error(err))
		return nil, rpc.Error(err)
	}
	return rpc.EncodeStruct(mapJob(job))
}

func (h *JobHandler) GetJob(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	shopID, err := shopFromContext(ctx)
	if err != nil {
		return nil, err
	}

	job, err := h.uc.GetJob(ctx, in.GetValue())
	if err != nil {
		return nil, rpc.Error(err)
	}
	// another shop's job is reported as missing
	if job == nil || job.ShopID != shopID {
		return nil, rpc.Error(fmt.Errorf("job %d: %w", in.GetValue(), apperr.ErrNotFound))
	}
	return rpc.EncodeStruct(mapJob(job))
}

func (h *JobHandler) ListJobs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	shopID, err := shopFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var req struct {
		Limit int `json:"limit"`
	}
	if err := rpc.DecodeStruct(in, &req); err != nil {
		return nil, err
	}

	jobs, err := h.uc.ListJobs(ctx, shopID, req.Limit)
	if err != nil {
		return nil, rpc.Error(err)
	}
	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, mapJob(&jobs[i]))
	}
	return rpc.EncodeStruct(map[string]any{"jobs": views})
}

func (h *JobHandler) CancelJob(ctx context.Context, in *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	shopID, err := shopFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.gen.Cancel(ctx, shopID, in.GetValue()); err != nil {
		return nil, rpc.Error(err)
	}
	return &emptypb.Empty{}, nil
}
