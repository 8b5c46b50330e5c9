package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/joblog"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"go.uber.org/zap"
)

type jobLogUseCase struct {
	repo   joblog.Repository
	logger logger.ZapLogger
}

func NewJobLogUseCase(repo joblog.Repository, log logger.ZapLogger) joblog.UseCase {
	return &jobLogUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *jobLogUseCase) CreateJob(ctx context.Context, shopID int64, kind string, total int) (*model.JobLog, error) {
	if kind != model.JobKindSKU && kind != model.JobKindBarcode {
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
	job := &model.JobLog{
		ShopID:     shopID,
		Kind:       kind,
		Status:     model.JobStatusPending,
		TotalItems: total,
	}
	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	uc.logger.Info("job log created",
		zap.Int64("job_id", job.ID),
		zap.Int64("shop_id", shopID),
		zap.String("kind", kind),
		zap.Int("total", total),
	)
	return job, nil
}

func (uc *jobLogUseCase) GetJob(ctx context.Context, id int64) (*model.JobLog, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *jobLogUseCase) ListJobs(ctx context.Context, shopID int64, limit int) ([]model.JobLog, error) {
	return uc.repo.FindByShop(ctx, shopID, limit)
}

func (uc *jobLogUseCase) AttachBatch(ctx context.Context, id int64, batchID string) error {
	return uc.repo.SetBatchID(ctx, id, batchID)
}

func (uc *jobLogUseCase) StartJob(ctx context.Context, id int64) error {
	return uc.repo.Start(ctx, id)
}

func (uc *jobLogUseCase) CompleteJob(ctx context.Context, id int64, message string) error {
	if err := uc.repo.Complete(ctx, id, message); err != nil {
		return err
	}
	uc.logger.Info("job completed", zap.Int64("job_id", id), zap.String("message", message))
	return nil
}

func (uc *jobLogUseCase) FailJob(ctx context.Context, id int64, errMessage string) error {
	if err := uc.repo.Fail(ctx, id, errMessage); err != nil {
		return err
	}
	uc.logger.Warn("job failed", zap.Int64("job_id", id), zap.String("error", errMessage))
	return nil
}

func (uc *jobLogUseCase) ItemProcessed(ctx context.Context, id int64) error {
	return uc.repo.IncrementProcessed(ctx, id, 1)
}

func (uc *jobLogUseCase) ItemFailed(ctx context.Context, id int64) error {
	return uc.repo.IncrementFailed(ctx, id, 1)
}
