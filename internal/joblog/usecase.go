package joblog

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/model"
)

type UseCase interface {
	CreateJob(ctx context.Context, shopID int64, kind string, total int) (*model.JobLog, error)
	GetJob(ctx context.Context, id int64) (*model.JobLog, error)
	ListJobs(ctx context.Context, shopID int64, limit int) ([]model.JobLog, error)
	AttachBatch(ctx context.Context, id int64, batchID string) error

	StartJob(ctx context.Context, id int64) error
	CompleteJob(ctx context.Context, id int64, message string) error
	FailJob(ctx context.Context, id int64, errMessage string) error

	ItemProcessed(ctx context.Context, id int64) error
	ItemFailed(ctx context.Context, id int64) error
}
