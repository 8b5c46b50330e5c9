package joblog

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, job *model.JobLog) error
	FindByID(ctx context.Context, id int64) (*model.JobLog, error)
	FindByShop(ctx context.Context, shopID int64, limit int) ([]model.JobLog, error)
	SetBatchID(ctx context.Context, id int64, batchID string) error

	// Status changes are guarded in the UPDATE itself; a row in the wrong state yields
	// apperr.ErrInvalidTransition.
	Start(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, message string) error
	Fail(ctx context.Context, id int64, errMessage string) error

	IncrementProcessed(ctx context.Context, id int64, n int) error
	IncrementFailed(ctx context.Context, id int64, n int) error
}
