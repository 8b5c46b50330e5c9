package queue

import (
	"context"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/google/uuid"
)

// Queue is what producers hold: dispatch plus batch bookkeeping.
type Queue struct {
	dispatcher Dispatcher
	batches    BatchStore
}

func New(dispatcher Dispatcher, batches BatchStore) *Queue {
	return &Queue{dispatcher: dispatcher, batches: batches}
}

func (q *Queue) Dispatch(ctx context.Context, jobs ...*Job) error {
	return q.dispatcher.Dispatch(ctx, jobs...)
}

func (q *Queue) NewBatch(ctx context.Context, kind string, shopID, jobLogID int64) (*Batch, error) {
	b := &Batch{
		ID:       uuid.NewString(),
		Kind:     kind,
		ShopID:   shopID,
		JobLogID: jobLogID,
	}
	if err := q.batches.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AddToBatch counts the jobs in the batch before publishing them, so the batch cannot look
// finished while they are in flight.
func (q *Queue) AddToBatch(ctx context.Context, batchID string, jobs ...*Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if err := q.batches.AddJobs(ctx, batchID, len(jobs)); err != nil {
		return err
	}
	for _, job := range jobs {
		job.BatchID = batchID
	}
	if err := q.dispatcher.Dispatch(ctx, jobs...); err != nil {
		if rbErr := q.batches.AddJobs(context.WithoutCancel(ctx), batchID, -len(jobs)); rbErr != nil {
			return fmt.Errorf("%w (batch count rollback: %v)", err, rbErr)
		}
		return err
	}
	return nil
}

func (q *Queue) Batch(ctx context.Context, id string) (*Batch, error) {
	b, err := q.batches.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("batch %s: %w", id, apperr.ErrNotFound)
	}
	return b, nil
}

func (q *Queue) CancelBatch(ctx context.Context, id string) error {
	return q.batches.Cancel(ctx, id)
}
