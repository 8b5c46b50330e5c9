package queue

import (
	"context"
)

// Batch groups jobs so their completion can be observed as a whole.
type Batch struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ShopID    int64  `json:"shop_id"`
	JobLogID  int64  `json:"joblog_id"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Failed    int    `json:"failed"`
	Cancelled bool   `json:"cancelled"`
}

func (b *Batch) Finished() bool {
	return b.Pending <= 0
}

// BatchStore keeps batch counters. Every mutation is atomic and returns the state right
// after it, so exactly one caller observes a given transition.
type BatchStore interface {
	Create(ctx context.Context, b *Batch) error
	Get(ctx context.Context, id string) (*Batch, error)
	AddJobs(ctx context.Context, id string, n int) error
	JobSucceeded(ctx context.Context, id string) (*Batch, error)
	JobFailed(ctx context.Context, id string) (*Batch, error)
	Cancel(ctx context.Context, id string) error
	Cancelled(ctx context.Context, id string) (bool, error)
}

// BatchCallbacks fire from the worker that finishes the triggering job.
type BatchCallbacks struct {
	// OnFirstFailure runs once, when the first job of the batch fails for good.
	OnFirstFailure func(ctx context.Context, b *Batch, cause error) error
	// OnComplete runs once, when no job of the batch is pending any more.
	OnComplete func(ctx context.Context, b *Batch) error
}
