// Package queue runs units of work asynchronously: dispatch, retry with backoff, batches
// with completion callbacks, and cooperative cancellation.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeProductUpsert = "webhook.product_upsert"
	TypeProductDelete = "webhook.product_delete"
	TypeCatalogCrawl  = "catalog.crawl"
	TypeCatalogPage   = "catalog.page"
	TypeBatchGenerate = "batch.generate"
	TypeVariantPush   = "batch.sync"
)

type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	ShopID      int64           `json:"shop_id"`
	BatchID     string          `json:"batch_id,omitempty"`
	Attempt     int             `json:"attempt"`
	Payload     json.RawMessage `json:"payload"`
	AvailableAt time.Time       `json:"available_at"`
}

func NewJob(jobType string, shopID int64, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	return &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		ShopID:      shopID,
		Attempt:     1,
		Payload:     raw,
		AvailableAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload; a payload that does not decode can never succeed.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode %s payload: %w", j.Type, err))
	}
	return nil
}

type Handler func(ctx context.Context, job *Job) error

type Dispatcher interface {
	Dispatch(ctx context.Context, jobs ...*Job) error
}

// Delayer parks a job until its AvailableAt.
type Delayer interface {
	Schedule(ctx context.Context, job *Job) error
}

// Delivery is one fetched job plus its acknowledgement.
type Delivery struct {
	Job *Job
	Ack func(ctx context.Context) error
}

// Source yields jobs to a worker. Fetch blocks until a job arrives or ctx ends.
type Source interface {
	Fetch(ctx context.Context) (*Delivery, error)
}
