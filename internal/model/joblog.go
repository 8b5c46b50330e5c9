package model

import (
	"math"
	"time"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

const (
	JobKindSKU     = "sku"
	JobKindBarcode = "barcode"
)

type JobLog struct {
	ID             int64      `db:"id" json:"id"`
	ShopID         int64      `db:"shop_id" json:"shop_id"`
	Kind           string     `db:"kind" json:"kind"`
	BatchID        string     `db:"batch_id" json:"batch_id"`
	Status         string     `db:"status" json:"status"`
	TotalItems     int        `db:"total_items" json:"total_items"`
	ProcessedItems int        `db:"processed_items" json:"processed_items"`
	FailedItems    int        `db:"failed_items" json:"failed_items"`
	Message        string     `db:"message" json:"message"`
	ErrorMessage   string     `db:"error_message" json:"error_message"`
	StartedAt      *time.Time `db:"started_at" json:"started_at"`
	FinishedAt     *time.Time `db:"finished_at" json:"finished_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Progress is processed/total as a rounded percentage capped at 100, and 0 without a total.
func (j *JobLog) Progress() int {
	if j.TotalItems <= 0 {
		return 0
	}
	p := int(math.Round(float64(j.ProcessedItems) / float64(j.TotalItems) * 100))
	if p > 100 {
		return 100
	}
	return p
}

func (j *JobLog) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
