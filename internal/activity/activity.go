// Package activity records per-item operator events (skipped payloads, failed variants)
// next to the aggregate counts kept on JobLog.
package activity

import (
	"context"
	"time"

	"github.com/fekuna/shopsync-service/internal/logger"
	"go.uber.org/zap"
)

const (
	LevelInfo  = "info"
	LevelError = "error"
)

type Entry struct {
	ShopID    int64     `bson:"shop_id" json:"shop_id"`
	JobLogID  int64     `bson:"job_log_id,omitempty" json:"job_log_id,omitempty"`
	Kind      string    `bson:"kind" json:"kind"`
	Subject   string    `bson:"subject" json:"subject"`
	Level     string    `bson:"level" json:"level"`
	Message   string    `bson:"message" json:"message"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Recorder never fails the caller; a lost activity entry is only logged.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// LogRecorder writes entries to the application log only.
type LogRecorder struct {
	logger logger.ZapLogger
}

func NewLogRecorder(log logger.ZapLogger) *LogRecorder {
	return &LogRecorder{logger: log}
}

func (r *LogRecorder) Record(_ context.Context, e Entry) {
	fields := entryFields(e)
	if e.Level == LevelError {
		r.logger.Warn("activity", fields...)
		return
	}
	r.logger.Info("activity", fields...)
}

func entryFields(e Entry) []zap.Field {
	return []zap.Field{
		zap.Int64("shop_id", e.ShopID),
		zap.Int64("job_log_id", e.JobLogID),
		zap.String("kind", e.Kind),
		zap.String("subject", e.Subject),
		zap.String("message", e.Message),
	}
}
