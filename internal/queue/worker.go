package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fekuna/shopsync-service/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type WorkerOptions struct {
	Concurrency int
	JobTimeout  time.Duration
	Retry       RetryPolicy
}

// Worker pulls jobs from a Source and runs the registered handler for each.
type Worker struct {
	source    Source
	delayer   Delayer
	batches   BatchStore
	handlers  map[string]Handler
	callbacks map[string]BatchCallbacks
	opts      WorkerOptions
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewWorker(source Source, delayer Delayer, batches BatchStore, opts WorkerOptions, log logger.ZapLogger) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = DefaultRetryPolicy()
	}
	return &Worker{
		source:    source,
		delayer:   delayer,
		batches:   batches,
		handlers:  make(map[string]Handler),
		callbacks: make(map[string]BatchCallbacks),
		opts:      opts,
		logger:    log,
		now:       time.Now,
	}
}

func (w *Worker) Handle(jobType string, h Handler) {
	w.handlers[jobType] = h
}

// OnBatch registers the callbacks for batches of the given kind.
func (w *Worker) OnBatch(kind string, cb BatchCallbacks) {
	w.callbacks[kind] = cb
}

// Start blocks until ctx is cancelled. One goroutine fetches; Concurrency goroutines run
// handlers.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting queue worker", zap.Int("concurrency", w.opts.Concurrency))
	deliveries := make(chan *Delivery)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(deliveries)
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping queue worker")
				return nil
			default:
			}

			d, err := w.source.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("Failed to fetch job", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			select {
			case deliveries <- d:
			case <-ctx.Done():
				return nil
			}
		}
	})

	for i := 0; i < w.opts.Concurrency; i++ {
		g.Go(func() error {
			for d := range deliveries {
				w.deliver(ctx, d)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) deliver(ctx context.Context, d *Delivery) {
	if d.Job == nil {
		w.logger.Error("Skipping undecodable job message")
	} else {
		w.Process(ctx, d.Job)
	}
	if err := d.Ack(context.WithoutCancel(ctx)); err != nil {
		w.logger.Error("Failed to ack job", zap.Error(err))
	}
}

// Process runs one job to its outcome: success, scheduled retry or final failure.
func (w *Worker) Process(ctx context.Context, job *Job) {
	if job.Attempt < 1 {
		job.Attempt = 1
	}
	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.Int64("shop_id", job.ShopID),
		zap.Int("attempt", job.Attempt),
	)

	h, ok := w.handlers[job.Type]
	if !ok {
		log.Error("No handler registered for job type")
		w.finish(ctx, job, Permanent(fmt.Errorf("unknown job type %q", job.Type)))
		return
	}

	if job.BatchID != "" {
		cancelled, err := w.batches.Cancelled(ctx, job.BatchID)
		if err != nil {
			log.Warn("Failed to read batch state", zap.Error(err))
		}
		if cancelled {
			log.Info("Skipping job of cancelled batch", zap.String("batch_id", job.BatchID))
			w.finish(ctx, job, nil)
			return
		}
	}

	err := w.run(ctx, h, job)
	if err == nil {
		w.finish(ctx, job, nil)
		return
	}

	if IsPermanent(err) || w.opts.Retry.Exhausted(job.Attempt) {
		log.Error("Job failed", zap.Error(err), zap.Bool("permanent", IsPermanent(err)))
		w.finish(ctx, job, err)
		return
	}

	next := *job
	next.Attempt++
	next.AvailableAt = w.now().UTC().Add(w.opts.Retry.Delay(job.Attempt))
	if payload, ok := retryPayload(err); ok {
		next.Payload = payload
	}
	if sErr := w.delayer.Schedule(context.WithoutCancel(ctx), &next); sErr != nil {
		log.Error("Failed to schedule retry", zap.Error(sErr), zap.NamedError("cause", err))
		w.finish(ctx, job, errors.Join(err, sErr))
		return
	}
	log.Warn("Job failed, retry scheduled", zap.Error(err), zap.Time("available_at", next.AvailableAt))
}

func (w *Worker) run(ctx context.Context, h Handler, job *Job) (err error) {
	jobCtx, cancel := context.WithTimeout(ctx, w.opts.JobTimeout)
	defer cancel()
	jobCtx = withJobState(jobCtx, job, w.batches)

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Job handler panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = Permanent(fmt.Errorf("panic: %v", r))
		}
	}()
	return h(jobCtx, job)
}

// finish records the final outcome of a batch job and fires the batch callbacks.
func (w *Worker) finish(ctx context.Context, job *Job, cause error) {
	if job.BatchID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var (
		b   *Batch
		err error
	)
	if cause == nil {
		b, err = w.batches.JobSucceeded(ctx, job.BatchID)
	} else {
		b, err = w.batches.JobFailed(ctx, job.BatchID)
	}
	if err != nil {
		w.logger.Error("Failed to record batch job outcome",
			zap.String("batch_id", job.BatchID), zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	cb := w.callbacks[b.Kind]
	if cause != nil && b.Failed == 1 && cb.OnFirstFailure != nil {
		if err := cb.OnFirstFailure(ctx, b, cause); err != nil {
			w.logger.Error("Batch failure callback failed", zap.String("batch_id", b.ID), zap.Error(err))
		}
	}
	if b.Finished() && cb.OnComplete != nil {
		if err := cb.OnComplete(ctx, b); err != nil {
			w.logger.Error("Batch completion callback failed", zap.String("batch_id", b.ID), zap.Error(err))
		}
	}
}
