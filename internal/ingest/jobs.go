package ingest

import (
	"context"

	"github.com/fekuna/shopsync-service/internal/queue"
)

// WebhookJob carries a webhook body verbatim from the HTTP edge to a worker.
type WebhookJob struct {
	ShopDomain string `json:"shop_domain"`
	Body       []byte `json:"body"`
}

func (i *Ingestor) Register(w *queue.Worker) {
	w.Handle(queue.TypeProductUpsert, func(ctx context.Context, job *queue.Job) error {
		var p WebhookJob
		if err := job.Decode(&p); err != nil {
			return err
		}
		return i.HandleUpsert(ctx, p.ShopDomain, p.Body)
	})
	w.Handle(queue.TypeProductDelete, func(ctx context.Context, job *queue.Job) error {
		var p WebhookJob
		if err := job.Decode(&p); err != nil {
			return err
		}
		return i.HandleDelete(ctx, p.ShopDomain, p.Body)
	})
}
