package batch

import (
	"context"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/queue"
	"github.com/fekuna/shopsync-service/internal/shop"
	"github.com/fekuna/shopsync-service/internal/shopify"
	shopifydto "github.com/fekuna/shopsync-service/internal/shopify/dto"
	"go.uber.org/zap"
)

// Pusher writes locally generated codes back to Shopify, one product per job.
type Pusher struct {
	shops    shop.Repository
	products product.UseCase
	clients  shopify.Factory
	logger   logger.ZapLogger
}

func NewPusher(shops shop.Repository, products product.UseCase, clients shopify.Factory, log logger.ZapLogger) *Pusher {
	return &Pusher{
		shops:    shops,
		products: products,
		clients:  clients,
		logger:   log,
	}
}

func (p *Pusher) Register(w *queue.Worker) {
	w.Handle(queue.TypeVariantPush, p.handlePush)
}

func (p *Pusher) handlePush(ctx context.Context, job *queue.Job) error {
	if queue.Cancelled(ctx) {
		return nil
	}
	var payload pushPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}

	s, err := p.shops.FindByID(ctx, job.ShopID)
	if err != nil {
		return err
	}
	if s == nil {
		return queue.Permanent(fmt.Errorf("shop %d: %w", job.ShopID, apperr.ErrNotFound))
	}

	variants, err := p.products.GetVariants(ctx, job.ShopID, payload.VariantIDs)
	if err != nil {
		return err
	}
	inputs := variantInputs(variants, payload.Kind)
	if len(inputs) == 0 {
		return nil
	}

	err = shopify.PushVariantCodes(ctx, p.clients.ForShop(s), payload.ProductID, inputs)
	if err != nil {
		if shopify.IsTransient(err) || ctx.Err() != nil {
			return err
		}
		return queue.Permanent(err)
	}
	p.logger.Info("pushed variant codes to shopify",
		zap.String("shop", s.Domain),
		zap.Int64("product_id", payload.ProductID),
		zap.Int("variants", len(inputs)),
	)
	return nil
}

func variantInputs(variants []model.Variant, kind string) []shopifydto.VariantInput {
	inputs := make([]shopifydto.VariantInput, 0, len(variants))
	for _, v := range variants {
		in := shopifydto.VariantInput{ID: shopify.VariantGID(v.ExternalID)}
		if kind != model.JobKindBarcode && v.SKU != nil {
			in.InventoryItem = &shopifydto.InventoryItemInput{SKU: *v.SKU}
		}
		if kind != model.JobKindSKU && v.Barcode != nil {
			in.Barcode = v.Barcode
		}
		if in.InventoryItem == nil && in.Barcode == nil {
			continue
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// PushNotifier turns local variant edits into push jobs outside of any batch.
type PushNotifier struct {
	queue *queue.Queue
}

var _ product.Notifier = (*PushNotifier)(nil)

func NewPushNotifier(q *queue.Queue) *PushNotifier {
	return &PushNotifier{queue: q}
}

func (n *PushNotifier) VariantsChanged(ctx context.Context, shopID, productExternalID int64, variantIDs []int64) error {
	job, err := queue.NewJob(queue.TypeVariantPush, shopID, pushPayload{
		ProductID:  productExternalID,
		VariantIDs: variantIDs,
	})
	if err != nil {
		return err
	}
	return n.queue.Dispatch(ctx, job)
}
