package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/counter"
	"github.com/fekuna/shopsync-service/internal/generator"
	"github.com/fekuna/shopsync-service/internal/joblog"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/product/dto"
	"github.com/fekuna/shopsync-service/internal/queue"
	"github.com/fekuna/shopsync-service/internal/settings"
	"github.com/fekuna/shopsync-service/internal/shop"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Orchestrator struct {
	products  product.UseCase
	counters  counter.Repository
	jobs      joblog.UseCase
	settings  settings.UseCase
	shops     shop.Repository
	queue     *queue.Queue
	chunkSize int
	validate  *validator.Validate
	logger    logger.ZapLogger
}

// NewOrchestrator wires a generation runner. settings may be nil, in which case every
// request must carry its own rules.
func NewOrchestrator(
	products product.UseCase,
	counters counter.Repository,
	jobs joblog.UseCase,
	settingsUC settings.UseCase,
	shops shop.Repository,
	q *queue.Queue,
	chunkSize int,
	log logger.ZapLogger,
) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Orchestrator{
		products:  products,
		counters:  counters,
		jobs:      jobs,
		settings:  settingsUC,
		shops:     shops,
		queue:     q,
		chunkSize: chunkSize,
		validate:  validator.New(),
		logger:    log,
	}
}

// Register installs the generate handler and the batch callbacks on a worker.
func (o *Orchestrator) Register(w *queue.Worker) {
	w.Handle(queue.TypeBatchGenerate, o.handleGenerate)
	cb := queue.BatchCallbacks{
		OnFirstFailure: o.onFirstFailure,
		OnComplete:     o.onComplete,
	}
	w.OnBatch(model.JobKindSKU, cb)
	w.OnBatch(model.JobKindBarcode, cb)
}

// Start records a JobLog for the run and enqueues one generate job per chunk. The
// returned JobLog is already running, or completed when nothing matched.
func (o *Orchestrator) Start(ctx context.Context, req *GenerateRequest) (*model.JobLog, error) {
	if err := o.prepare(ctx, req); err != nil {
		return nil, err
	}

	ids, err := o.resolve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve variants: %w", err)
	}

	job, err := o.jobs.CreateJob(ctx, req.ShopID, req.Kind, len(ids))
	if err != nil {
		return nil, err
	}
	// Running before dispatch, so completion callbacks always find a running job.
	if err := o.jobs.StartJob(ctx, job.ID); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		if err := o.jobs.CompleteJob(ctx, job.ID, Summary(req.Kind, 0, 0)); err != nil {
			return nil, err
		}
		return o.jobs.GetJob(ctx, job.ID)
	}

	if err := o.dispatch(ctx, req, job.ID, ids); err != nil {
		if fErr := o.jobs.FailJob(context.WithoutCancel(ctx), job.ID, err.Error()); fErr != nil {
			o.logger.Error("failed to mark job failed", zap.Int64("job_id", job.ID), zap.Error(fErr))
		}
		return nil, err
	}

	o.logger.Info("generation started",
		zap.Int64("job_id", job.ID),
		zap.Int64("shop_id", req.ShopID),
		zap.String("kind", req.Kind),
		zap.Int("variants", len(ids)),
	)
	return o.jobs.GetJob(ctx, job.ID)
}

// prepare validates the request and fills in the shop's default rules.
func (o *Orchestrator) prepare(ctx context.Context, req *GenerateRequest) error {
	if req.BarcodeRules != nil {
		req.BarcodeRules.Normalize()
	}
	if err := o.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if req.Filter != nil {
		if err := o.validate.Struct(req.Filter); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
	}

	switch req.Kind {
	case model.JobKindSKU:
		if req.SKURules == nil {
			if o.settings == nil {
				return fmt.Errorf("%w: sku_rules required", apperr.ErrInvalidInput)
			}
			rules, err := o.settings.SKURules(ctx, req.ShopID)
			if err != nil {
				return err
			}
			req.SKURules = &rules
		}
		if err := req.SKURules.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
	case model.JobKindBarcode:
		if req.BarcodeRules == nil {
			if o.settings == nil {
				return fmt.Errorf("%w: barcode_rules required", apperr.ErrInvalidInput)
			}
			rules, err := o.settings.BarcodeRules(ctx, req.ShopID)
			if err != nil {
				return err
			}
			req.BarcodeRules = &rules
		}
		req.BarcodeRules.Normalize()
		if err := req.BarcodeRules.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
	}
	return nil
}

func (o *Orchestrator) resolve(ctx context.Context, req *GenerateRequest) ([]int64, error) {
	if len(req.VariantIDs) > 0 {
		return dedupe(req.VariantIDs), nil
	}
	filter := &dto.VariantFilter{}
	if req.Filter != nil {
		cp := *req.Filter
		filter = &cp
	}
	filter.ShopID = req.ShopID
	return o.products.ResolveVariantIDs(ctx, filter)
}

func (o *Orchestrator) dispatch(ctx context.Context, req *GenerateRequest, jobLogID int64, ids []int64) error {
	b, err := o.queue.NewBatch(ctx, req.Kind, req.ShopID, jobLogID)
	if err != nil {
		return err
	}
	if err := o.jobs.AttachBatch(ctx, jobLogID, b.ID); err != nil {
		return err
	}

	chunks := chunk(ids, o.chunkSize)
	jobs := make([]*queue.Job, 0, len(chunks))
	for _, c := range chunks {
		job, err := queue.NewJob(queue.TypeBatchGenerate, req.ShopID, generatePayload{
			Kind:          req.Kind,
			JobLogID:      jobLogID,
			VariantIDs:    c,
			SKURules:      req.SKURules,
			BarcodeRules:  req.BarcodeRules,
			SyncToShopify: req.SyncToShopify,
		})
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}
	return o.queue.AddToBatch(ctx, b.ID, jobs...)
}

// Cancel stops a run: queued jobs of its batch are skipped and the JobLog fails with
// "cancelled". Items already generated stay generated.
func (o *Orchestrator) Cancel(ctx context.Context, shopID, jobLogID int64) error {
	job, err := o.jobs.GetJob(ctx, jobLogID)
	if err != nil {
		return err
	}
	if job == nil || job.ShopID != shopID {
		return fmt.Errorf("job %d: %w", jobLogID, apperr.ErrNotFound)
	}
	if job.Terminal() {
		return fmt.Errorf("job %d is %s: %w", jobLogID, job.Status, apperr.ErrInvalidTransition)
	}

	if job.BatchID != "" {
		if err := o.queue.CancelBatch(ctx, job.BatchID); err != nil {
			return err
		}
	}
	if err := o.jobs.FailJob(ctx, jobLogID, "cancelled"); err != nil {
		return err
	}
	o.logger.Info("generation cancelled", zap.Int64("job_id", jobLogID), zap.Int64("shop_id", shopID))
	return nil
}

func (o *Orchestrator) onFirstFailure(ctx context.Context, b *queue.Batch, cause error) error {
	err := o.jobs.FailJob(ctx, b.JobLogID, cause.Error())
	if errors.Is(err, apperr.ErrInvalidTransition) {
		return nil
	}
	return err
}

func (o *Orchestrator) onComplete(ctx context.Context, b *queue.Batch) error {
	job, err := o.jobs.GetJob(ctx, b.JobLogID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %d: %w", b.JobLogID, apperr.ErrNotFound)
	}
	// failed runs keep their failure
	if job.Terminal() {
		return nil
	}
	return o.jobs.CompleteJob(ctx, job.ID, Summary(job.Kind, job.ProcessedItems, job.FailedItems))
}

func (o *Orchestrator) handleGenerate(ctx context.Context, job *queue.Job) error {
	if queue.Cancelled(ctx) {
		return nil
	}
	var p generatePayload
	if err := job.Decode(&p); err != nil {
		return err
	}
	log := o.logger.With(zap.Int64("job_id", p.JobLogID), zap.Int64("shop_id", job.ShopID), zap.String("kind", p.Kind))

	variants, err := o.products.GetVariants(ctx, job.ShopID, p.VariantIDs)
	if err != nil {
		return err
	}
	byID := make(map[int64]*model.Variant, len(variants))
	for i := range variants {
		byID[variants[i].ExternalID] = &variants[i]
	}

	var productURL func(productID int64) string
	if p.Kind == model.JobKindBarcode {
		productURL, err = o.productURLs(ctx, job.ShopID)
		if err != nil {
			return err
		}
	}

	touched := make(map[int64][]int64)
	for i, id := range p.VariantIDs {
		v, ok := byID[id]
		if !ok {
			log.Warn("variant no longer mirrored", zap.Int64("variant_id", id))
			o.itemFailed(ctx, p.JobLogID, log)
			continue
		}

		err := o.generateOne(ctx, job.ShopID, &p, v, productURL)
		switch {
		case err == nil:
			touched[v.ProductExternalID] = append(touched[v.ProductExternalID], id)
			if err := o.jobs.ItemProcessed(ctx, p.JobLogID); err != nil {
				log.Error("failed to count processed item", zap.Error(err))
			}
		case errors.Is(err, apperr.ErrResourceContention), ctx.Err() != nil:
			// Only what is left is retried; finished items already consumed their counter
			// values.
			o.enqueuePush(ctx, job, &p, touched, log)
			rest := p
			rest.VariantIDs = p.VariantIDs[i:]
			return queue.RetryWith(err, rest)
		default:
			log.Warn("item generation failed", zap.Int64("variant_id", id), zap.Error(err))
			o.itemFailed(ctx, p.JobLogID, log)
		}
	}

	o.enqueuePush(ctx, job, &p, touched, log)
	return nil
}

func (o *Orchestrator) itemFailed(ctx context.Context, jobLogID int64, log logger.ZapLogger) {
	if err := o.jobs.ItemFailed(ctx, jobLogID); err != nil {
		log.Error("failed to count failed item", zap.Error(err))
	}
}

func (o *Orchestrator) generateOne(ctx context.Context, shopID int64, p *generatePayload, v *model.Variant, productURL func(int64) string) error {
	switch p.Kind {
	case model.JobKindSKU:
		rules := *p.SKURules
		n, err := o.counters.NextValue(ctx, sequenceKey(shopID, counter.ScopeSKU, rules.PerProduct, v.ProductExternalID),
			generator.StartValue(rules.AutoStart))
		if err != nil {
			return err
		}
		sku := generator.GenerateSKU(n, rules)
		return o.products.SaveVariantCodes(ctx, shopID, v.ExternalID, &dto.VariantCodes{SKU: &sku}, false)

	case model.JobKindBarcode:
		rules := *p.BarcodeRules
		n, err := o.counters.NextValue(ctx, sequenceKey(shopID, counter.ScopeBarcode, rules.PerProduct, v.ProductExternalID),
			generator.StartValue(rules.AutoStart))
		if err != nil {
			return err
		}
		code, err := generator.GenerateBarcode(generator.VariantInput{
			VariantID:  v.ExternalID,
			SKU:        v.SKUValue(),
			ProductURL: productURL(v.ProductExternalID),
		}, rules, n)
		if err != nil {
			return err
		}
		format := strings.ToUpper(rules.Format)
		return o.products.SaveVariantCodes(ctx, shopID, v.ExternalID, &dto.VariantCodes{Barcode: &code, BarcodeFormat: &format}, false)
	}
	return queue.Permanent(fmt.Errorf("unknown generation kind %q", p.Kind))
}

func sequenceKey(shopID int64, scope string, perProduct bool, productID int64) counter.Key {
	if perProduct {
		scope = counter.ProductScope(scope, productID)
	}
	return counter.Key{ShopID: shopID, Scope: scope}
}

func (o *Orchestrator) productURLs(ctx context.Context, shopID int64) (func(int64) string, error) {
	var domain string
	if o.shops != nil {
		s, err := o.shops.FindByID(ctx, shopID)
		if err != nil {
			return nil, err
		}
		if s != nil {
			domain = s.Domain
		}
	}
	return func(productID int64) string {
		if domain == "" {
			return ""
		}
		return fmt.Sprintf("https://%s/admin/products/%d", domain, productID)
	}, nil
}

// enqueuePush adds one push job per touched product to the running batch.
func (o *Orchestrator) enqueuePush(ctx context.Context, job *queue.Job, p *generatePayload, touched map[int64][]int64, log logger.ZapLogger) {
	if !p.SyncToShopify || len(touched) == 0 || job.BatchID == "" {
		return
	}
	pushes := make([]*queue.Job, 0, len(touched))
	for productID, variantIDs := range touched {
		push, err := queue.NewJob(queue.TypeVariantPush, job.ShopID, pushPayload{
			ProductID:  productID,
			VariantIDs: variantIDs,
			Kind:       p.Kind,
		})
		if err != nil {
			log.Error("failed to build push job", zap.Int64("product_id", productID), zap.Error(err))
			continue
		}
		pushes = append(pushes, push)
	}
	if err := o.queue.AddToBatch(context.WithoutCancel(ctx), job.BatchID, pushes...); err != nil {
		log.Error("failed to enqueue shopify push", zap.Int("products", len(pushes)), zap.Error(err))
	}
}
