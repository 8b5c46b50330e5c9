package batch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/batch"
	"github.com/fekuna/shopsync-service/internal/counter"
	counterrepo "github.com/fekuna/shopsync-service/internal/counter/repository"
	"github.com/fekuna/shopsync-service/internal/database/dbtest"
	"github.com/fekuna/shopsync-service/internal/generator"
	"github.com/fekuna/shopsync-service/internal/joblog"
	joblogrepo "github.com/fekuna/shopsync-service/internal/joblog/repository"
	joblogusecase "github.com/fekuna/shopsync-service/internal/joblog/usecase"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/product/dto"
	productrepo "github.com/fekuna/shopsync-service/internal/product/repository"
	productusecase "github.com/fekuna/shopsync-service/internal/product/usecase"
	"github.com/fekuna/shopsync-service/internal/queue"
	settingsrepo "github.com/fekuna/shopsync-service/internal/settings/repository"
	settingsusecase "github.com/fekuna/shopsync-service/internal/settings/usecase"
	shoprepo "github.com/fekuna/shopsync-service/internal/shop/repository"
	"github.com/fekuna/shopsync-service/internal/shopify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// immediateDelayer re-dispatches retries without waiting.
type immediateDelayer struct {
	broker *queue.MemoryBroker
}

func (d immediateDelayer) Schedule(ctx context.Context, job *queue.Job) error {
	return d.broker.Dispatch(ctx, job)
}

// flakyCounter reports contention once, on the given call.
type flakyCounter struct {
	counter.Repository
	mu     sync.Mutex
	calls  int
	failOn int
}

func (c *flakyCounter) NextValue(ctx context.Context, key counter.Key, start int64) (int64, error) {
	c.mu.Lock()
	c.calls++
	fail := c.calls == c.failOn
	c.mu.Unlock()
	if fail {
		return 0, apperr.ErrResourceContention
	}
	return c.Repository.NextValue(ctx, key, start)
}

type graphCall struct {
	variables map[string]any
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []graphCall
	err   error
}

func (f *fakeAPI) Graph(_ context.Context, _ string, variables map[string]any, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, graphCall{variables: variables})
	return f.err
}

func (f *fakeAPI) REST(context.Context, string, string, any, any) error { return nil }

func (f *fakeAPI) ForShop(*model.Shop) shopify.API { return f }

type env struct {
	shopID   int64
	products product.UseCase
	jobs     joblog.UseCase
	orch     *batch.Orchestrator
	broker   *queue.MemoryBroker
	worker   *queue.Worker
	api      *fakeAPI
}

func setup(t *testing.T, chunkSize int, wrap func(counter.Repository) counter.Repository) *env {
	t.Helper()
	db := dbtest.New(t)
	log := logger.NewNop()
	e := &env{
		shopID: dbtest.SeedShop(t, db, "demo.myshopify.com"),
		broker: queue.NewMemoryBroker(),
		api:    &fakeAPI{},
	}

	store := queue.NewMemoryBatchStore()
	q := queue.New(e.broker, store)
	shops := shoprepo.NewPGRepository(db)
	e.products = productusecase.NewProductUseCase(productrepo.NewPGRepository(db), nil, batch.NewPushNotifier(q), log)
	e.jobs = joblogusecase.NewJobLogUseCase(joblogrepo.NewPGRepository(db), log)
	settingsUC := settingsusecase.NewSettingsUseCase(settingsrepo.NewPGRepository(db), log)

	var counters counter.Repository = counterrepo.NewPGRepository(db, time.Second)
	if wrap != nil {
		counters = wrap(counters)
	}
	e.orch = batch.NewOrchestrator(e.products, counters, e.jobs, settingsUC, shops, q, chunkSize, log)

	e.worker = queue.NewWorker(e.broker, immediateDelayer{e.broker}, store, queue.WorkerOptions{}, log)
	e.orch.Register(e.worker)
	batch.NewPusher(shops, e.products, e.api, log).Register(e.worker)

	e.seed(t)
	return e
}

func strPtr(s string) *string { return &s }

func (e *env) seed(t *testing.T) {
	ctx := context.Background()
	products := []*model.Product{
		{ShopID: e.shopID, ExternalID: 1001, Title: "Tee", Status: "active", Vendor: "Acme", Variants: []model.Variant{
			{ExternalID: 5001, Title: "S", SKU: strPtr("TS-S"), Price: decimal.NewFromInt(10)},
			{ExternalID: 5002, Title: "M", Price: decimal.NewFromInt(10)},
		}},
		{ShopID: e.shopID, ExternalID: 1002, Title: "Mug", Status: "active", Vendor: "Acme", Variants: []model.Variant{
			{ExternalID: 6001, Title: "Default", Price: decimal.NewFromInt(5)},
		}},
		{ShopID: e.shopID, ExternalID: 1003, Title: "Cap", Status: "draft", Vendor: "Other", Variants: []model.Variant{
			{ExternalID: 7001, Title: "Default", Price: decimal.NewFromInt(7)},
		}},
	}
	for _, p := range products {
		require.NoError(t, e.products.SaveProduct(ctx, p))
	}
}

func (e *env) drain(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i := 0; e.broker.Len() > 0; i++ {
		require.Less(t, i, 100, "queue did not settle")
		for _, job := range e.broker.Jobs() {
			e.worker.Process(ctx, job)
		}
	}
}

func (e *env) skus(t *testing.T, ids ...int64) []string {
	t.Helper()
	variants, err := e.products.GetVariants(context.Background(), e.shopID, ids)
	require.NoError(t, err)
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		out = append(out, v.SKUValue())
	}
	return out
}

var skuRules = &generator.SKURules{Prefix: "PROD", Delimiter: "-", AutoStart: "0001"}

func TestStart_ChunkedSKURunCompletes(t *testing.T) {
	e := setup(t, 2, nil)
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{ShopID: e.shopID, Kind: model.JobKindSKU, SKURules: skuRules})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, job.Status)
	assert.Equal(t, 4, job.TotalItems)
	assert.NotEmpty(t, job.BatchID)
	assert.Equal(t, 2, e.broker.Len(), "four variants in chunks of two")

	e.drain(t)

	got, err := e.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 4, got.ProcessedItems)
	assert.Equal(t, 100, got.Progress())
	assert.Equal(t, "Generated 4 SKUs (0 failed)", got.Message)
	assert.Equal(t, []string{"PROD-0001", "PROD-0002", "PROD-0003", "PROD-0004"}, e.skus(t, 5001, 5002, 6001, 7001))
	assert.Zero(t, e.broker.Len(), "generation saves quietly")
}

func TestStart_UsesShopDefaultRulesAndFilter(t *testing.T) {
	e := setup(t, 0, nil)
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{
		ShopID: e.shopID,
		Kind:   model.JobKindSKU,
		Filter: &dto.VariantFilter{Vendor: "Other"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, job.TotalItems)
	e.drain(t)

	assert.Equal(t, []string{"SKU-0001"}, e.skus(t, 7001))
	assert.Equal(t, []string{"TS-S"}, e.skus(t, 5001), "unselected variants are untouched")
}

func TestStart_Barcodes(t *testing.T) {
	e := setup(t, 0, nil)
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{
		ShopID:       e.shopID,
		Kind:         model.JobKindBarcode,
		VariantIDs:   []int64{5002, 6001, 5002},
		BarcodeRules: &generator.BarcodeRules{Format: "ean13", AutoFill: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, job.TotalItems, "duplicate ids are selected once")
	e.drain(t)

	barcodes, err := e.products.ListBarcodes(ctx, e.shopID, []int64{5002, 6001})
	require.NoError(t, err)
	require.Len(t, barcodes, 2)
	for _, b := range barcodes {
		assert.Len(t, b.Value, 13)
		assert.True(t, generator.ValidChecksum(b.Value), b.Value)
		assert.Equal(t, generator.FormatEAN13, b.Format)
		assert.False(t, b.Duplicate)
	}

	got, err := e.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Generated 2 barcodes (0 failed)", got.Message)
}

func TestStart_EmptySelectionCompletesImmediately(t *testing.T) {
	e := setup(t, 0, nil)

	job, err := e.orch.Start(context.Background(), &batch.GenerateRequest{
		ShopID:   e.shopID,
		Kind:     model.JobKindSKU,
		Filter:   &dto.VariantFilter{Vendor: "Nobody"},
		SKURules: skuRules,
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 0, job.Progress())
	assert.Equal(t, "Generated 0 SKUs (0 failed)", job.Message)
	assert.Zero(t, e.broker.Len())
}

func TestStart_RejectsInvalidRequests(t *testing.T) {
	e := setup(t, 0, nil)
	ctx := context.Background()

	_, err := e.orch.Start(ctx, &batch.GenerateRequest{ShopID: e.shopID, Kind: "colour"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = e.orch.Start(ctx, &batch.GenerateRequest{
		ShopID: e.shopID, Kind: model.JobKindBarcode, BarcodeRules: &generator.BarcodeRules{Format: "PDF417"},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = e.orch.Start(ctx, &batch.GenerateRequest{
		ShopID: e.shopID, Kind: model.JobKindSKU, SKURules: skuRules, Filter: &dto.VariantFilter{Status: "deleted"},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	jobs, err := e.jobs.ListJobs(ctx, e.shopID, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected requests leave no job behind")
}

func TestGenerate_MissingVariantCountsAsFailedItem(t *testing.T) {
	e := setup(t, 0, nil)
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{
		ShopID: e.shopID, Kind: model.JobKindSKU, SKURules: skuRules, VariantIDs: []int64{5001, 999999},
	})
	require.NoError(t, err)
	e.drain(t)

	got, err := e.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, got.ProcessedItems)
	assert.Equal(t, 1, got.FailedItems)
	assert.Equal(t, "Generated 1 SKUs (1 failed)", got.Message)
}

func TestGenerate_ContentionRetriesOnlyTheRest(t *testing.T) {
	var flaky *flakyCounter
	e := setup(t, 0, func(r counter.Repository) counter.Repository {
		flaky = &flakyCounter{Repository: r, failOn: 2}
		return flaky
	})
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{ShopID: e.shopID, Kind: model.JobKindSKU, SKURules: skuRules})
	require.NoError(t, err)
	e.drain(t)

	got, err := e.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 4, got.ProcessedItems)
	assert.Zero(t, got.FailedItems)
	assert.Equal(t, 5, flaky.calls, "the first item is not minted twice")
	assert.Equal(t, []string{"PROD-0001", "PROD-0002", "PROD-0003", "PROD-0004"}, e.skus(t, 5001, 5002, 6001, 7001))
}

func TestCancel(t *testing.T) {
	e := setup(t, 1, nil)
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{ShopID: e.shopID, Kind: model.JobKindSKU, SKURules: skuRules})
	require.NoError(t, err)
	queued := e.broker.Jobs()
	require.Len(t, queued, 4)

	e.worker.Process(ctx, queued[0])
	assert.ErrorIs(t, e.orch.Cancel(ctx, e.shopID+1, job.ID), apperr.ErrNotFound)
	require.NoError(t, e.orch.Cancel(ctx, e.shopID, job.ID))
	for _, j := range queued[1:] {
		e.worker.Process(ctx, j)
	}

	got, err := e.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "cancelled", got.ErrorMessage)
	assert.Equal(t, 1, got.ProcessedItems)
	assert.Equal(t, []string{"PROD-0001", "", "", ""}, e.skus(t, 5001, 5002, 6001, 7001), "only the first chunk ran")

	assert.ErrorIs(t, e.orch.Cancel(ctx, e.shopID, job.ID), apperr.ErrInvalidTransition)
}

func TestSyncToShopify_OnePushPerProduct(t *testing.T) {
	e := setup(t, 0, nil)
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{
		ShopID: e.shopID, Kind: model.JobKindSKU, SKURules: skuRules, SyncToShopify: true,
	})
	require.NoError(t, err)
	e.drain(t)

	got, err := e.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	require.Len(t, e.api.calls, 3)
	products := map[any]int{}
	for _, c := range e.api.calls {
		products[c.variables["productId"]]++
	}
	assert.Equal(t, map[any]int{
		"gid://shopify/Product/1001": 1,
		"gid://shopify/Product/1002": 1,
		"gid://shopify/Product/1003": 1,
	}, products)
}

func TestSyncToShopify_FailedPushFailsTheJob(t *testing.T) {
	e := setup(t, 0, nil)
	e.api.err = errors.New("productVariantsBulkUpdate: sku is invalid")
	ctx := context.Background()

	job, err := e.orch.Start(ctx, &batch.GenerateRequest{
		ShopID: e.shopID, Kind: model.JobKindSKU, SKURules: skuRules, SyncToShopify: true, VariantIDs: []int64{6001},
	})
	require.NoError(t, err)
	e.drain(t)

	got, err := e.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "productVariantsBulkUpdate: sku is invalid", got.ErrorMessage)
	assert.Equal(t, 1, got.ProcessedItems, "the local write stands")
}

func TestPushNotifier_LocalEditQueuesPush(t *testing.T) {
	e := setup(t, 0, nil)
	ctx := context.Background()

	require.NoError(t, e.products.SaveVariantCodes(ctx, e.shopID, 5002, &dto.VariantCodes{SKU: strPtr("TS-M")}, true))
	jobs := e.broker.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, queue.TypeVariantPush, jobs[0].Type)
	assert.Empty(t, jobs[0].BatchID)
	assert.JSONEq(t, `{"product_id":1001,"variant_ids":[5002]}`, string(jobs[0].Payload))

	e.worker.Process(ctx, jobs[0])
	require.Len(t, e.api.calls, 1)
	assert.Equal(t, "gid://shopify/Product/1001", e.api.calls[0].variables["productId"])
}
