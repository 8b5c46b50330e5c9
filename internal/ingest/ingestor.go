package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fekuna/shopsync-service/internal/activity"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/shop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ActivityKind           = "ingest"
	defaultPageConcurrency = 4
)

type Ingestor struct {
	shops           shop.Repository
	products        product.UseCase
	activity        activity.Recorder
	logger          logger.ZapLogger
	pageConcurrency int
}

func NewIngestor(shops shop.Repository, products product.UseCase, rec activity.Recorder, log logger.ZapLogger) *Ingestor {
	return &Ingestor{
		shops:           shops,
		products:        products,
		activity:        rec,
		logger:          log,
		pageConcurrency: defaultPageConcurrency,
	}
}

// SetPageConcurrency bounds how many products of one page are upserted in parallel.
func (i *Ingestor) SetPageConcurrency(n int) {
	if n > 0 {
		i.pageConcurrency = n
	}
}

// HandleUpsert processes a products/create or products/update payload. Unknown shops and
// malformed payloads are logged and dropped; only storage errors are returned.
func (i *Ingestor) HandleUpsert(ctx context.Context, shopDomain string, raw []byte) error {
	s, err := i.shops.FindByDomain(ctx, shopDomain)
	if err != nil {
		return err
	}
	if s == nil {
		i.logger.Warn("product webhook for unknown shop, skipping", zap.String("shop", shopDomain))
		return nil
	}

	p, err := Normalize(raw)
	if err != nil {
		i.skip(ctx, s.ID, "webhook", err)
		return nil
	}
	p.ShopID = s.ID

	if err := i.products.SaveProduct(ctx, p); err != nil {
		return fmt.Errorf("save product %d: %w", p.ExternalID, err)
	}
	i.logger.Debug("product upserted",
		zap.Int64("shop_id", s.ID),
		zap.Int64("product_id", p.ExternalID),
		zap.Int("variants", len(p.Variants)),
	)
	return nil
}

// HandleDelete processes a products/delete payload.
func (i *Ingestor) HandleDelete(ctx context.Context, shopDomain string, raw []byte) error {
	s, err := i.shops.FindByDomain(ctx, shopDomain)
	if err != nil {
		return err
	}
	if s == nil {
		i.logger.Warn("product delete for unknown shop, skipping", zap.String("shop", shopDomain))
		return nil
	}

	id, err := ProductID(raw)
	if err != nil {
		i.skip(ctx, s.ID, "webhook", err)
		return nil
	}
	return i.products.DeleteProduct(ctx, s.ID, id)
}

type PageResult struct {
	Saved   int
	Skipped int
}

// IngestPage upserts every product node of one crawled page. A failing product is recorded
// and skipped; the rest of the page still lands.
func (i *Ingestor) IngestPage(ctx context.Context, shopID int64, nodes []json.RawMessage) (PageResult, error) {
	var saved, skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(i.pageConcurrency)
	for idx, node := range nodes {
		idx, node := idx, node
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := i.ingestNode(ctx, shopID, node); err != nil {
				skipped.Add(1)
				i.skip(ctx, shopID, fmt.Sprintf("page item %d", idx), err)
				return nil
			}
			saved.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := PageResult{Saved: int(saved.Load()), Skipped: int(skipped.Load())}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (i *Ingestor) ingestNode(ctx context.Context, shopID int64, node json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while ingesting: %v", r)
		}
	}()

	var p *model.Product
	if p, err = Normalize(node); err != nil {
		return err
	}
	p.ShopID = shopID
	return i.products.SaveProduct(ctx, p)
}

func (i *Ingestor) skip(ctx context.Context, shopID int64, subject string, err error) {
	msg := "skipping product payload"
	if errors.Is(err, ErrMissingProductID) {
		msg = "product payload has no id, skipping"
	}
	i.logger.Warn(msg, zap.Int64("shop_id", shopID), zap.String("subject", subject), zap.Error(err))
	i.activity.Record(ctx, activity.Entry{
		ShopID:  shopID,
		Kind:    ActivityKind,
		Subject: subject,
		Level:   activity.LevelError,
		Message: err.Error(),
	})
}
