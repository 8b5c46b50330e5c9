// Package crawler walks a shop's whole catalog after install: a cheap id-only pass that
// fans out one queued job per page, and the page job that fetches full detail.
package crawler

import (
	"context"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/ingest"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/queue"
	"github.com/fekuna/shopsync-service/internal/shop"
	"github.com/fekuna/shopsync-service/internal/shopify"
	"go.uber.org/zap"
)

// CrawlJob starts a catalog crawl for the shop the job belongs to.
type CrawlJob struct {
	ShopDomain string `json:"shop_domain"`
}

type pageJob struct {
	// Cursor is the "after" cursor the page starts from; empty for the first page.
	Cursor string `json:"cursor"`
}

type Crawler struct {
	shops    shop.Repository
	clients  shopify.Factory
	queue    *queue.Queue
	ingestor *ingest.Ingestor
	logger   logger.ZapLogger
}

func NewCrawler(shops shop.Repository, clients shopify.Factory, q *queue.Queue, ingestor *ingest.Ingestor, log logger.ZapLogger) *Crawler {
	return &Crawler{
		shops:    shops,
		clients:  clients,
		queue:    q,
		ingestor: ingestor,
		logger:   log,
	}
}

func (c *Crawler) Register(w *queue.Worker) {
	w.Handle(queue.TypeCatalogCrawl, c.handleCrawl)
	w.Handle(queue.TypeCatalogPage, c.handlePage)
}

// Crawl pages through product ids and dispatches one page job per page. It stops at the
// last page or at the first failed call; pages dispatched before a failure still run.
func (c *Crawler) Crawl(ctx context.Context, s *model.Shop) (int, error) {
	api := c.clients.ForShop(s)
	log := c.logger.With(zap.String("shop", s.Domain))

	cursor := ""
	pages := 0
	for {
		page, err := shopify.FetchProductIDs(ctx, api, cursor)
		if err != nil {
			log.Error("catalog crawl stopped", zap.Int("pages", pages), zap.Error(err))
			return pages, fmt.Errorf("fetch product ids after %q: %w", cursor, err)
		}

		if len(page.Products.Edges) > 0 {
			job, err := queue.NewJob(queue.TypeCatalogPage, s.ID, pageJob{Cursor: cursor})
			if err != nil {
				return pages, err
			}
			if err := c.queue.Dispatch(ctx, job); err != nil {
				return pages, err
			}
			pages++
		}

		info := page.Products.PageInfo
		if !info.HasNextPage || info.EndCursor == "" {
			break
		}
		cursor = info.EndCursor
	}

	log.Info("catalog crawl dispatched", zap.Int("pages", pages))
	return pages, nil
}

// FetchPage loads one full-detail page and hands its products to the ingestor.
func (c *Crawler) FetchPage(ctx context.Context, s *model.Shop, cursor string) (ingest.PageResult, error) {
	nodes, _, err := shopify.FetchProductPage(ctx, c.clients.ForShop(s), cursor)
	if err != nil {
		return ingest.PageResult{}, err
	}
	return c.ingestor.IngestPage(ctx, s.ID, nodes)
}

func (c *Crawler) handleCrawl(ctx context.Context, job *queue.Job) error {
	var p CrawlJob
	if err := job.Decode(&p); err != nil {
		return err
	}
	s, err := c.shops.FindByDomain(ctx, p.ShopDomain)
	if err != nil {
		return err
	}
	if s == nil {
		return queue.Permanent(fmt.Errorf("shop %s: %w", p.ShopDomain, apperr.ErrNotFound))
	}
	// a partial crawl is not retried: its pages are already queued
	if _, err := c.Crawl(ctx, s); err != nil {
		return queue.Permanent(err)
	}
	return nil
}

func (c *Crawler) handlePage(ctx context.Context, job *queue.Job) error {
	var p pageJob
	if err := job.Decode(&p); err != nil {
		return err
	}
	s, err := c.shops.FindByID(ctx, job.ShopID)
	if err != nil {
		return err
	}
	if s == nil {
		return queue.Permanent(fmt.Errorf("shop %d: %w", job.ShopID, apperr.ErrNotFound))
	}

	res, err := c.FetchPage(ctx, s, p.Cursor)
	if err != nil {
		if shopify.IsTransient(err) || ctx.Err() != nil {
			return err
		}
		return queue.Permanent(err)
	}
	c.logger.Info("catalog page ingested",
		zap.String("shop", s.Domain),
		zap.Int("saved", res.Saved),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}
