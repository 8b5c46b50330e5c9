package webhook

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/crawler"
	"github.com/fekuna/shopsync-service/internal/ingest"
	"github.com/fekuna/shopsync-service/internal/joblog"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/queue"
	"github.com/fekuna/shopsync-service/internal/shop"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	headerTopic  = "X-Shopify-Topic"
	headerDomain = "X-Shopify-Shop-Domain"
	headerHmac   = "X-Shopify-Hmac-Sha256"
)

var topicJobs = map[string]string{
	"products/create": queue.TypeProductUpsert,
	"products/update": queue.TypeProductUpsert,
	"products/delete": queue.TypeProductDelete,
}

type InstallRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type Handler struct {
	dispatcher queue.Dispatcher
	shops      shop.Repository
	jobs       joblog.UseCase
	secret     string
	validate   *validator.Validate
	logger     logger.ZapLogger
}

func NewHandler(dispatcher queue.Dispatcher, shops shop.Repository, jobs joblog.UseCase, secret string, log logger.ZapLogger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		shops:      shops,
		jobs:       jobs,
		secret:     secret,
		validate:   validator.New(),
		logger:     log,
	}
}

func (h *Handler) Routes(r fiber.Router) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	r.Post("/webhooks/shopify", h.verified, h.Webhook)
	r.Post("/shops/:domain/install", h.verified, h.Install)
	r.Get("/jobs/:id/progress", h.Progress)
}

func (h *Handler) verified(c *fiber.Ctx) error {
	if !Verify(h.secret, c.Body(), c.Get(headerHmac)) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
	}
	return c.Next()
}

// Webhook queues the payload and answers immediately; parsing happens on the worker.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	topic := c.Get(headerTopic)
	domain := strings.ToLower(c.Get(headerDomain))

	jobType, ok := topicJobs[topic]
	if !ok {
		h.logger.Debug("ignoring webhook topic", zap.String("topic", topic), zap.String("shop", domain))
		return c.SendStatus(fiber.StatusOK)
	}

	ctx := c.UserContext()
	s, err := h.shops.FindByDomain(ctx, domain)
	if err != nil {
		return err
	}
	if s == nil {
		// answered with 200 so Shopify stops redelivering for an uninstalled shop
		h.logger.Warn("webhook for unknown shop", zap.String("shop", domain), zap.String("topic", topic))
		return c.SendStatus(fiber.StatusOK)
	}

	// fasthttp reuses the body buffer once the handler returns
	body := append([]byte(nil), c.Body()...)
	if err := h.enqueue(ctx, jobType, s.ID, ingest.WebhookJob{ShopDomain: s.Domain, Body: body}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

// Install records the shop's access token and queues the initial catalog crawl.
func (h *Handler) Install(c *fiber.Ctx) error {
	domain := strings.ToLower(c.Params("domain"))
	if !strings.HasSuffix(domain, ".myshopify.com") {
		return fmt.Errorf("shop domain %q: %w", domain, apperr.ErrInvalidInput)
	}

	var req InstallRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("install body: %w", apperr.ErrMalformedPayload)
	}
	if err := h.validate.Struct(req); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidInput)
	}

	ctx := c.UserContext()
	s := &model.Shop{Domain: domain, AccessToken: req.AccessToken}
	if err := h.shops.Upsert(ctx, s); err != nil {
		return err
	}
	if err := h.enqueue(ctx, queue.TypeCatalogCrawl, s.ID, crawler.CrawlJob{ShopDomain: domain}); err != nil {
		return err
	}

	h.logger.Info("shop installed", zap.String("shop", domain), zap.Int64("shop_id", s.ID))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"shop_id": s.ID})
}

// Progress reports a job to the shop that owns it. The shop comes from the same domain
// header the admin front end forwards; a job of another shop reads as missing.
func (h *Handler) Progress(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("job id %q: %w", c.Params("id"), apperr.ErrInvalidInput)
	}
	domain := strings.ToLower(c.Get(headerDomain))
	if domain == "" {
		return fmt.Errorf("missing %s header: %w", headerDomain, apperr.ErrInvalidInput)
	}

	ctx := c.UserContext()
	s, err := h.shops.FindByDomain(ctx, domain)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("job %d: %w", id, apperr.ErrNotFound)
	}

	job, err := h.jobs.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil || job.ShopID != s.ID {
		return fmt.Errorf("job %d: %w", id, apperr.ErrNotFound)
	}
	return c.JSON(fiber.Map{
		"progress": job.Progress(),
		"status":   job.Status,
	})
}

func (h *Handler) enqueue(ctx context.Context, jobType string, shopID int64, payload any) error {
	job, err := queue.NewJob(jobType, shopID, payload)
	if err != nil {
		return err
	}
	return h.dispatcher.Dispatch(ctx, job)
}
