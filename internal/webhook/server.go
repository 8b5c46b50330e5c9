// Package webhook is the HTTP edge: Shopify webhooks and installs are verified and turned
// into queued jobs, and the admin UI polls job progress.
package webhook

import (
	"errors"
	"time"

	"github.com/fekuna/shopsync-service/config"
	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func NewServer(cfg config.HTTPConfig, h *Handler, log logger.ZapLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "shopsync",
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(accessLog(log))

	h.Routes(app)
	return app
}

func errorHandler(log logger.ZapLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			status = fe.Code
		case errors.Is(err, apperr.ErrNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrMalformedPayload):
			status = fiber.StatusBadRequest
		}

		msg := err.Error()
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.Path()),
				zap.Any("request_id", c.Locals("requestid")),
				zap.Error(err),
			)
			msg = "internal error"
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
}

func accessLog(log logger.ZapLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)),
			zap.Any("request_id", c.Locals("requestid")),
		)
		return err
	}
}
