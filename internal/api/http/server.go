package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/observability"
)

// multipartOverhead leaves room for form boundaries and headers on top of
// the largest accepted upload.
const multipartOverhead = 1 << 20

// NewApp builds the fiber application with the global middlewares attached.
func NewApp(cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ErrorHandler:          ErrorHandler(logger),
		BodyLimit:             int(cfg.Blob.UploadMaxBytes) + multipartOverhead,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	return app
}
