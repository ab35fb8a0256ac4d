package system

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/metrics"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
)

type SystemApi struct {
	controller *SystemController
	metrics    *metrics.Metrics
	config     *config.Config
}

func NewSystemApi(controller *SystemController, m *metrics.Metrics, cfg *config.Config) api.Route {
	return &SystemApi{controller: controller, metrics: m, config: cfg}
}

func (h *SystemApi) Setup(app *fiber.App) {
	app.Get("/health", h.controller.Health)
	app.Get("/health/ready", h.controller.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(h.metrics.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/api/me", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.Me)
}
