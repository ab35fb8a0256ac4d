package tenant

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TenantApi struct {
	controller *TenantController
	config     *config.Config
}

func NewTenantApi(controller *TenantController, cfg *config.Config) api.Route {
	return &TenantApi{controller: controller, config: cfg}
}

func (h *TenantApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	settings := app.Group("/api/clinic/settings", auth, middleware.RequireAdmin())
	settings.Get("/", h.controller.GetSettings)
	settings.Put("/", h.controller.UpdateSettings)

	app.Get("/api/clinics", auth, middleware.RequireRole(), h.controller.ListTenants)
}
