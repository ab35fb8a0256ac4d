package appointment_import

import (
	"go-clinic/internal/common/api"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ImportApi struct {
	controller *ImportController
	config     *config.Config
}

func NewImportApi(controller *ImportController, cfg *config.Config) api.Route {
	return &ImportApi{controller: controller, config: cfg}
}

func (h *ImportApi) Setup(app *fiber.App) {
	group := app.Group("/api/appointments/import",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(common_models.RoleAdmin, common_models.RoleStaff),
	)

	group.Get("/fields", h.controller.ListFields)
	group.Post("/preview", h.controller.PreviewImport)
	group.Post("/validate", h.controller.ValidateImport)
	group.Post("/", h.controller.ExecuteImport)
	group.Get("/jobs", h.controller.ListImportJobs)
	group.Get("/jobs/:id", h.controller.GetImportJob)
}
