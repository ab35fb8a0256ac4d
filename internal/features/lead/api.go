package lead

import (
	"go-clinic/internal/common/api"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LeadApi struct {
	controller *LeadController
	config     *config.Config
}

func NewLeadApi(controller *LeadController, cfg *config.Config) api.Route {
	return &LeadApi{controller: controller, config: cfg}
}

func (h *LeadApi) Setup(app *fiber.App) {
	leads := app.Group("/api/leads",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(common_models.RoleAdmin, common_models.RoleStaff),
	)
	leads.Get("/", h.controller.ListLeads)
	leads.Post("/", h.controller.CreateLead)
	leads.Get("/:id", h.controller.GetLead)
	leads.Put("/:id", h.controller.UpdateLead)
	leads.Delete("/:id", middleware.RequireAdmin(), h.controller.DeleteLead)
	leads.Post("/:id/convert", h.controller.ConvertLead)
}
