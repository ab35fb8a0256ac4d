package scheduler

import (
	"go-clinic/internal/common/api"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SchedulerApi struct {
	controller *SchedulerController
	config     *config.Config
}

func NewSchedulerApi(controller *SchedulerController, cfg *config.Config) api.Route {
	return &SchedulerApi{controller: controller, config: cfg}
}

// Jobs span every clinic, so running one by hand is a superadmin action.
func (h *SchedulerApi) Setup(app *fiber.App) {
	group := app.Group("/api/scheduler", middleware.AuthMiddleware(h.config.SkipAuth), middleware.RequireAdmin())
	group.Get("/jobs", h.controller.ListJobs)
	group.Post("/jobs/:name/run", middleware.RequireRole(common_models.RoleSuperAdmin), h.controller.RunJob)
}
