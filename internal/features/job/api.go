package job

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type JobApi struct {
	controller *JobController
	config     *config.Config
}

func NewJobApi(controller *JobController, cfg *config.Config) api.Route {
	return &JobApi{controller: controller, config: cfg}
}

func (h *JobApi) Setup(app *fiber.App) {
	app.Get("/api/public/:tenant/jobs", h.controller.PublicJobs)

	jobs := app.Group("/api/jobs", middleware.AuthMiddleware(h.config.SkipAuth))
	admin := middleware.RequireAdmin()
	jobs.Get("/", h.controller.ListJobs)
	jobs.Get("/:id", h.controller.GetJob)
	jobs.Post("/", admin, h.controller.CreateJob)
	jobs.Put("/:id", admin, h.controller.UpdateJob)
	jobs.Delete("/:id", admin, h.controller.DeleteJob)
}
