package sync

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	config     *config.Config
}

func NewSyncApi(controller *SyncController, cfg *config.Config) api.Route {
	return &SyncApi{controller: controller, config: cfg}
}

func (h *SyncApi) Setup(app *fiber.App) {
	group := app.Group("/api/sync", middleware.AuthMiddleware(h.config.SkipAuth), middleware.RequireAdmin())
	group.Post("/run", h.controller.RunSync)
	group.Get("/runs", h.controller.ListRuns)
	group.Get("/state", h.controller.GetState)
}
