package clinic

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ClinicApi struct {
	controller *ClinicController
	config     *config.Config
}

func NewClinicApi(controller *ClinicController, cfg *config.Config) api.Route {
	return &ClinicApi{controller: controller, config: cfg}
}

func (h *ClinicApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)
	admin := middleware.RequireAdmin()

	doctors := app.Group("/api/doctors", auth)
	doctors.Get("/", h.controller.ListDoctors)
	doctors.Get("/:id", h.controller.GetDoctor)
	doctors.Post("/", admin, h.controller.CreateDoctor)
	doctors.Put("/:id", admin, h.controller.UpdateDoctor)
	doctors.Delete("/:id", admin, h.controller.DeleteDoctor)

	rooms := app.Group("/api/rooms", auth)
	rooms.Get("/", h.controller.ListRooms)
	rooms.Get("/:id", h.controller.GetRoom)
	rooms.Post("/", admin, h.controller.CreateRoom)
	rooms.Put("/:id", admin, h.controller.UpdateRoom)
	rooms.Delete("/:id", admin, h.controller.DeleteRoom)
}
