package appointment

import (
	"go-clinic/internal/common/api"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AppointmentApi struct {
	controller *AppointmentController
	config     *config.Config
}

func NewAppointmentApi(controller *AppointmentController, cfg *config.Config) api.Route {
	return &AppointmentApi{controller: controller, config: cfg}
}

func (h *AppointmentApi) Setup(app *fiber.App) {
	appointments := app.Group("/api/appointments", middleware.AuthMiddleware(h.config.SkipAuth))

	appointments.Get("/", h.controller.ListAppointments)
	appointments.Post("/", h.controller.CreateAppointment)
	appointments.Get("/slots", h.controller.AvailableSlots)
	appointments.Get("/day-sheet", h.controller.DaySheet)
	appointments.Get("/export", middleware.RequireRole(common_models.RoleAdmin, common_models.RoleStaff), h.controller.ExportAppointments)
	appointments.Get("/:id", h.controller.GetAppointment)
	appointments.Put("/:id", h.controller.UpdateAppointment)
	appointments.Patch("/:id/status", h.controller.UpdateStatus)
	appointments.Post("/:id/cancel", h.controller.CancelAppointment)
}
