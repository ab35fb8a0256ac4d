package patient

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PatientApi struct {
	controller *PatientController
	config     *config.Config
}

func NewPatientApi(controller *PatientController, cfg *config.Config) api.Route {
	return &PatientApi{controller: controller, config: cfg}
}

func (h *PatientApi) Setup(app *fiber.App) {
	patients := app.Group("/api/patients", middleware.AuthMiddleware(h.config.SkipAuth))

	patients.Get("/", h.controller.ListPatients)
	patients.Post("/", h.controller.CreatePatient)
	patients.Get("/:id", h.controller.GetPatient)
	patients.Put("/:id", h.controller.UpdatePatient)
	patients.Delete("/:id", middleware.RequireAdmin(), h.controller.DeletePatient)
}
