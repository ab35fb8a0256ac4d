package patient

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PatientController struct {
	Service PatientService
}

func NewPatientController(service PatientService) *PatientController {
	return &PatientController{Service: service}
}

// ListPatients godoc
// @Summary      List patients
// @Tags         patients
// @Produce      json
// @Param        q      query  string  false  "Search by name, phone or email"
// @Param        page   query  int     false  "Page"
// @Param        limit  query  int     false  "Limit"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/patients [get]
func (ctrl *PatientController) ListPatients(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.List(c.UserContext(), scope, c.Query("q"), api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// GetPatient godoc
// @Summary      Get patient
// @Tags         patients
// @Produce      json
// @Param        id   path  string  true  "Patient ID"
// @Success      200  {object}  Patient
// @Router       /api/patients/{id} [get]
func (ctrl *PatientController) GetPatient(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	p, err := ctrl.Service.Get(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(p)
}

// CreatePatient godoc
// @Summary      Create patient
// @Tags         patients
// @Accept       json
// @Produce      json
// @Param        patient  body  PatientRequest  true  "Patient"
// @Success      201  {object}  Patient
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/patients [post]
func (ctrl *PatientController) CreatePatient(c *fiber.Ctx) error {
	var req PatientRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	p, err := ctrl.Service.Create(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdatePatient godoc
// @Summary      Update patient
// @Tags         patients
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "Patient ID"
// @Param        patient  body  PatientRequest  true  "Patient"
// @Success      200  {object}  Patient
// @Router       /api/patients/{id} [put]
func (ctrl *PatientController) UpdatePatient(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req PatientRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	p, err := ctrl.Service.Update(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(p)
}

// DeletePatient godoc
// @Summary      Delete patient
// @Tags         patients
// @Param        id   path  string  true  "Patient ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/patients/{id} [delete]
func (ctrl *PatientController) DeletePatient(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	if err := ctrl.Service.Delete(c.UserContext(), scope, id); err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Patient deleted successfully"})
}
