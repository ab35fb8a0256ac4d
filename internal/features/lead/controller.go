package lead

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LeadController struct {
	Service LeadService
}

func NewLeadController(service LeadService) *LeadController {
	return &LeadController{Service: service}
}

// ListLeads godoc
// @Summary      List leads
// @Tags         leads
// @Produce      json
// @Param        status  query  string  false  "Status"
// @Param        search  query  string  false  "Name, phone or email"
// @Param        page    query  int     false  "Page"
// @Param        limit   query  int     false  "Limit"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/leads [get]
func (ctrl *LeadController) ListLeads(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	f := Filter{Status: Status(c.Query("status")), Search: c.Query("search")}
	res, err := ctrl.Service.List(c.UserContext(), scope, f, api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// GetLead godoc
// @Summary      Get lead
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "Lead ID"
// @Success      200  {object}  Lead
// @Router       /api/leads/{id} [get]
func (ctrl *LeadController) GetLead(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	l, err := ctrl.Service.Get(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(l)
}

// CreateLead godoc
// @Summary      Create lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        lead  body  LeadRequest  true  "Lead"
// @Success      201  {object}  Lead
// @Router       /api/leads [post]
func (ctrl *LeadController) CreateLead(c *fiber.Ctx) error {
	var req LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	l, err := ctrl.Service.Create(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(l)
}

// UpdateLead godoc
// @Summary      Update lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Lead ID"
// @Param        lead  body  LeadRequest  true  "Lead"
// @Success      200  {object}  Lead
// @Router       /api/leads/{id} [put]
func (ctrl *LeadController) UpdateLead(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	l, err := ctrl.Service.Update(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(l)
}

// DeleteLead godoc
// @Summary      Delete lead
// @Tags         leads
// @Param        id   path  string  true  "Lead ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/leads/{id} [delete]
func (ctrl *LeadController) DeleteLead(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	if err := ctrl.Service.Delete(c.UserContext(), scope, id); err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Lead deleted"})
}

// ConvertLead godoc
// @Summary      Convert lead to patient
// @Tags         leads
// @Produce      json
// @Param        id   path  string  true  "Lead ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/leads/{id}/convert [post]
func (ctrl *LeadController) ConvertLead(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	l, p, err := ctrl.Service.Convert(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"lead": l, "patient": p})
}
