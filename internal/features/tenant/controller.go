package tenant

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TenantController struct {
	Service TenantService
}

func NewTenantController(service TenantService) *TenantController {
	return &TenantController{Service: service}
}

// GetSettings godoc
// @Summary      Get clinic settings
// @Tags         clinic
// @Produce      json
// @Success      200  {object}  Tenant
// @Router       /api/clinic/settings [get]
func (ctrl *TenantController) GetSettings(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	t, err := ctrl.Service.Get(c.UserContext(), scope.TenantID)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(t)
}

// UpdateSettings godoc
// @Summary      Update clinic settings
// @Tags         clinic
// @Accept       json
// @Produce      json
// @Param        settings body SettingsRequest true "Settings"
// @Success      200  {object}  Tenant
// @Router       /api/clinic/settings [put]
func (ctrl *TenantController) UpdateSettings(c *fiber.Ctx) error {
	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	t, err := ctrl.Service.UpdateSettings(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(t)
}

// ListTenants godoc
// @Summary      List clinics (super admin)
// @Tags         clinic
// @Produce      json
// @Success      200  {array}  Tenant
// @Router       /api/clinics [get]
func (ctrl *TenantController) ListTenants(c *fiber.Ctx) error {
	tenants, err := ctrl.Service.List(c.UserContext())
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": tenants})
}
