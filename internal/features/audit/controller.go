package audit

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary      List audit logs
// @Tags         audit
// @Produce      json
// @Param        module     query  string  false  "Module"
// @Param        record_id  query  string  false  "Record ID"
// @Param        action     query  string  false  "Action"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/audit-logs [get]
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	filters := map[string]string{
		"module":    c.Query("module"),
		"record_id": c.Query("record_id"),
		"action":    c.Query("action"),
	}

	logs, err := ctrl.Service.ListLogs(c.UserContext(), scope, filters, api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}

	return c.JSON(logs)
}
