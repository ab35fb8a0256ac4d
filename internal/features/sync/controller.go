package sync

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{Service: service}
}

// RunSync godoc
// @Summary      Mirror appointments into the warehouse
// @Tags         sync
// @Produce      json
// @Success      200  {object}  Run
// @Failure      409  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /api/sync/run [post]
func (ctrl *SyncController) RunSync(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	run, err := ctrl.Service.Run(c.UserContext(), scope, TriggerManual)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(run)
}

// ListRuns godoc
// @Summary      Recent sync runs
// @Tags         sync
// @Produce      json
// @Param        limit  query  int  false  "Max runs"
// @Success      200  {array}  Run
// @Router       /api/sync/runs [get]
func (ctrl *SyncController) ListRuns(c *fiber.Ctx) error {
	runs, err := ctrl.Service.Runs(c.UserContext(), c.QueryInt("limit", defaultRuns))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(runs)
}

// GetState godoc
// @Summary      Sync cursor
// @Tags         sync
// @Produce      json
// @Success      200  {object}  State
// @Router       /api/sync/state [get]
func (ctrl *SyncController) GetState(c *fiber.Ctx) error {
	state, err := ctrl.Service.State(c.UserContext())
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(state)
}
