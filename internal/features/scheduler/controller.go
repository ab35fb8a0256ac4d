package scheduler

import (
	"go-clinic/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type SchedulerController struct {
	Scheduler *Scheduler
}

func NewSchedulerController(s *Scheduler) *SchedulerController {
	return &SchedulerController{Scheduler: s}
}

// ListJobs godoc
// @Summary      Scheduled jobs
// @Tags         scheduler
// @Produce      json
// @Success      200  {array}  JobInfo
// @Router       /api/scheduler/jobs [get]
func (ctrl *SchedulerController) ListJobs(c *fiber.Ctx) error {
	return c.JSON(ctrl.Scheduler.Jobs())
}

// RunJob godoc
// @Summary      Run a job now
// @Tags         scheduler
// @Produce      json
// @Param        name  path  string  true  "reminders or sync"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/scheduler/jobs/{name}/run [post]
func (ctrl *SchedulerController) RunJob(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == JobReminders {
		res, err := ctrl.Scheduler.SendReminders(c.UserContext())
		if err != nil {
			return api.Fail(c, err)
		}
		return c.JSON(res)
	}
	if err := ctrl.Scheduler.Trigger(c.UserContext(), name); err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Job finished", "job": name})
}
