package job

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type JobController struct {
	Service JobService
}

func NewJobController(service JobService) *JobController {
	return &JobController{Service: service}
}

// ListJobs godoc
// @Summary      List job listings
// @Tags         jobs
// @Produce      json
// @Param        status  query  string  false  "open or closed"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/jobs [get]
func (ctrl *JobController) ListJobs(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.List(c.UserContext(), scope, Status(c.Query("status")), api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// GetJob godoc
// @Summary      Get job listing
// @Tags         jobs
// @Produce      json
// @Param        id   path  string  true  "Listing ID"
// @Success      200  {object}  Listing
// @Router       /api/jobs/{id} [get]
func (ctrl *JobController) GetJob(c *fiber.Ctx) error {
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

// CreateJob godoc
// @Summary      Create job listing
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        listing  body  ListingRequest  true  "Listing"
// @Success      201  {object}  Listing
// @Router       /api/jobs [post]
func (ctrl *JobController) CreateJob(c *fiber.Ctx) error {
	var req ListingRequest
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

// UpdateJob godoc
// @Summary      Update job listing
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "Listing ID"
// @Param        listing  body  ListingRequest  true  "Listing"
// @Success      200  {object}  Listing
// @Router       /api/jobs/{id} [put]
func (ctrl *JobController) UpdateJob(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req ListingRequest
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

// DeleteJob godoc
// @Summary      Delete job listing
// @Tags         jobs
// @Param        id   path  string  true  "Listing ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/jobs/{id} [delete]
func (ctrl *JobController) DeleteJob(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	if err := ctrl.Service.Delete(c.UserContext(), scope, id); err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Job listing deleted"})
}

// PublicJobs godoc
// @Summary      Open positions of a clinic
// @Tags         public
// @Produce      json
// @Param        tenant  path  string  true  "Clinic slug"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/public/{tenant}/jobs [get]
func (ctrl *JobController) PublicJobs(c *fiber.Ctx) error {
	listings, err := ctrl.Service.PublicListings(c.UserContext(), c.Params("tenant"))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": listings})
}
