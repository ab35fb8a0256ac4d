package clinic

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ClinicController struct {
	Service ClinicService
}

func NewClinicController(service ClinicService) *ClinicController {
	return &ClinicController{Service: service}
}

// ListDoctors godoc
// @Summary      List doctors
// @Tags         doctors
// @Produce      json
// @Param        active  query  bool  false  "Only active doctors"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/doctors [get]
func (ctrl *ClinicController) ListDoctors(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	doctors, err := ctrl.Service.ListDoctors(c.UserContext(), scope, c.QueryBool("active"))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": doctors})
}

// GetDoctor godoc
// @Summary      Get doctor
// @Tags         doctors
// @Produce      json
// @Param        id   path  string  true  "Doctor ID"
// @Success      200  {object}  Doctor
// @Router       /api/doctors/{id} [get]
func (ctrl *ClinicController) GetDoctor(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	d, err := ctrl.Service.GetDoctor(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(d)
}

// CreateDoctor godoc
// @Summary      Create doctor
// @Tags         doctors
// @Accept       json
// @Produce      json
// @Param        doctor  body  DoctorRequest  true  "Doctor"
// @Success      201  {object}  Doctor
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/doctors [post]
func (ctrl *ClinicController) CreateDoctor(c *fiber.Ctx) error {
	var req DoctorRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	d, err := ctrl.Service.CreateDoctor(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

// UpdateDoctor godoc
// @Summary      Update doctor
// @Tags         doctors
// @Accept       json
// @Produce      json
// @Param        id      path  string         true  "Doctor ID"
// @Param        doctor  body  DoctorRequest  true  "Doctor"
// @Success      200  {object}  Doctor
// @Router       /api/doctors/{id} [put]
func (ctrl *ClinicController) UpdateDoctor(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req DoctorRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	d, err := ctrl.Service.UpdateDoctor(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(d)
}

// DeleteDoctor godoc
// @Summary      Deactivate doctor
// @Tags         doctors
// @Param        id   path  string  true  "Doctor ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/doctors/{id} [delete]
func (ctrl *ClinicController) DeleteDoctor(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	if err := ctrl.Service.DeactivateDoctor(c.UserContext(), scope, id); err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Doctor deactivated"})
}

// ListRooms godoc
// @Summary      List rooms
// @Tags         rooms
// @Produce      json
// @Param        active  query  bool  false  "Only active rooms"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/rooms [get]
func (ctrl *ClinicController) ListRooms(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	rooms, err := ctrl.Service.ListRooms(c.UserContext(), scope, c.QueryBool("active"))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"data": rooms})
}

// GetRoom godoc
// @Summary      Get room
// @Tags         rooms
// @Produce      json
// @Param        id   path  string  true  "Room ID"
// @Success      200  {object}  Room
// @Router       /api/rooms/{id} [get]
func (ctrl *ClinicController) GetRoom(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	r, err := ctrl.Service.GetRoom(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(r)
}

// CreateRoom godoc
// @Summary      Create room
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        room  body  RoomRequest  true  "Room"
// @Success      201  {object}  Room
// @Router       /api/rooms [post]
func (ctrl *ClinicController) CreateRoom(c *fiber.Ctx) error {
	var req RoomRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	r, err := ctrl.Service.CreateRoom(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// UpdateRoom godoc
// @Summary      Update room
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Room ID"
// @Param        room  body  RoomRequest  true  "Room"
// @Success      200  {object}  Room
// @Router       /api/rooms/{id} [put]
func (ctrl *ClinicController) UpdateRoom(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req RoomRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	r, err := ctrl.Service.UpdateRoom(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(r)
}

// DeleteRoom godoc
// @Summary      Deactivate room
// @Tags         rooms
// @Param        id   path  string  true  "Room ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/rooms/{id} [delete]
func (ctrl *ClinicController) DeleteRoom(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	if err := ctrl.Service.DeactivateRoom(c.UserContext(), scope, id); err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Room deactivated"})
}
