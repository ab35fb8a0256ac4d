package appointment

import (
	"fmt"

	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"
	"go-clinic/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
)

type AppointmentController struct {
	Service AppointmentService
}

func NewAppointmentController(service AppointmentService) *AppointmentController {
	return &AppointmentController{Service: service}
}

func filterFrom(c *fiber.Ctx) (Filter, error) {
	f := Filter{From: c.Query("from"), To: c.Query("to"), Status: Status(c.Query("status"))}
	var err error
	if f.DoctorID, err = api.QueryID(c, "doctor_id"); err != nil {
		return f, err
	}
	if f.RoomID, err = api.QueryID(c, "room_id"); err != nil {
		return f, err
	}
	if f.PatientID, err = api.QueryID(c, "patient_id"); err != nil {
		return f, err
	}
	return f, nil
}

// ListAppointments godoc
// @Summary      List appointments
// @Tags         appointments
// @Produce      json
// @Param        from        query  string  false  "First date (inclusive)"
// @Param        to          query  string  false  "Last date (inclusive)"
// @Param        doctor_id   query  string  false  "Doctor"
// @Param        room_id     query  string  false  "Room"
// @Param        patient_id  query  string  false  "Patient"
// @Param        status      query  string  false  "Status"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/appointments [get]
func (ctrl *AppointmentController) ListAppointments(c *fiber.Ctx) error {
	filter, err := filterFrom(c)
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	res, err := ctrl.Service.List(c.UserContext(), scope, filter, api.PageFrom(c))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(res)
}

// GetAppointment godoc
// @Summary      Get appointment
// @Tags         appointments
// @Produce      json
// @Param        id   path  string  true  "Appointment ID"
// @Success      200  {object}  Appointment
// @Router       /api/appointments/{id} [get]
func (ctrl *AppointmentController) GetAppointment(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	a, err := ctrl.Service.Get(c.UserContext(), scope, id)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(a)
}

// CreateAppointment godoc
// @Summary      Book appointment
// @Description  Times are snapped to the 15 minute grid. Overlapping doctor or room bookings are rejected.
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        appointment  body  AppointmentRequest  true  "Appointment"
// @Success      201  {object}  Appointment
// @Failure      409  {object}  map[string]interface{}
// @Router       /api/appointments [post]
func (ctrl *AppointmentController) CreateAppointment(c *fiber.Ctx) error {
	var req AppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	a, err := ctrl.Service.Create(c.UserContext(), scope, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// UpdateAppointment godoc
// @Summary      Update appointment
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        id           path  string              true  "Appointment ID"
// @Param        appointment  body  AppointmentRequest  true  "Appointment"
// @Success      200  {object}  Appointment
// @Router       /api/appointments/{id} [put]
func (ctrl *AppointmentController) UpdateAppointment(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req AppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	a, err := ctrl.Service.Update(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(a)
}

// UpdateStatus godoc
// @Summary      Change appointment status
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        id      path  string         true  "Appointment ID"
// @Param        status  body  StatusRequest  true  "Status"
// @Success      200  {object}  Appointment
// @Router       /api/appointments/{id}/status [patch]
func (ctrl *AppointmentController) UpdateStatus(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}
	scope, _ := middleware.GetScope(c)
	a, err := ctrl.Service.UpdateStatus(c.UserContext(), scope, id, req)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(a)
}

// CancelAppointment godoc
// @Summary      Cancel appointment
// @Tags         appointments
// @Produce      json
// @Param        id   path  string  true  "Appointment ID"
// @Success      200  {object}  Appointment
// @Router       /api/appointments/{id}/cancel [post]
func (ctrl *AppointmentController) CancelAppointment(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id")
	if err != nil {
		return api.Fail(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)
	scope, _ := middleware.GetScope(c)
	a, err := ctrl.Service.Cancel(c.UserContext(), scope, id, body.Reason)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(a)
}

// AvailableSlots godoc
// @Summary      Free 15 minute slots of a doctor
// @Tags         appointments
// @Produce      json
// @Param        doctor_id  query  string  true  "Doctor"
// @Param        date       query  string  true  "Date"
// @Success      200  {array}  Slot
// @Router       /api/appointments/slots [get]
func (ctrl *AppointmentController) AvailableSlots(c *fiber.Ctx) error {
	doctorID, err := api.QueryID(c, "doctor_id")
	if err != nil {
		return api.Fail(c, err)
	}
	if doctorID.IsZero() {
		return api.Fail(c, apperrors.Validation("doctor_id is required"))
	}
	scope, _ := middleware.GetScope(c)
	slots, err := ctrl.Service.AvailableSlots(c.UserContext(), scope, doctorID, c.Query("date"))
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"date": c.Query("date"), "slots": slots})
}

// DaySheet godoc
// @Summary      Doctor day sheet
// @Tags         appointments
// @Produce      application/pdf
// @Param        doctor_id  query  string  false  "Doctor (defaults to the caller for doctors)"
// @Param        date       query  string  true   "Date"
// @Success      200  {file}  file
// @Router       /api/appointments/day-sheet [get]
func (ctrl *AppointmentController) DaySheet(c *fiber.Ctx) error {
	doctorID, err := api.QueryID(c, "doctor_id")
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	pdf, err := ctrl.Service.ExportDaySheet(c.UserContext(), scope, doctorID, c.Query("date"))
	if err != nil {
		return api.Fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=day-sheet-%s.pdf", c.Query("date")))
	return c.Send(pdf)
}

// ExportAppointments godoc
// @Summary      Export appointments as CSV
// @Tags         appointments
// @Produce      text/csv
// @Param        from  query  string  false  "First date"
// @Param        to    query  string  false  "Last date"
// @Success      200  {file}  file
// @Router       /api/appointments/export [get]
func (ctrl *AppointmentController) ExportAppointments(c *fiber.Ctx) error {
	filter, err := filterFrom(c)
	if err != nil {
		return api.Fail(c, err)
	}
	scope, _ := middleware.GetScope(c)
	out, err := ctrl.Service.ExportCSV(c.UserContext(), scope, filter)
	if err != nil {
		return api.Fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=appointments.csv")
	return c.Send(out)
}
