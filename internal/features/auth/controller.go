package auth

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	AuthService AuthService
}

func NewAuthController(authService AuthService) *AuthController {
	return &AuthController{
		AuthService: authService,
	}
}

// Register godoc
// @Summary      Register a clinic
// @Description  Creates a clinic and its first admin user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterRequest true "Register Input"
// @Success      201  {object} AuthResponse
// @Failure      400  {object} map[string]interface{}
// @Failure      409  {object} map[string]interface{}
// @Router       /api/auth/register [post]
func (ctrl *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}

	res, err := ctrl.AuthService.Register(c.UserContext(), req)
	if err != nil {
		return api.Fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login godoc
// @Summary      Login
// @Description  Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginRequest true "Login Input"
// @Success      200  {object} AuthResponse
// @Failure      401  {object} map[string]interface{}
// @Router       /api/auth/login [post]
func (ctrl *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return api.BadRequest(c, "Invalid request body")
	}

	res, err := ctrl.AuthService.Login(c.UserContext(), req)
	if err != nil {
		return api.Fail(c, err)
	}

	return c.JSON(res)
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object} map[string]interface{}
// @Router       /api/auth/me [get]
func (ctrl *AuthController) Me(c *fiber.Ctx) error {
	scope, _ := middleware.GetScope(c)
	u, err := ctrl.AuthService.Me(c.UserContext(), scope)
	if err != nil {
		return api.Fail(c, err)
	}
	return c.JSON(fiber.Map{"user": u, "scope": scope})
}
