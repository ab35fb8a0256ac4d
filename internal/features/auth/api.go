package auth

import (
	"go-clinic/internal/common/api"
	"go-clinic/internal/config"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthApi struct {
	controller *AuthController
	config     *config.Config
}

func NewAuthApi(controller *AuthController, cfg *config.Config) api.Route {
	return &AuthApi{controller: controller, config: cfg}
}

func (h *AuthApi) Setup(app *fiber.App) {
	auth := app.Group("/api/auth")
	auth.Post("/register", h.controller.Register)
	auth.Post("/login", h.controller.Login)
	auth.Get("/me", middleware.AuthMiddleware(h.config.SkipAuth), h.controller.Me)
}
