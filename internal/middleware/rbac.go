package middleware

import (
	"slices"

	common_models "go-clinic/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

// RequireRole lets the request through only for the listed roles. Super admins always pass.
func RequireRole(roles ...common_models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, ok := GetScope(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if scope.IsSuperAdmin() || slices.Contains(roles, scope.Role) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: Insufficient permissions",
		})
	}
}

// RequireAdmin is RequireRole for tenant administrators.
func RequireAdmin() fiber.Handler {
	return RequireRole(common_models.RoleAdmin)
}
