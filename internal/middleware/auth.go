package middleware

import (
	"context"
	"strings"

	common_models "go-clinic/internal/common/models"
	"go-clinic/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DevTenantHeader selects the tenant when auth is skipped in development.
const DevTenantHeader = "X-Tenant-ID"

// AuthMiddleware validates JWT tokens and stores the claims and the caller's scope
func AuthMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			scope := common_models.Scope{
				UserID: primitive.NilObjectID,
				Role:   common_models.RoleSuperAdmin,
			}
			if tenantID, err := primitive.ObjectIDFromHex(c.Get(DevTenantHeader)); err == nil {
				scope.TenantID = tenantID
				scope.Role = common_models.RoleAdmin
			}
			setScope(c, scope)
			return c.Next()
		}

		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		scope, err := claims.Scope()
		if err != nil || !scope.Role.Valid() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}
		if scope.TenantID.IsZero() && !scope.IsSuperAdmin() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token has no tenant",
			})
		}

		c.Locals(utils.UserClaimsKey, claims)
		setScope(c, scope)
		return c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter browsers use for websocket upgrades.
func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			return ""
		}
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}

func setScope(c *fiber.Ctx, scope common_models.Scope) {
	c.Locals(string(common_models.ScopeKey), scope)
	ctx := context.WithValue(c.UserContext(), common_models.ScopeKey, scope)
	ctx = context.WithValue(ctx, common_models.TenantIDKey, scope.TenantID)
	c.SetUserContext(ctx)
}

// GetScope returns the scope stored by AuthMiddleware.
func GetScope(c *fiber.Ctx) (common_models.Scope, bool) {
	scope, ok := c.Locals(string(common_models.ScopeKey)).(common_models.Scope)
	return scope, ok
}
