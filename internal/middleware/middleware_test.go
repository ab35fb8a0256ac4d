package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	common_models "go-clinic/internal/common/models"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestID())
	for _, h := range handlers {
		app.Use(h)
	}
	app.Get("/", func(c *fiber.Ctx) error {
		scope, _ := GetScope(c)
		return c.JSON(fiber.Map{"role": scope.Role, "tenant": scope.TenantID.Hex()})
	})
	return app
}

func token(t *testing.T, role common_models.Role, tenantID primitive.ObjectID) string {
	t.Helper()
	utils.SetSecret("middleware-test")
	tok, err := utils.GenerateToken(primitive.NewObjectID(), tenantID, role, primitive.NilObjectID)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	tenant := primitive.NewObjectID()
	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "missing header", status: fiber.StatusUnauthorized},
		{name: "bad scheme", header: "Basic abc", status: fiber.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", status: fiber.StatusUnauthorized},
		{name: "valid bearer", header: "Bearer " + token(t, common_models.RoleStaff, tenant), status: fiber.StatusOK},
		{name: "token query", query: "?token=" + token(t, common_models.RoleStaff, tenant), status: fiber.StatusOK},
		{name: "tenantless staff", header: "Bearer " + token(t, common_models.RoleStaff, primitive.NilObjectID), status: fiber.StatusUnauthorized},
		{name: "super admin without tenant", header: "Bearer " + token(t, common_models.RoleSuperAdmin, primitive.NilObjectID), status: fiber.StatusOK},
	}

	app := newApp(AuthMiddleware(false))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
		})
	}
}

func TestAuthMiddlewareSkip(t *testing.T) {
	tenant := primitive.NewObjectID()
	app := newApp(AuthMiddleware(true))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(DevTenantHeader, tenant.Hex())
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), tenant.Hex())
	assert.Contains(t, string(body), `"role":"admin"`)
}

func TestRequireRole(t *testing.T) {
	tenant := primitive.NewObjectID()
	app := newApp(AuthMiddleware(false), RequireAdmin())

	for role, want := range map[common_models.Role]int{
		common_models.RoleAdmin:  fiber.StatusOK,
		common_models.RoleStaff:  fiber.StatusForbidden,
		common_models.RoleDoctor: fiber.StatusForbidden,
	} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, role, tenant))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, role)
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/app", func(c *fiber.Ctx) error { return apperrors.NotFound("doctor") })
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "tea") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("boom") })

	for path, want := range map[string]int{"/app": 404, "/fiber": 418, "/plain": 500} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
