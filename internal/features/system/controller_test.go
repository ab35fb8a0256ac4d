package system

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/metrics"
	"go-clinic/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func pingResult(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func newApp(checks []Check, m *metrics.Metrics) *fiber.App {
	app := fiber.New()
	NewSystemApi(newController(checks), m, &config.Config{}).Setup(app)
	return app
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		status int
		state  string
	}{
		{"all up", []Check{{Name: "mongodb", Ping: pingResult(nil)}}, 200, "ready"},
		{"mongo down", []Check{{Name: "mongodb", Ping: pingResult(errors.New("no reachable servers"))}}, 503, "unavailable"},
		{"optional redis down", []Check{
			{Name: "mongodb", Ping: pingResult(nil)},
			{Name: "redis", Ping: pingResult(errors.New("connection refused")), Optional: true},
		}, 200, "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.checks, nil).Test(httptest.NewRequest("GET", "/health/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.state, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestHealth(t *testing.T) {
	resp, err := newApp(nil, nil).Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewMetrics()
	m.JobRun("reminders", true)

	resp, err := newApp(nil, m).Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "reminders"))
}

func TestMe(t *testing.T) {
	app := newApp(nil, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	utils.SetSecret("system-test")
	tenant := primitive.NewObjectID()
	tok, err := utils.GenerateToken(primitive.NewObjectID(), tenant, common_models.RoleStaff, primitive.NilObjectID)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var scope common_models.Scope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scope))
	assert.Equal(t, tenant, scope.TenantID)
	assert.Equal(t, common_models.RoleStaff, scope.Role)
}
