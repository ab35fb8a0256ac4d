package system

import (
	"context"
	"time"

	"go-clinic/internal/database"
	"go-clinic/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Check pings one dependency for readiness.
type Check struct {
	Name     string
	Ping     func(ctx context.Context) error
	Optional bool
}

type SystemController struct {
	Checks  []Check
	Timeout time.Duration
	started time.Time
}

// NewSystemController checks mongo and, when configured, redis. Redis only degrades
// caching so its failure does not fail readiness.
func NewSystemController(mongodb *database.MongodbDB, rdb *redis.Client) *SystemController {
	checks := []Check{{
		Name: "mongodb",
		Ping: func(ctx context.Context) error {
			return mongodb.DB.Client().Ping(ctx, nil)
		},
	}}
	if rdb != nil {
		checks = append(checks, Check{
			Name:     "redis",
			Optional: true,
			Ping: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		})
	}
	return newController(checks)
}

func newController(checks []Check) *SystemController {
	return &SystemController{Checks: checks, Timeout: 2 * time.Second, started: time.Now()}
}

// Health godoc
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (ctrl *SystemController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(ctrl.started).Round(time.Second).String(),
	})
}

// Ready godoc
// @Summary      Readiness check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health/ready [get]
func (ctrl *SystemController) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), ctrl.Timeout)
	defer cancel()

	status := fiber.StatusOK
	results := make(fiber.Map, len(ctrl.Checks))
	for _, check := range ctrl.Checks {
		if err := check.Ping(ctx); err != nil {
			results[check.Name] = err.Error()
			if !check.Optional {
				status = fiber.StatusServiceUnavailable
			}
			continue
		}
		results[check.Name] = "ok"
	}
	state := "ready"
	if status != fiber.StatusOK {
		state = "unavailable"
	}
	return c.Status(status).JSON(fiber.Map{"status": state, "checks": results})
}

// Me godoc
// @Summary      Current session
// @Description  Returns the tenant, user and role carried by the token
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/me [get]
func (ctrl *SystemController) Me(c *fiber.Ctx) error {
	scope, ok := middleware.GetScope(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return c.JSON(scope)
}
