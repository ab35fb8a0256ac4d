package middleware

import (
	"time"

	"go-clinic/internal/logger"
	"go-clinic/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, reusing the caller's header when present.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     RequestIDHeader,
		Generator:  uuid.NewString,
		ContextKey: "requestid",
	})
}

// RequestIDOf returns the id assigned by RequestID.
func RequestIDOf(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// Metrics records request count and latency by route pattern.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		m.ObserveHTTPRequest(c.Method(), path, c.Response().StatusCode(), time.Since(start))
		return err
	}
}

// RequestLogger returns a logger carrying the request id, caller IP and tenant.
func RequestLogger(base *zap.Logger, c *fiber.Ctx) *zap.Logger {
	fields := []zap.Field{
		zap.String(logger.FieldRequestID, RequestIDOf(c)),
		zap.String(logger.FieldIP, c.IP()),
	}
	if scope, ok := GetScope(c); ok && !scope.TenantID.IsZero() {
		fields = append(fields, zap.String(logger.FieldTenant, scope.TenantID.Hex()))
	}
	return base.With(fields...)
}
