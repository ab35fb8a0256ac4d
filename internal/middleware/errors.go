package middleware

import (
	"errors"

	"go-clinic/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders *apperrors.Error and *fiber.Error as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}

	appErr := apperrors.FromError(err)
	return c.Status(appErr.Status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
