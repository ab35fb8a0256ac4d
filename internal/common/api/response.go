package api

import (
	"strconv"

	common_models "go-clinic/internal/common/models"
	"go-clinic/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fail renders err with the status carried by *apperrors.Error.
func Fail(c *fiber.Ctx, err error) error {
	appErr := apperrors.FromError(err)
	return c.Status(appErr.Status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// BadRequest is the shape controllers use for malformed input.
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// ParamID parses the named route parameter as an ObjectID.
func ParamID(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("invalid " + name)
	}
	return id, nil
}

// QueryID parses an optional ObjectID query parameter.
func QueryID(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	raw := c.Query(name)
	if raw == "" {
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("invalid " + name)
	}
	return id, nil
}

// PageFrom reads page and limit query parameters.
func PageFrom(c *fiber.Ctx) common_models.Page {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	return common_models.NewPage(page, limit)
}
