package validation

import (
	"testing"

	"go-clinic/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name   string  `json:"name" validate:"required"`
	Email  string  `json:"email,omitempty" validate:"omitempty,email"`
	Gender string  `json:"gender" validate:"omitempty,oneof=male female other"`
	Qty    float64 `json:"quantity" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "Ada", Qty: 1}))

	err := Struct(sample{Email: "nope", Gender: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	msg := apperrors.FromError(err).Message
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "gender must be one of [male female other]")
	assert.Contains(t, msg, "quantity must be greater than 0")
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("a@b.co", "email"))
	assert.Error(t, Var("ab", "email"))
}
