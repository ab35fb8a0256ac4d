package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)

	wrapped := fmt.Errorf("loading doctor: %w", NotFound("doctor"))
	got := FromError(wrapped)
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, "doctor not found", got.Message)
}

func TestIsMatchesCode(t *testing.T) {
	assert.ErrorIs(t, Validation("bad phone"), ErrValidation)
	assert.ErrorIs(t, fmt.Errorf("ctx: %w", Conflict("dup")), ErrConflict)
	assert.False(t, errors.Is(ErrNotFound, ErrConflict))
}

func TestErrorString(t *testing.T) {
	err := Wrap(errors.New("dial tcp"), "UNAVAILABLE", http.StatusServiceUnavailable, "gateway down")
	assert.Equal(t, "gateway down: dial tcp", err.Error())
	assert.Equal(t, "dial tcp", errors.Unwrap(err).Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	c := Clone(ErrForbidden, "doctors only")
	assert.Equal(t, "doctors only", c.Message)
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}
