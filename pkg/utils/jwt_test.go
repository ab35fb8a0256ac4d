package utils

import (
	"testing"

	common_models "go-clinic/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	userID, tenantID, doctorID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	token, err := GenerateToken(userID, tenantID, common_models.RoleDoctor, doctorID)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)

	scope, err := claims.Scope()
	require.NoError(t, err)
	assert.Equal(t, userID, scope.UserID)
	assert.Equal(t, tenantID, scope.TenantID)
	assert.Equal(t, doctorID, scope.DoctorID)
	assert.Equal(t, common_models.RoleDoctor, scope.Role)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	SetSecret("one")
	token, err := GenerateToken(primitive.NewObjectID(), primitive.NilObjectID, common_models.RoleSuperAdmin, primitive.NilObjectID)
	require.NoError(t, err)

	SetSecret("two")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestScopeRejectsMalformedIDs(t *testing.T) {
	_, err := (&UserClaims{UserID: "nope"}).Scope()
	assert.Error(t, err)

	_, err = (&UserClaims{UserID: primitive.NewObjectID().Hex(), TenantID: "bad"}).Scope()
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "other"))
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"(555) 123-4567":   "5551234567",
		" +1 555 123 4567": "+15551234567",
		"555+1":            "5551",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}
