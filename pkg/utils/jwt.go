package utils

import (
	"time"

	common_models "go-clinic/internal/common/models"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserClaimsKey = "user_claims"

var jwtSecret = []byte("secret")

// SetSecret allows injecting the secret from config
func SetSecret(secret string) {
	jwtSecret = []byte(secret)
}

type UserClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	DoctorID string `json:"doctor_id,omitempty"`
	jwt.RegisteredClaims
}

// Scope converts verified claims into the scope handed to services.
func (c *UserClaims) Scope() (common_models.Scope, error) {
	var scope common_models.Scope
	userID, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return scope, err
	}
	scope.UserID = userID
	scope.Role = common_models.Role(c.Role)
	if c.TenantID != "" {
		if scope.TenantID, err = primitive.ObjectIDFromHex(c.TenantID); err != nil {
			return scope, err
		}
	}
	if c.DoctorID != "" {
		if scope.DoctorID, err = primitive.ObjectIDFromHex(c.DoctorID); err != nil {
			return scope, err
		}
	}
	return scope, nil
}

func GenerateToken(userID, tenantID primitive.ObjectID, role common_models.Role, doctorID primitive.ObjectID) (string, error) {
	claims := UserClaims{
		UserID: userID.Hex(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if !tenantID.IsZero() {
		claims.TenantID = tenantID.Hex()
	}
	if !doctorID.IsZero() {
		claims.DoctorID = doctorID.Hex()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenSignatureInvalid
}
