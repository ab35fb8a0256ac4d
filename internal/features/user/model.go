package user

import (
	"time"

	common_models "go-clinic/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID     primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	Role         common_models.Role `json:"role" bson:"role"`
	// DoctorID links a doctor login to its doctor record.
	DoctorID    primitive.ObjectID `json:"doctor_id,omitempty" bson:"doctor_id,omitempty"`
	Active      bool               `json:"active" bson:"active"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin staff doctor"`
	DoctorID string `json:"doctor_id,omitempty" validate:"omitempty,mongodb"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin staff doctor"`
	Active   *bool   `json:"active,omitempty"`
	DoctorID *string `json:"doctor_id,omitempty" validate:"omitempty,mongodb"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}
