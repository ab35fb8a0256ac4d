package patient

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Patient struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	Name     string             `json:"name" bson:"name"`
	Phone    string             `json:"phone" bson:"phone"`
	// PhoneKey is the normalized phone patients are matched on.
	PhoneKey    string     `json:"-" bson:"phone_key"`
	Email       string     `json:"email,omitempty" bson:"email,omitempty"`
	Gender      string     `json:"gender,omitempty" bson:"gender,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"`
	Notes       string     `json:"notes,omitempty" bson:"notes,omitempty"`
	Source      string     `json:"source,omitempty" bson:"source,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

type PatientRequest struct {
	Name        string `json:"name" validate:"required"`
	Phone       string `json:"phone" validate:"required,min=3"`
	Email       string `json:"email" validate:"omitempty,email"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"date_of_birth"`
	Notes       string `json:"notes"`
	Source      string `json:"source"`
}
