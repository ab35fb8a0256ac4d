package clinic

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Doctor struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID  primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	Name      string             `json:"name" bson:"name"`
	NameKey   string             `json:"-" bson:"name_key"`
	Specialty string             `json:"specialty,omitempty" bson:"specialty,omitempty"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	Active    bool               `json:"active" bson:"active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type Room struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID  primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	Name      string             `json:"name" bson:"name"`
	NameKey   string             `json:"-" bson:"name_key"`
	Floor     string             `json:"floor,omitempty" bson:"floor,omitempty"`
	Active    bool               `json:"active" bson:"active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type DoctorRequest struct {
	Name      string `json:"name" validate:"required"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
	Active    *bool  `json:"active,omitempty"`
}

type RoomRequest struct {
	Name   string `json:"name" validate:"required"`
	Floor  string `json:"floor"`
	Active *bool  `json:"active,omitempty"`
}

// NameKey is the case-insensitive form names are matched on.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
