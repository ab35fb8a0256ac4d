package lead

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

type Lead struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID    primitive.ObjectID  `json:"tenant_id" bson:"tenant_id"`
	Name        string              `json:"name" bson:"name"`
	Phone       string              `json:"phone,omitempty" bson:"phone,omitempty"`
	Email       string              `json:"email,omitempty" bson:"email,omitempty"`
	Source      string              `json:"source,omitempty" bson:"source,omitempty"`
	Status      Status              `json:"status" bson:"status"`
	Score       int                 `json:"score" bson:"score"`
	Notes       string              `json:"notes,omitempty" bson:"notes,omitempty"`
	PatientID   *primitive.ObjectID `json:"patient_id,omitempty" bson:"patient_id,omitempty"`
	ConvertedAt *time.Time          `json:"converted_at,omitempty" bson:"converted_at,omitempty"`
	CreatedBy   primitive.ObjectID  `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updated_at"`
}

// scriptInput is the lead as scoring scripts see it.
func (l Lead) scriptInput() map[string]interface{} {
	return map[string]interface{}{
		"name":   l.Name,
		"phone":  l.Phone,
		"email":  l.Email,
		"source": l.Source,
		"status": string(l.Status),
		"notes":  l.Notes,
	}
}

type LeadRequest struct {
	Name   string `json:"name" validate:"required"`
	Phone  string `json:"phone"`
	Email  string `json:"email" validate:"omitempty,email"`
	Source string `json:"source"`
	Status Status `json:"status" validate:"omitempty,oneof=new contacted qualified lost"`
	Notes  string `json:"notes"`
}

type Filter struct {
	Status Status
	Search string
}
