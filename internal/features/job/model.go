package job

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type Listing struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID       primitive.ObjectID `json:"tenant_id" bson:"tenant_id"`
	Title          string             `json:"title" bson:"title"`
	Department     string             `json:"department,omitempty" bson:"department,omitempty"`
	Location       string             `json:"location,omitempty" bson:"location,omitempty"`
	EmploymentType string             `json:"employment_type" bson:"employment_type"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Status         Status             `json:"status" bson:"status"`
	CreatedBy      primitive.ObjectID `json:"created_by" bson:"created_by"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// PublicListing is the subset shown on the public careers page.
type PublicListing struct {
	ID             primitive.ObjectID `json:"id"`
	Title          string             `json:"title"`
	Department     string             `json:"department,omitempty"`
	Location       string             `json:"location,omitempty"`
	EmploymentType string             `json:"employment_type"`
	Description    string             `json:"description,omitempty"`
	PostedAt       time.Time          `json:"posted_at"`
}

func (l Listing) Public() PublicListing {
	return PublicListing{
		ID:             l.ID,
		Title:          l.Title,
		Department:     l.Department,
		Location:       l.Location,
		EmploymentType: l.EmploymentType,
		Description:    l.Description,
		PostedAt:       l.CreatedAt,
	}
}

type ListingRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	Department     string `json:"department"`
	Location       string `json:"location"`
	EmploymentType string `json:"employment_type" validate:"omitempty,oneof=full_time part_time contract internship"`
	Description    string `json:"description"`
	Status         Status `json:"status" validate:"omitempty,oneof=open closed"`
}
