package tenant

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tenant is one clinic. Every other record carries its id.
type Tenant struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Slug     string             `json:"slug" bson:"slug"`
	TimeZone string             `json:"time_zone" bson:"time_zone"`
	Phone    string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Email    string             `json:"email,omitempty" bson:"email,omitempty"`

	// LeadScoringScript is a tengo script run against every lead on save.
	LeadScoringScript string `json:"lead_scoring_script,omitempty" bson:"lead_scoring_script,omitempty"`
	// ReminderTemplate is the SMS body sent the day before an appointment.
	ReminderTemplate string `json:"reminder_template,omitempty" bson:"reminder_template,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Location returns the clinic time zone, UTC when unset or unknown.
func (t *Tenant) Location() *time.Location {
	if t == nil || t.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Reminder returns the tenant template or the default one.
func (t *Tenant) Reminder() string {
	if t == nil || t.ReminderTemplate == "" {
		return DefaultReminderTemplate
	}
	return t.ReminderTemplate
}

type SettingsRequest struct {
	Name              *string `json:"name,omitempty" validate:"omitempty,min=2"`
	TimeZone          *string `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	LeadScoringScript *string `json:"lead_scoring_script,omitempty"`
	ReminderTemplate  *string `json:"reminder_template,omitempty"`
}

const DefaultReminderTemplate = "Hi {{patient}}, this is a reminder of your appointment with {{doctor}} on {{date}} at {{time}}."
