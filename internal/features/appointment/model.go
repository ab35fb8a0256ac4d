package appointment

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// transitions lists the statuses reachable from each status. Missing keys are terminal.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanMoveTo reports whether next is reachable from s in one step.
func (s Status) CanMoveTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Blocking statuses hold their slot.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type FollowType string

const (
	FollowNew    FollowType = "new"
	FollowUp     FollowType = "follow_up"
	SourceManual            = "manual"
	SourceImport            = "import"
)

// SlotMinutes is the booking grid.
const SlotMinutes = 15

type Appointment struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID       primitive.ObjectID  `json:"tenant_id" bson:"tenant_id"`
	PatientID      primitive.ObjectID  `json:"patient_id" bson:"patient_id"`
	PatientName    string              `json:"patient_name" bson:"patient_name"`
	PatientPhone   string              `json:"patient_phone" bson:"patient_phone"`
	DoctorID       primitive.ObjectID  `json:"doctor_id" bson:"doctor_id"`
	DoctorName     string              `json:"doctor_name" bson:"doctor_name"`
	RoomID         primitive.ObjectID  `json:"room_id" bson:"room_id"`
	RoomName       string              `json:"room_name" bson:"room_name"`
	Date           string              `json:"date" bson:"date"`
	StartTime      string              `json:"start_time" bson:"start_time"`
	EndTime        string              `json:"end_time" bson:"end_time"`
	StartsAt       time.Time           `json:"starts_at" bson:"starts_at"`
	EndsAt         time.Time           `json:"ends_at" bson:"ends_at"`
	Status         Status              `json:"status" bson:"status"`
	FollowType     FollowType          `json:"follow_type" bson:"follow_type"`
	Notes          string              `json:"notes,omitempty" bson:"notes,omitempty"`
	CancelReason   string              `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	Source         string              `json:"source" bson:"source"`
	ImportJobID    *primitive.ObjectID `json:"import_job_id,omitempty" bson:"import_job_id,omitempty"`
	ReminderSentAt *time.Time          `json:"reminder_sent_at,omitempty" bson:"reminder_sent_at,omitempty"`
	CreatedBy      primitive.ObjectID  `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt      time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" bson:"updated_at"`
}

type AppointmentRequest struct {
	PatientID  string `json:"patient_id" validate:"required"`
	DoctorID   string `json:"doctor_id" validate:"required"`
	RoomID     string `json:"room_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	Status     string `json:"status" validate:"omitempty,oneof=scheduled confirmed checked_in completed cancelled no_show"`
	FollowType string `json:"follow_type" validate:"omitempty,oneof=new follow_up"`
	Notes      string `json:"notes"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled confirmed checked_in completed cancelled no_show"`
	Reason string `json:"reason"`
}

// Filter narrows List and Export. Dates are inclusive YYYY-MM-DD bounds.
type Filter struct {
	From      string
	To        string
	DoctorID  primitive.ObjectID
	RoomID    primitive.ObjectID
	PatientID primitive.ObjectID
	Status    Status
}

// Slot is a free bookable interval.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
