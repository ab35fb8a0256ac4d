package sync

import (
	"time"

	"go-clinic/internal/features/appointment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// appointmentsStream names the sync_state document of the appointment mirror.
const appointmentsStream = "appointments"

// State is the cursor of a mirrored stream: the (updated_at, _id) of the last row copied.
type State struct {
	Stream     string             `json:"stream" bson:"_id"`
	LastSyncAt time.Time          `json:"last_sync_at" bson:"last_sync_at"`
	LastID     primitive.ObjectID `json:"last_id" bson:"last_id"`
	Total      int64              `json:"total" bson:"total"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunSuccess    RunStatus = "success"
	RunFailed     RunStatus = "failed"
)

// Run records one execution of the mirror.
type Run struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Trigger   string             `json:"trigger" bson:"trigger"`
	StartTime time.Time          `json:"start_time" bson:"start_time"`
	EndTime   time.Time          `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Status    RunStatus          `json:"status" bson:"status"`
	Processed int                `json:"processed" bson:"processed"`
	Error     string             `json:"error,omitempty" bson:"error,omitempty"`
}

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// Row is an appointment as stored in the warehouse.
type Row struct {
	ID          string
	TenantID    string
	PatientID   string
	PatientName string
	DoctorID    string
	DoctorName  string
	RoomID      string
	RoomName    string
	Date        string
	StartTime   string
	EndTime     string
	StartsAt    time.Time
	EndsAt      time.Time
	Status      string
	FollowType  string
	Source      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func rowFrom(a appointment.Appointment) Row {
	return Row{
		ID:          a.ID.Hex(),
		TenantID:    a.TenantID.Hex(),
		PatientID:   a.PatientID.Hex(),
		PatientName: a.PatientName,
		DoctorID:    a.DoctorID.Hex(),
		DoctorName:  a.DoctorName,
		RoomID:      a.RoomID.Hex(),
		RoomName:    a.RoomName,
		Date:        a.Date,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		StartsAt:    a.StartsAt,
		EndsAt:      a.EndsAt,
		Status:      string(a.Status),
		FollowType:  string(a.FollowType),
		Source:      a.Source,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (r Row) values() []interface{} {
	return []interface{}{
		r.ID, r.TenantID, r.PatientID, r.PatientName, r.DoctorID, r.DoctorName, r.RoomID, r.RoomName,
		r.Date, r.StartTime, r.EndTime, r.StartsAt, r.EndsAt, r.Status, r.FollowType, r.Source,
		r.CreatedAt, r.UpdatedAt,
	}
}
