package scheduler

import (
	"strings"
	"time"

	"go-clinic/internal/features/appointment"
)

const (
	JobReminders = "reminders"
	JobSync      = "sync"
)

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitempty"`
}

// ReminderResult summarises one reminder pass.
type ReminderResult struct {
	Tenants int `json:"tenants"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// RenderReminder fills the {{patient}}, {{doctor}}, {{date}} and {{time}} placeholders.
func RenderReminder(template string, a appointment.Appointment) string {
	return strings.NewReplacer(
		"{{patient}}", a.PatientName,
		"{{doctor}}", a.DoctorName,
		"{{date}}", a.Date,
		"{{time}}", a.StartTime,
	).Replace(template)
}
