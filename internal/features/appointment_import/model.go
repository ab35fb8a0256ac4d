package appointment_import

import (
	"time"

	"go-clinic/pkg/importmap"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// maxStoredErrors caps the row errors persisted on a job. The outcome returned to the
// caller always carries all of them.
const maxStoredErrors = 500

// ImportJob records one submitted file and what became of it.
type ImportJob struct {
	ID            primitive.ObjectID      `json:"id" bson:"_id,omitempty"`
	TenantID      primitive.ObjectID      `json:"tenant_id" bson:"tenant_id"`
	UserID        primitive.ObjectID      `json:"user_id" bson:"user_id"`
	FileName      string                  `json:"file_name" bson:"file_name"`
	FilePath      string                  `json:"-" bson:"file_path"`
	ColumnMapping importmap.ColumnMapping `json:"column_mapping" bson:"column_mapping"`
	Status        ImportStatus            `json:"status" bson:"status"`
	TotalRows     int                     `json:"total_rows" bson:"total_rows"`
	Imported      int                     `json:"imported" bson:"imported"`
	Failed        int                     `json:"failed" bson:"failed"`
	Errors        []string                `json:"errors,omitempty" bson:"errors,omitempty"`
	Dates         []string                `json:"dates,omitempty" bson:"dates,omitempty"`
	CreatedAt     time.Time               `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at" bson:"updated_at"`
	CompletedAt   *time.Time              `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// ImportOutcome summarizes a submission. Imported + Failed == TotalRows.
type ImportOutcome struct {
	JobID     primitive.ObjectID `json:"job_id"`
	TotalRows int                `json:"total_rows"`
	Imported  int                `json:"imported"`
	Failed    int                `json:"failed"`
	Errors    []string           `json:"errors"`
	// Dates are the distinct appointment dates that received at least one booking.
	Dates []string `json:"dates"`
}

// Upload is a file received from the client.
type Upload struct {
	Name string
	Data []byte
}

type PreviewResponse struct {
	FileName         string                      `json:"file_name"`
	Headers          []string                    `json:"headers"`
	TotalRows        int                         `json:"total_rows"`
	SampleRows       []importmap.RawRow          `json:"sample_rows"`
	SuggestedMapping importmap.ColumnMapping     `json:"suggested_mapping"`
	RequiredFields   []importmap.FieldDescriptor `json:"required_fields"`
	OptionalFields   []importmap.FieldDescriptor `json:"optional_fields"`
}

type ValidateResponse struct {
	importmap.Result
	TotalRows int  `json:"total_rows"`
	Cached    bool `json:"cached"`
}
