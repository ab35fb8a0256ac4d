package appointment_import

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-clinic/internal/cache"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/features/appointment"
	"go-clinic/internal/features/audit/audittest"
	"go-clinic/internal/features/patient"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/datetime"
	"go-clinic/pkg/importmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memJobs struct {
	jobs      map[primitive.ObjectID]*ImportJob
	createErr error
}

func (m *memJobs) Create(_ context.Context, job *ImportJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobs) FindByID(_ context.Context, _ common_models.Scope, id primitive.ObjectID) (*ImportJob, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, apperrors.NotFound("import job")
}

func (m *memJobs) List(_ context.Context, _ common_models.Scope, _ common_models.Page) ([]ImportJob, int64, error) {
	out := make([]ImportJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out, int64(len(out)), nil
}

func (m *memJobs) Update(_ context.Context, _ common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	j, ok := m.jobs[id]
	if !ok {
		return apperrors.NotFound("import job")
	}
	j.Status = fields["status"].(ImportStatus)
	j.Imported = fields["imported"].(int)
	j.Failed = fields["failed"].(int)
	j.Errors = fields["errors"].([]string)
	j.Dates = fields["dates"].([]string)
	return nil
}

func (m *memJobs) EnsureIndexes(context.Context) error { return nil }

var (
	doctorRefID = primitive.NewObjectID().Hex()
	roomRefID   = primitive.NewObjectID().Hex()
)

type staticRefs struct {
	calls int
}

func (r *staticRefs) ReferenceLists(context.Context, common_models.Scope) ([]importmap.Reference, []importmap.Reference, error) {
	r.calls++
	return []importmap.Reference{{ID: doctorRefID, Name: "Dr. Smith"}},
		[]importmap.Reference{{ID: roomRefID, Name: "Room 1"}}, nil
}

type memPatients struct {
	byPhone map[string]*patient.Patient
}

func (m *memPatients) FindOrCreateByPhone(_ context.Context, _ common_models.Scope, req patient.PatientRequest) (*patient.Patient, bool, error) {
	if p, ok := m.byPhone[req.Phone]; ok {
		return p, false, nil
	}
	p := &patient.Patient{ID: primitive.NewObjectID(), Name: req.Name, Phone: req.Phone, Gender: req.Gender}
	m.byPhone[req.Phone] = p
	return p, true, nil
}

// fakeBooker books everything except 13:00 starts, which it reports as taken.
type fakeBooker struct {
	booked []appointment.AppointmentRequest
}

func (b *fakeBooker) Import(_ context.Context, _ common_models.Scope, req appointment.AppointmentRequest, _ primitive.ObjectID) (*appointment.Appointment, error) {
	if req.StartTime == "13:00" {
		return nil, apperrors.Conflict("Dr. Smith is already booked 13:00-13:30 on 2024-01-15")
	}
	day, _ := datetime.ParseDate(req.Date)
	b.booked = append(b.booked, req)
	return &appointment.Appointment{ID: primitive.NewObjectID(), Date: datetime.FormatDate(day), Status: appointment.Status(req.Status)}, nil
}

type harness struct {
	svc      ImportService
	jobs     *memJobs
	refs     *staticRefs
	patients *memPatients
	booker   *fakeBooker
	audit    *audittest.Recorder
	memo     *cache.Memory
	cfg      *config.Config
	scope    common_models.Scope
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		jobs:     &memJobs{jobs: map[primitive.ObjectID]*ImportJob{}},
		refs:     &staticRefs{},
		patients: &memPatients{byPhone: map[string]*patient.Patient{}},
		booker:   &fakeBooker{},
		audit:    &audittest.Recorder{},
		memo:     cache.NewMemory(),
		cfg:      &config.Config{FSPath: t.TempDir(), MaxImportSizeMB: 1},
		scope:    common_models.Scope{TenantID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Role: common_models.RoleStaff},
	}
	t.Helper()
	h.svc = NewImportService(h.jobs, h.refs, h.patients, h.booker, h.audit, h.memo, nil, zap.NewNop(), h.cfg)
	return h
}

const header = "Patient Name,Patient Phone,Doctor Name,Room Name,Appointment Date,Start Time,End Time,Status,Notes\n"

func csvUpload(lines ...string) Upload {
	return Upload{Name: "appointments.csv", Data: []byte(header + strings.Join(lines, "\n") + "\n")}
}

func TestPreviewSuggestsMapping(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.Preview(context.Background(), h.scope, csvUpload(
		"John Doe,555-1234,Dr. Smith,Room 1,2024-01-15,09:00,09:30,,",
	))
	require.NoError(t, err)

	assert.Equal(t, 1, res.TotalRows)
	assert.Len(t, res.SampleRows, 1)
	assert.Equal(t, importmap.FieldDoctorName, res.SuggestedMapping["Doctor Name"])
	assert.Equal(t, importmap.FieldStatus, res.SuggestedMapping["Status"])
	assert.Len(t, res.RequiredFields, 7)
	assert.Len(t, res.OptionalFields, 5)
}

func TestValidateIsMemoized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	up := csvUpload(
		"John Doe,555-1234,Dr. Smith,Room 1,2024-01-15,09:00,09:30,,",
		"Jane Roe,555-9876,Dr. Who,Room 1,2024-01-15,10:00,09:00,,",
	)

	first, err := h.svc.Validate(ctx, h.scope, up, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, importmap.ValidationStats{ValidRows: 1, InvalidRows: 1, InvalidDoctor: 1, InvalidTime: 1}, first.Stats)
	assert.Equal(t, 2, first.TotalRows)
	assert.Equal(t, 1, h.memo.Len())

	second, err := h.svc.Validate(ctx, h.scope, up, nil)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Stats, second.Stats)

	// A different mapping is a different key.
	third, err := h.svc.Validate(ctx, h.scope, up, importmap.ColumnMapping{"Patient Name": importmap.FieldPatientName})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, third.Stats.InvalidRows)
}

func TestExecuteCollectsRowErrors(t *testing.T) {
	h := newHarness(t)
	out, err := h.svc.Execute(context.Background(), h.scope, csvUpload(
		"John Doe,555-1234,Dr. Smith,Room 1,15/01/2024,9:00 AM,9:30 AM,confirmed,first visit",
		"Jane Roe,555-9876,Dr. Who,Room 1,2024-01-15,10:00,10:30,,",
		"Ann Lee,555-0000,Dr. Smith,Room 1,2024-01-16,11:00,11:30,maybe,",
		"Bob Ray,555-1111,dr. smith,ROOM 1,2024-01-17,13:00,13:30,,",
		"John Again,555-1234,Dr. Smith,Room 1,2024/01/18,14:00,14:30,Checked In,",
	), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, out.TotalRows)
	assert.Equal(t, 2, out.Imported)
	assert.Equal(t, 3, out.Failed)
	assert.Equal(t, out.TotalRows, out.Imported+out.Failed)
	assert.Equal(t, []string{
		`Row 3: doctor "Dr. Who" not found`,
		`Row 4: unknown status "maybe"`,
		"Row 5: Dr. Smith is already booked 13:00-13:30 on 2024-01-15",
	}, out.Errors)
	assert.Equal(t, []string{"2024-01-15", "2024-01-18"}, out.Dates)

	require.Len(t, h.booker.booked, 2)
	assert.Equal(t, doctorRefID, h.booker.booked[0].DoctorID)
	assert.Equal(t, roomRefID, h.booker.booked[0].RoomID)
	assert.Equal(t, "confirmed", h.booker.booked[0].Status)
	assert.Equal(t, "first visit", h.booker.booked[0].Notes)
	assert.Equal(t, "checked_in", h.booker.booked[1].Status)
	// Both bookings reuse the patient matched by phone.
	assert.Equal(t, h.booker.booked[0].PatientID, h.booker.booked[1].PatientID)

	job, err := h.svc.GetJob(context.Background(), h.scope, out.JobID)
	require.NoError(t, err)
	assert.Equal(t, ImportStatusCompleted, job.Status)
	assert.Equal(t, 2, job.Imported)
	assert.Equal(t, 3, job.Failed)
	assert.Equal(t, out.Dates, job.Dates)
	_, statErr := os.Stat(job.FilePath)
	assert.NoError(t, statErr)

	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionImport}, h.audit.Actions())
}

func TestExecuteReportsFileLines(t *testing.T) {
	h := newHarness(t)
	out, err := h.svc.Execute(context.Background(), h.scope, csvUpload(
		"John Doe,555-1234,Dr. Smith,Room 1,2024-01-15,09:00,09:30,,",
		",,,,,,,,",
		"",
		"Jane Roe,555-9876,Dr. Who,Room 1,2024-01-15,10:00,10:30,,",
	), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, out.TotalRows)
	assert.Equal(t, []string{`Row 5: doctor "Dr. Who" not found`}, out.Errors)
}

func TestExecuteRemovesUploadWhenJobIsNotSaved(t *testing.T) {
	h := newHarness(t)
	h.jobs.createErr = errors.New("connection reset")

	_, err := h.svc.Execute(context.Background(), h.scope, csvUpload(
		"John Doe,555-1234,Dr. Smith,Room 1,2024-01-15,09:00,09:30,,",
	), nil)
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(h.cfg.FSPath, "imports", h.scope.TenantID.Hex()))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, h.booker.booked)
}

func TestExecuteRejectsWhenNothingIsValid(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Execute(context.Background(), h.scope, csvUpload(
		"John Doe,555-1234,Dr. Who,Room 1,2024-01-15,09:00,09:30,,",
	), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Empty(t, h.jobs.jobs)
	assert.Empty(t, h.booker.booked)
}

func TestExecuteEmptyMappingIsRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Execute(context.Background(), h.scope, csvUpload(
		"John Doe,555-1234,Dr. Smith,Room 1,2024-01-15,09:00,09:30,,",
	), importmap.ColumnMapping{})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestUploadSizeLimit(t *testing.T) {
	h := newHarness(t)
	big := Upload{Name: "big.csv", Data: make([]byte, 2*1024*1024)}
	_, err := h.svc.Preview(context.Background(), h.scope, big)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestResolveMapping(t *testing.T) {
	sheet := &Sheet{Headers: []string{"Doctor Name", "Doc"}}

	m, err := resolveMapping(sheet, nil)
	require.NoError(t, err)
	assert.Equal(t, importmap.ColumnMapping{"Doctor Name": importmap.FieldDoctorName}, m)

	m, err = resolveMapping(sheet, importmap.ColumnMapping{"Doc": importmap.FieldDoctorName, "Doctor Name": ""})
	require.NoError(t, err)
	assert.Equal(t, importmap.ColumnMapping{"Doc": importmap.FieldDoctorName}, m)

	_, err = resolveMapping(sheet, importmap.ColumnMapping{"Doc": "favouriteColour"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = resolveMapping(sheet, importmap.ColumnMapping{"Doc": importmap.FieldDoctorName, "Doctor Name": importmap.FieldDoctorName})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestNormalizers(t *testing.T) {
	statuses := map[string]appointment.Status{
		"Scheduled":  appointment.StatusScheduled,
		"checked in": appointment.StatusCheckedIn,
		"No-Show":    appointment.StatusNoShow,
		"canceled":   appointment.StatusCancelled,
	}
	for raw, want := range statuses {
		got, ok := normalizeStatus(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := normalizeStatus("later")
	assert.False(t, ok)

	assert.Equal(t, appointment.FollowUp, normalizeFollowType("Follow Up"))
	assert.Equal(t, appointment.FollowNew, normalizeFollowType(""))
	assert.Equal(t, "female", normalizeGender(" F "))
	assert.Equal(t, "", normalizeGender("unknown"))
}
