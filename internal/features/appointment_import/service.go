package appointment_import

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go-clinic/internal/cache"
	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/features/appointment"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/patient"
	"go-clinic/internal/metrics"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/importmap"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	sampleRows        = 5
	validationMemoTTL = 15 * time.Minute
)

// References supplies the active doctors and rooms rows are checked against.
type References interface {
	ReferenceLists(ctx context.Context, scope common_models.Scope) ([]importmap.Reference, []importmap.Reference, error)
}

type Patients interface {
	FindOrCreateByPhone(ctx context.Context, scope common_models.Scope, req patient.PatientRequest) (*patient.Patient, bool, error)
}

type Booker interface {
	Import(ctx context.Context, scope common_models.Scope, req appointment.AppointmentRequest, jobID primitive.ObjectID) (*appointment.Appointment, error)
}

type ImportService interface {
	// Preview parses the upload and suggests a column mapping.
	Preview(ctx context.Context, scope common_models.Scope, upload Upload) (*PreviewResponse, error)
	// Validate evaluates every row against mapping. A nil mapping means the suggested one.
	Validate(ctx context.Context, scope common_models.Scope, upload Upload, mapping importmap.ColumnMapping) (*ValidateResponse, error)
	// Execute stores the upload, books every valid row and records the job.
	Execute(ctx context.Context, scope common_models.Scope, upload Upload, mapping importmap.ColumnMapping) (*ImportOutcome, error)
	ListJobs(ctx context.Context, scope common_models.Scope, page common_models.Page) (*common_models.PageResult[ImportJob], error)
	GetJob(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*ImportJob, error)
}

type ImportServiceImpl struct {
	Repo         ImportJobRepository
	References   References
	Patients     Patients
	Booker       Booker
	AuditService audit.AuditService
	Cache        cache.Cache
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	Config       *config.Config
}

func NewImportService(
	repo ImportJobRepository,
	references References,
	patients Patients,
	booker Booker,
	auditService audit.AuditService,
	c cache.Cache,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) ImportService {
	return &ImportServiceImpl{
		Repo:         repo,
		References:   references,
		Patients:     patients,
		Booker:       booker,
		AuditService: auditService,
		Cache:        c,
		Metrics:      m,
		Logger:       logger,
		Config:       cfg,
	}
}

func (s *ImportServiceImpl) Preview(ctx context.Context, scope common_models.Scope, upload Upload) (*PreviewResponse, error) {
	sheet, err := s.parse(upload)
	if err != nil {
		return nil, err
	}
	return &PreviewResponse{
		FileName:         filepath.Base(upload.Name),
		Headers:          sheet.Headers,
		TotalRows:        len(sheet.Rows),
		SampleRows:       sheet.Rows[:min(len(sheet.Rows), sampleRows)],
		SuggestedMapping: importmap.AutoMap(sheet.Headers, importmap.AllFields()),
		RequiredFields:   importmap.RequiredFields(),
		OptionalFields:   importmap.OptionalFields(),
	}, nil
}

func (s *ImportServiceImpl) Validate(ctx context.Context, scope common_models.Scope, upload Upload, mapping importmap.ColumnMapping) (*ValidateResponse, error) {
	sheet, err := s.parse(upload)
	if err != nil {
		return nil, err
	}
	mapping, err = resolveMapping(sheet, mapping)
	if err != nil {
		return nil, err
	}
	doctors, rooms, err := s.References.ReferenceLists(ctx, scope)
	if err != nil {
		return nil, err
	}

	key, err := importmap.Fingerprint(sheet.Rows, mapping, doctors, rooms)
	if err != nil {
		return nil, err
	}
	key = "import:validate:" + scope.TenantID.Hex() + ":" + key

	resp := &ValidateResponse{TotalRows: len(sheet.Rows)}
	if hit, err := s.Cache.Get(ctx, key, &resp.Result); err == nil && hit {
		resp.Cached = true
		return resp, nil
	} else if err != nil {
		s.Logger.Warn("validation memo unavailable", zap.Error(err))
	}

	resp.Result = importmap.Evaluate(sheet.Rows, mapping, doctors, rooms)
	if err := s.Cache.Set(ctx, key, resp.Result, validationMemoTTL); err != nil {
		s.Logger.Warn("failed to memoize validation", zap.Error(err))
	}
	return resp, nil
}

func (s *ImportServiceImpl) Execute(ctx context.Context, scope common_models.Scope, upload Upload, mapping importmap.ColumnMapping) (*ImportOutcome, error) {
	sheet, err := s.parse(upload)
	if err != nil {
		return nil, err
	}
	mapping, err = resolveMapping(sheet, mapping)
	if err != nil {
		return nil, err
	}
	doctors, rooms, err := s.References.ReferenceLists(ctx, scope)
	if err != nil {
		return nil, err
	}
	if stats := importmap.Validate(sheet.Rows, mapping, doctors, rooms); stats.ValidRows == 0 {
		return nil, apperrors.Validation("no valid rows to import, check the column mapping")
	}

	path, err := s.store(scope, upload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	job := &ImportJob{
		ID:            primitive.NewObjectID(),
		TenantID:      scope.TenantID,
		UserID:        scope.UserID,
		FileName:      filepath.Base(upload.Name),
		FilePath:      path,
		ColumnMapping: mapping,
		Status:        ImportStatusProcessing,
		TotalRows:     len(sheet.Rows),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.Logger.Warn("failed to remove orphaned import file", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, err
	}

	outcome := s.run(ctx, scope, job.ID, sheet, importmap.NewChecker(mapping, doctors, rooms))

	status := ImportStatusCompleted
	if outcome.Imported == 0 {
		status = ImportStatusFailed
	}
	stored := outcome.Errors
	if len(stored) > maxStoredErrors {
		stored = stored[:maxStoredErrors]
	}
	done := time.Now()
	if err := s.Repo.Update(ctx, scope, job.ID, bson.M{
		"status":       status,
		"imported":     outcome.Imported,
		"failed":       outcome.Failed,
		"errors":       stored,
		"dates":        outcome.Dates,
		"updated_at":   done,
		"completed_at": done,
	}); err != nil {
		s.Logger.Error("failed to record import job result", zap.String("job_id", job.ID.Hex()), zap.Error(err))
	}

	s.Metrics.ImportRows(outcome.Imported, outcome.Failed)
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionImport, "appointment_import", job.ID.Hex(), map[string]common_models.Change{
		"imported": {New: outcome.Imported},
		"failed":   {New: outcome.Failed},
	})
	s.Logger.Info("Appointment import finished",
		zap.String("job_id", job.ID.Hex()),
		zap.String("tenant_id", scope.TenantID.Hex()),
		zap.Int("total", outcome.TotalRows),
		zap.Int("imported", outcome.Imported),
		zap.Int("failed", outcome.Failed),
	)
	return outcome, nil
}

// run books each row in file order. A failing row is recorded and skipped.
func (s *ImportServiceImpl) run(ctx context.Context, scope common_models.Scope, jobID primitive.ObjectID, sheet *Sheet, checker *importmap.Checker) *ImportOutcome {
	outcome := &ImportOutcome{JobID: jobID, TotalRows: len(sheet.Rows), Errors: make([]string, 0), Dates: make([]string, 0)}
	dates := make(map[string]bool)

	for i, raw := range sheet.Rows {
		line := sheet.Lines[i]
		date, err := s.importRow(ctx, scope, jobID, checker.Check(raw))
		if err != nil {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Row %d: %s", line, err.Error()))
			continue
		}
		outcome.Imported++
		dates[date] = true
	}

	for d := range dates {
		outcome.Dates = append(outcome.Dates, d)
	}
	sort.Strings(outcome.Dates)
	return outcome
}

func (s *ImportServiceImpl) importRow(ctx context.Context, scope common_models.Scope, jobID primitive.ObjectID, row importmap.MappedRow) (string, error) {
	if !row.Valid {
		return "", rowProblem(row)
	}
	value := func(id string) string {
		v, _ := row.Get(id)
		return strings.TrimSpace(v)
	}

	status := ""
	if raw := value(importmap.FieldStatus); raw != "" {
		st, ok := normalizeStatus(raw)
		if !ok {
			return "", fmt.Errorf("unknown status %q", raw)
		}
		status = string(st)
	}

	p, _, err := s.Patients.FindOrCreateByPhone(ctx, scope, patient.PatientRequest{
		Name:   value(importmap.FieldPatientName),
		Phone:  value(importmap.FieldPatientPhone),
		Email:  value(importmap.FieldPatientEmail),
		Gender: normalizeGender(value(importmap.FieldPatientGender)),
		Source: "import",
	})
	if err != nil {
		return "", fmt.Errorf("patient: %s", apperrors.FromError(err).Message)
	}

	a, err := s.Booker.Import(ctx, scope, appointment.AppointmentRequest{
		PatientID:  p.ID.Hex(),
		DoctorID:   row.DoctorID,
		RoomID:     row.RoomID,
		Date:       value(importmap.FieldAppointmentDate),
		StartTime:  value(importmap.FieldStartTime),
		EndTime:    value(importmap.FieldEndTime),
		Status:     status,
		FollowType: string(normalizeFollowType(value(importmap.FieldFollowType))),
		Notes:      value(importmap.FieldNotes),
	}, jobID)
	if err != nil {
		return "", fmt.Errorf("%s", apperrors.FromError(err).Message)
	}
	return a.Date, nil
}

func (s *ImportServiceImpl) ListJobs(ctx context.Context, scope common_models.Scope, page common_models.Page) (*common_models.PageResult[ImportJob], error) {
	items, total, err := s.Repo.List(ctx, scope, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[ImportJob]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *ImportServiceImpl) GetJob(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*ImportJob, error) {
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *ImportServiceImpl) parse(upload Upload) (*Sheet, error) {
	if limit := s.Config.MaxImportBytes(); limit > 0 && int64(len(upload.Data)) > limit {
		return nil, apperrors.Validation(fmt.Sprintf("file exceeds the %d MB limit", s.Config.MaxImportSizeMB))
	}
	return ParseFile(upload)
}

// store keeps the original upload next to the job for later inspection.
func (s *ImportServiceImpl) store(scope common_models.Scope, upload Upload) (string, error) {
	dir := filepath.Join(s.Config.FSPath, "imports", scope.TenantID.Hex())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create import dir: %w", err)
	}
	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), strings.ReplaceAll(filepath.Base(upload.Name), " ", "_"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, upload.Data, 0o644); err != nil {
		return "", fmt.Errorf("save import file: %w", err)
	}
	return path, nil
}

// resolveMapping falls back to the suggested mapping when none was sent and rejects
// mappings that name unknown fields or bind one field twice.
func resolveMapping(sheet *Sheet, mapping importmap.ColumnMapping) (importmap.ColumnMapping, error) {
	if mapping == nil {
		return importmap.AutoMap(sheet.Headers, importmap.AllFields()), nil
	}
	clean := make(importmap.ColumnMapping, len(mapping))
	bound := make(map[string]string, len(mapping))
	for col, fieldID := range mapping {
		if fieldID == "" {
			continue
		}
		if _, ok := importmap.FieldByID(fieldID); !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown field %q in mapping", fieldID))
		}
		if prev, dup := bound[fieldID]; dup {
			return nil, apperrors.Validation(fmt.Sprintf("field %q is mapped to both %q and %q", fieldID, prev, col))
		}
		bound[fieldID] = col
		clean[col] = fieldID
	}
	return clean, nil
}

func rowProblem(row importmap.MappedRow) error {
	parts := make([]string, 0, len(row.Issues))
	for _, cause := range row.Issues {
		switch cause {
		case importmap.CauseMissingRequired:
			parts = append(parts, "missing required fields")
		case importmap.CauseInvalidDoctor:
			v, _ := row.Get(importmap.FieldDoctorName)
			parts = append(parts, fmt.Sprintf("doctor %q not found", v))
		case importmap.CauseInvalidRoom:
			v, _ := row.Get(importmap.FieldRoomName)
			parts = append(parts, fmt.Sprintf("room %q not found", v))
		case importmap.CauseInvalidDate:
			v, _ := row.Get(importmap.FieldAppointmentDate)
			parts = append(parts, fmt.Sprintf("invalid date %q", v))
		case importmap.CauseInvalidTime:
			start, _ := row.Get(importmap.FieldStartTime)
			end, _ := row.Get(importmap.FieldEndTime)
			parts = append(parts, fmt.Sprintf("invalid time range %q-%q", start, end))
		}
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

func normalizeStatus(raw string) (appointment.Status, bool) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(raw)))
	switch key {
	case "canceled":
		key = "cancelled"
	case "noshow":
		key = "no_show"
	case "checkedin":
		key = "checked_in"
	}
	st := appointment.Status(key)
	return st, st.Valid()
}

func normalizeFollowType(raw string) appointment.FollowType {
	if strings.Contains(strings.ToLower(raw), "follow") {
		return appointment.FollowUp
	}
	return appointment.FollowNew
}

func normalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male":
		return "male"
	case "f", "female":
		return "female"
	case "o", "other":
		return "other"
	}
	return ""
}
