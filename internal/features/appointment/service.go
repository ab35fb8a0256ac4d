package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/config"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/clinic"
	"go-clinic/internal/features/patient"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/datetime"
	"go-clinic/pkg/export"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resources resolves doctors and rooms within the caller's tenant.
type Resources interface {
	GetDoctor(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*clinic.Doctor, error)
	GetRoom(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*clinic.Room, error)
}

// Patients resolves patients within the caller's tenant.
type Patients interface {
	Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*patient.Patient, error)
}

type AppointmentService interface {
	List(ctx context.Context, scope common_models.Scope, filter Filter, page common_models.Page) (*common_models.PageResult[Appointment], error)
	Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Appointment, error)
	Create(ctx context.Context, scope common_models.Scope, req AppointmentRequest) (*Appointment, error)
	// Import books an appointment coming from a spreadsheet row and tags it with the job.
	Import(ctx context.Context, scope common_models.Scope, req AppointmentRequest, jobID primitive.ObjectID) (*Appointment, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req AppointmentRequest) (*Appointment, error)
	UpdateStatus(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req StatusRequest) (*Appointment, error)
	Cancel(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, reason string) (*Appointment, error)
	AvailableSlots(ctx context.Context, scope common_models.Scope, doctorID primitive.ObjectID, date string) ([]Slot, error)
	ExportDaySheet(ctx context.Context, scope common_models.Scope, doctorID primitive.ObjectID, date string) ([]byte, error)
	ExportCSV(ctx context.Context, scope common_models.Scope, filter Filter) ([]byte, error)
	// Upcoming lists blocking appointments on date that have not been reminded yet.
	Upcoming(ctx context.Context, scope common_models.Scope, date string) ([]Appointment, error)
	MarkReminded(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	UpdatedSince(ctx context.Context, since time.Time, afterID primitive.ObjectID, limit int64) ([]Appointment, error)
}

type AppointmentServiceImpl struct {
	Repo         AppointmentRepository
	Resources    Resources
	Patients     Patients
	AuditService audit.AuditService
	open         int
	closing      int
	loc          *time.Location
}

func NewAppointmentService(repo AppointmentRepository, resources Resources, patients Patients, auditService audit.AuditService, cfg *config.Config) AppointmentService {
	open, ok := datetime.Minutes(cfg.ClinicOpen)
	if !ok {
		open = 8 * 60
	}
	closing, ok := datetime.Minutes(cfg.ClinicClose)
	if !ok || closing <= open {
		closing = 20 * 60
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	return &AppointmentServiceImpl{
		Repo:         repo,
		Resources:    resources,
		Patients:     patients,
		AuditService: auditService,
		open:         open,
		closing:      closing,
		loc:          loc,
	}
}

func (s *AppointmentServiceImpl) List(ctx context.Context, scope common_models.Scope, filter Filter, page common_models.Page) (*common_models.PageResult[Appointment], error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}
	items, total, err := s.Repo.List(ctx, scope, filter, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[Appointment]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *AppointmentServiceImpl) Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Appointment, error) {
	a, err := s.Repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if scope.Role == common_models.RoleDoctor && a.DoctorID != scope.DoctorID {
		return nil, apperrors.NotFound("appointment")
	}
	return a, nil
}

func (s *AppointmentServiceImpl) Create(ctx context.Context, scope common_models.Scope, req AppointmentRequest) (*Appointment, error) {
	return s.book(ctx, scope, req, SourceManual, nil)
}

func (s *AppointmentServiceImpl) Import(ctx context.Context, scope common_models.Scope, req AppointmentRequest, jobID primitive.ObjectID) (*Appointment, error) {
	return s.book(ctx, scope, req, SourceImport, &jobID)
}

func (s *AppointmentServiceImpl) book(ctx context.Context, scope common_models.Scope, req AppointmentRequest, source string, jobID *primitive.ObjectID) (*Appointment, error) {
	a, err := s.resolve(ctx, scope, req, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	a.ID = primitive.NewObjectID()
	a.TenantID = scope.TenantID
	a.Source = source
	a.ImportJobID = jobID
	a.CreatedBy = scope.UserID
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, err
	}
	action := common_models.AuditActionCreate
	if source == SourceImport {
		action = common_models.AuditActionImport
	}
	_ = s.AuditService.LogChange(ctx, scope, action, "appointment", a.ID.Hex(), map[string]common_models.Change{
		"date":   {New: a.Date},
		"start":  {New: a.StartTime},
		"doctor": {New: a.DoctorName},
	})
	return a, nil
}

func (s *AppointmentServiceImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req AppointmentRequest) (*Appointment, error) {
	current, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, apperrors.Validation(fmt.Sprintf("a %s appointment cannot be changed", current.Status))
	}
	if req.Status == "" {
		req.Status = string(current.Status)
	}
	next, err := s.resolve(ctx, scope, req, id)
	if err != nil {
		return nil, err
	}
	if next.Status != current.Status && !current.Status.CanMoveTo(next.Status) {
		return nil, invalidTransition(current.Status, next.Status)
	}

	fields := bson.M{
		"patient_id":    next.PatientID,
		"patient_name":  next.PatientName,
		"patient_phone": next.PatientPhone,
		"doctor_id":     next.DoctorID,
		"doctor_name":   next.DoctorName,
		"room_id":       next.RoomID,
		"room_name":     next.RoomName,
		"date":          next.Date,
		"start_time":    next.StartTime,
		"end_time":      next.EndTime,
		"starts_at":     next.StartsAt,
		"ends_at":       next.EndsAt,
		"status":        next.Status,
		"follow_type":   next.FollowType,
		"notes":         next.Notes,
		"updated_at":    time.Now(),
	}
	if next.Date != current.Date || next.StartTime != current.StartTime {
		fields["reminder_sent_at"] = nil
	}
	if err := s.Repo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "appointment", id.Hex(), map[string]common_models.Change{
		"date":   {Old: current.Date, New: next.Date},
		"start":  {Old: current.StartTime, New: next.StartTime},
		"end":    {Old: current.EndTime, New: next.EndTime},
		"doctor": {Old: current.DoctorName, New: next.DoctorName},
		"room":   {Old: current.RoomName, New: next.RoomName},
	})
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *AppointmentServiceImpl) UpdateStatus(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req StatusRequest) (*Appointment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	next := Status(req.Status)
	if !current.Status.CanMoveTo(next) {
		return nil, invalidTransition(current.Status, next)
	}

	fields := bson.M{"status": next, "updated_at": time.Now()}
	if next == StatusCancelled && strings.TrimSpace(req.Reason) != "" {
		fields["cancel_reason"] = strings.TrimSpace(req.Reason)
	}
	if err := s.Repo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionStatus, "appointment", id.Hex(), map[string]common_models.Change{
		"status": {Old: current.Status, New: next},
	})
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *AppointmentServiceImpl) Cancel(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, reason string) (*Appointment, error) {
	return s.UpdateStatus(ctx, scope, id, StatusRequest{Status: string(StatusCancelled), Reason: reason})
}

func (s *AppointmentServiceImpl) AvailableSlots(ctx context.Context, scope common_models.Scope, doctorID primitive.ObjectID, date string) ([]Slot, error) {
	day, ok := datetime.ParseDate(date)
	if !ok {
		return nil, apperrors.Validation("date is not a valid date")
	}
	if _, err := s.Resources.GetDoctor(ctx, scope, doctorID); err != nil {
		return nil, err
	}
	booked, err := s.Repo.FindAll(ctx, scope, Filter{
		DoctorID: doctorID,
		From:     datetime.FormatDate(day),
		To:       datetime.FormatDate(day),
	})
	if err != nil {
		return nil, err
	}
	return freeSlots(s.open, s.closing, booked), nil
}

// freeSlots walks the grid between open and closing and drops slots a blocking
// appointment intersects.
func freeSlots(open, closing int, booked []Appointment) []Slot {
	type span struct{ start, end int }
	busy := make([]span, 0, len(booked))
	for _, a := range booked {
		if !a.Status.Blocking() {
			continue
		}
		start, ok1 := datetime.Minutes(a.StartTime)
		end, ok2 := datetime.Minutes(a.EndTime)
		if ok1 && ok2 {
			busy = append(busy, span{start, end})
		}
	}

	slots := make([]Slot, 0)
	for m := open; m+SlotMinutes <= closing; m += SlotMinutes {
		free := true
		for _, b := range busy {
			if m < b.end && m+SlotMinutes > b.start {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Slot{Start: datetime.FromMinutes(m), End: datetime.FromMinutes(m + SlotMinutes)})
		}
	}
	return slots
}

func (s *AppointmentServiceImpl) ExportDaySheet(ctx context.Context, scope common_models.Scope, doctorID primitive.ObjectID, date string) ([]byte, error) {
	day, ok := datetime.ParseDate(date)
	if !ok {
		return nil, apperrors.Validation("date is not a valid date")
	}
	if scope.Role == common_models.RoleDoctor {
		doctorID = scope.DoctorID
	}
	doctor, err := s.Resources.GetDoctor(ctx, scope, doctorID)
	if err != nil {
		return nil, err
	}
	iso := datetime.FormatDate(day)
	items, err := s.Repo.FindAll(ctx, scope, Filter{DoctorID: doctorID, From: iso, To: iso})
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:    doctor.Name,
		Subtitle: fmt.Sprintf("Day sheet for %s (%s)", day.Format("Monday, 02 Jan 2006"), doctor.Specialty),
		Headers:  []string{"Time", "Patient", "Phone", "Room", "Type", "Status", "Notes"},
		Widths:   []float64{1.2, 2.2, 1.6, 1.2, 1, 1.1, 3},
	}
	for _, a := range items {
		if a.Status == StatusCancelled {
			continue
		}
		data.Rows = append(data.Rows, map[string]string{
			"Time":    a.StartTime + "-" + a.EndTime,
			"Patient": a.PatientName,
			"Phone":   a.PatientPhone,
			"Room":    a.RoomName,
			"Type":    string(a.FollowType),
			"Status":  string(a.Status),
			"Notes":   a.Notes,
		})
	}
	return export.PDF(data)
}

func (s *AppointmentServiceImpl) ExportCSV(ctx context.Context, scope common_models.Scope, filter Filter) ([]byte, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}
	items, err := s.Repo.FindAll(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Headers: []string{"Date", "Start Time", "End Time", "Patient Name", "Patient Phone", "Doctor Name", "Room Name", "Status", "Follow Type", "Notes"},
	}
	for _, a := range items {
		data.Rows = append(data.Rows, map[string]string{
			"Date":          a.Date,
			"Start Time":    a.StartTime,
			"End Time":      a.EndTime,
			"Patient Name":  a.PatientName,
			"Patient Phone": a.PatientPhone,
			"Doctor Name":   a.DoctorName,
			"Room Name":     a.RoomName,
			"Status":        string(a.Status),
			"Follow Type":   string(a.FollowType),
			"Notes":         a.Notes,
		})
	}
	return export.CSV(data)
}

func (s *AppointmentServiceImpl) Upcoming(ctx context.Context, scope common_models.Scope, date string) ([]Appointment, error) {
	items, err := s.Repo.FindAll(ctx, scope, Filter{From: date, To: date})
	if err != nil {
		return nil, err
	}
	out := make([]Appointment, 0, len(items))
	for _, a := range items {
		if a.ReminderSentAt != nil {
			continue
		}
		if a.Status == StatusScheduled || a.Status == StatusConfirmed {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AppointmentServiceImpl) MarkReminded(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	// updated_at is left alone so reminders do not churn the warehouse mirror.
	return s.Repo.Update(ctx, scope, id, bson.M{"reminder_sent_at": time.Now()})
}

func (s *AppointmentServiceImpl) UpdatedSince(ctx context.Context, since time.Time, afterID primitive.ObjectID, limit int64) ([]Appointment, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.Repo.UpdatedSince(ctx, since, afterID, limit)
}

// resolve validates req and loads everything an appointment denormalizes. exclude is
// the appointment being edited, skipped by the overlap checks.
func (s *AppointmentServiceImpl) resolve(ctx context.Context, scope common_models.Scope, req AppointmentRequest, exclude primitive.ObjectID) (*Appointment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		return nil, apperrors.Validation("invalid patient_id")
	}
	doctorID, err := primitive.ObjectIDFromHex(req.DoctorID)
	if err != nil {
		return nil, apperrors.Validation("invalid doctor_id")
	}
	roomID, err := primitive.ObjectIDFromHex(req.RoomID)
	if err != nil {
		return nil, apperrors.Validation("invalid room_id")
	}
	if scope.Role == common_models.RoleDoctor && doctorID != scope.DoctorID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "doctors can only book their own appointments")
	}

	day, ok := datetime.ParseDate(req.Date)
	if !ok {
		return nil, apperrors.Validation("date is not a valid date")
	}
	start, end, err := alignRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	doctor, err := s.Resources.GetDoctor(ctx, scope, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, apperrors.Validation("doctor is inactive")
	}
	room, err := s.Resources.GetRoom(ctx, scope, roomID)
	if err != nil {
		return nil, err
	}
	if !room.Active {
		return nil, apperrors.Validation("room is inactive")
	}
	p, err := s.Patients.Get(ctx, scope, patientID)
	if err != nil {
		return nil, err
	}

	status := StatusScheduled
	if req.Status != "" {
		status = Status(req.Status)
	}
	follow := FollowNew
	if req.FollowType != "" {
		follow = FollowType(req.FollowType)
	}

	a := &Appointment{
		PatientID:    p.ID,
		PatientName:  p.Name,
		PatientPhone: p.Phone,
		DoctorID:     doctor.ID,
		DoctorName:   doctor.Name,
		RoomID:       room.ID,
		RoomName:     room.Name,
		Date:         datetime.FormatDate(day),
		StartTime:    start,
		EndTime:      end,
		Status:       status,
		FollowType:   follow,
		Notes:        strings.TrimSpace(req.Notes),
	}
	a.StartsAt, _ = datetime.At(day, start, s.loc)
	a.EndsAt, _ = datetime.At(day, end, s.loc)

	if status.Blocking() {
		if err := s.ensureFree(ctx, scope, a, exclude); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (s *AppointmentServiceImpl) ensureFree(ctx context.Context, scope common_models.Scope, a *Appointment, exclude primitive.ObjectID) error {
	checks := []struct {
		field string
		id    primitive.ObjectID
		what  string
	}{
		{"doctor_id", a.DoctorID, a.DoctorName},
		{"room_id", a.RoomID, a.RoomName},
	}
	for _, c := range checks {
		clash, err := s.Repo.Overlapping(ctx, scope, OverlapQuery{
			Field: c.field, ID: c.id, Date: a.Date, Start: a.StartTime, End: a.EndTime, Exclude: exclude,
		})
		if err != nil {
			return err
		}
		if len(clash) > 0 {
			return apperrors.Conflict(fmt.Sprintf("%s is already booked %s-%s on %s",
				c.what, clash[0].StartTime, clash[0].EndTime, a.Date))
		}
	}
	return nil
}

// alignRange canonicalizes both clocks, snaps start down and end up to the slot grid
// and requires start before end.
func alignRange(startRaw, endRaw string) (string, string, error) {
	start, ok := datetime.Minutes(startRaw)
	if !ok {
		return "", "", apperrors.Validation("start_time must be HH:MM or H:MM AM/PM")
	}
	end, ok := datetime.Minutes(endRaw)
	if !ok {
		return "", "", apperrors.Validation("end_time must be HH:MM or H:MM AM/PM")
	}
	if start >= end {
		return "", "", apperrors.Validation("start_time must be before end_time")
	}
	start -= start % SlotMinutes
	if r := end % SlotMinutes; r != 0 {
		end += SlotMinutes - r
	}
	return datetime.FromMinutes(start), datetime.FromMinutes(end), nil
}

func normalizeFilter(f *Filter) error {
	for _, d := range []*string{&f.From, &f.To} {
		if *d == "" {
			continue
		}
		t, ok := datetime.ParseDate(*d)
		if !ok {
			return apperrors.Validation("invalid date filter " + *d)
		}
		*d = datetime.FormatDate(t)
	}
	if f.Status != "" && !f.Status.Valid() {
		return apperrors.Validation("invalid status filter")
	}
	return nil
}

func invalidTransition(from, to Status) error {
	return apperrors.Validation(fmt.Sprintf("cannot move appointment from %s to %s", from, to))
}
