package lead

import (
	"context"
	"strings"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/patient"
	"go-clinic/internal/features/tenant"
	"go-clinic/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrAlreadyConverted = apperrors.New("ALREADY_CONVERTED", 409, "lead is already converted")

// Patients creates the patient a converted lead becomes.
type Patients interface {
	FindOrCreateByPhone(ctx context.Context, scope common_models.Scope, req patient.PatientRequest) (*patient.Patient, bool, error)
}

// Tenants supplies the tenant's scoring script.
type Tenants interface {
	Get(ctx context.Context, id primitive.ObjectID) (*tenant.Tenant, error)
}

type LeadService interface {
	List(ctx context.Context, scope common_models.Scope, f Filter, page common_models.Page) (*common_models.PageResult[Lead], error)
	Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Lead, error)
	Create(ctx context.Context, scope common_models.Scope, req LeadRequest) (*Lead, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req LeadRequest) (*Lead, error)
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	// Convert turns the lead into a patient, reusing a patient with the same phone.
	Convert(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Lead, *patient.Patient, error)
}

type LeadServiceImpl struct {
	Repo         LeadRepository
	Patients     Patients
	Tenants      Tenants
	Scorer       *Scorer
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewLeadService(repo LeadRepository, patients Patients, tenants Tenants, scorer *Scorer, auditService audit.AuditService, logger *zap.Logger) LeadService {
	return &LeadServiceImpl{
		Repo:         repo,
		Patients:     patients,
		Tenants:      tenants,
		Scorer:       scorer,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *LeadServiceImpl) List(ctx context.Context, scope common_models.Scope, f Filter, page common_models.Page) (*common_models.PageResult[Lead], error) {
	f.Search = strings.TrimSpace(f.Search)
	items, total, err := s.Repo.List(ctx, scope, f, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[Lead]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *LeadServiceImpl) Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Lead, error) {
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *LeadServiceImpl) Create(ctx context.Context, scope common_models.Scope, req LeadRequest) (*Lead, error) {
	req = trim(req)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	now := time.Now()
	l := &Lead{
		ID:        primitive.NewObjectID(),
		TenantID:  scope.TenantID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Source:    req.Source,
		Status:    req.Status,
		Notes:     req.Notes,
		CreatedBy: scope.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if l.Status == "" {
		l.Status = StatusNew
	}
	l.Score = s.score(ctx, scope, l)
	if err := s.Repo.Create(ctx, l); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "lead", l.ID.Hex(), map[string]common_models.Change{
		"name":  {New: l.Name},
		"score": {New: l.Score},
	})
	return l, nil
}

func (s *LeadServiceImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req LeadRequest) (*Lead, error) {
	req = trim(req)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.Repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusConverted {
		return nil, apperrors.Validation("converted leads cannot be edited")
	}

	next := *current
	next.Name, next.Phone, next.Email, next.Source, next.Notes = req.Name, req.Phone, req.Email, req.Source, req.Notes
	if req.Status != "" {
		next.Status = req.Status
	}
	next.Score = s.score(ctx, scope, &next)

	changes := map[string]common_models.Change{}
	fields := bson.M{}
	set := func(key string, old, val interface{}) {
		if old != val {
			fields[key] = val
			changes[key] = common_models.Change{Old: old, New: val}
		}
	}
	set("name", current.Name, next.Name)
	set("phone", current.Phone, next.Phone)
	set("email", current.Email, next.Email)
	set("source", current.Source, next.Source)
	set("notes", current.Notes, next.Notes)
	set("status", current.Status, next.Status)
	set("score", current.Score, next.Score)
	if len(fields) == 0 {
		return current, nil
	}
	fields["updated_at"] = time.Now()
	if err := s.Repo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "lead", id.Hex(), changes)
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *LeadServiceImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if err := s.Repo.Delete(ctx, scope, id); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionDelete, "lead", id.Hex(), nil)
	return nil
}

func (s *LeadServiceImpl) Convert(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Lead, *patient.Patient, error) {
	l, err := s.Repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, nil, err
	}
	switch l.Status {
	case StatusConverted:
		return nil, nil, ErrAlreadyConverted
	case StatusLost:
		return nil, nil, apperrors.Validation("lost leads cannot be converted")
	}
	if l.Phone == "" {
		return nil, nil, apperrors.Validation("a phone number is required to convert a lead")
	}

	p, created, err := s.Patients.FindOrCreateByPhone(ctx, scope, patient.PatientRequest{
		Name:   l.Name,
		Phone:  l.Phone,
		Email:  l.Email,
		Notes:  l.Notes,
		Source: "lead",
	})
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if err := s.Repo.MarkConverted(ctx, scope, id, bson.M{
		"status":       StatusConverted,
		"patient_id":   p.ID,
		"converted_at": now,
		"updated_at":   now,
	}); err != nil {
		return nil, nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionConvert, "lead", id.Hex(), map[string]common_models.Change{
		"status":          {Old: l.Status, New: StatusConverted},
		"patient_id":      {New: p.ID.Hex()},
		"patient_created": {New: created},
	})

	l.Status = StatusConverted
	l.PatientID = &p.ID
	l.ConvertedAt = &now
	l.UpdatedAt = now
	return l, p, nil
}

// score runs the tenant's script. A failing script keeps the lead's current score.
func (s *LeadServiceImpl) score(ctx context.Context, scope common_models.Scope, l *Lead) int {
	if s.Scorer == nil || s.Tenants == nil {
		return l.Score
	}
	t, err := s.Tenants.Get(ctx, scope.TenantID)
	if err != nil || t.LeadScoringScript == "" {
		return l.Score
	}
	score, err := s.Scorer.Score(ctx, t.LeadScoringScript, l.scriptInput())
	if err != nil {
		s.Logger.Warn("Lead scoring script failed",
			zap.String("tenant_id", scope.TenantID.Hex()),
			zap.String("lead_id", l.ID.Hex()),
			zap.Error(err),
		)
		return l.Score
	}
	return score
}

func trim(req LeadRequest) LeadRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Source = strings.ToLower(strings.TrimSpace(req.Source))
	req.Notes = strings.TrimSpace(req.Notes)
	return req
}
