package tenant

import (
	"context"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScriptChecker compiles a lead scoring script without running it.
type ScriptChecker interface {
	CheckScript(src string) error
}

type TenantService interface {
	Create(ctx context.Context, name string) (*Tenant, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	UpdateSettings(ctx context.Context, scope common_models.Scope, req SettingsRequest) (*Tenant, error)
}

type TenantServiceImpl struct {
	Repo         TenantRepository
	AuditService audit.AuditService
	Scripts      ScriptChecker
}

func NewTenantService(repo TenantRepository, auditService audit.AuditService, scripts ScriptChecker) TenantService {
	return &TenantServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		Scripts:      scripts,
	}
}

func (s *TenantServiceImpl) Create(ctx context.Context, name string) (*Tenant, error) {
	now := time.Now()
	id := primitive.NewObjectID()
	t := &Tenant{
		ID:        id,
		Name:      name,
		Slug:      SlugFor(name, id),
		TimeZone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TenantServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Tenant, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *TenantServiceImpl) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return s.Repo.FindBySlug(ctx, slug)
}

func (s *TenantServiceImpl) List(ctx context.Context) ([]Tenant, error) {
	return s.Repo.List(ctx)
}

func (s *TenantServiceImpl) UpdateSettings(ctx context.Context, scope common_models.Scope, req SettingsRequest) (*Tenant, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.Repo.FindByID(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	changes := map[string]common_models.Change{}
	set := func(key string, old string, v *string) {
		if v == nil || *v == old {
			return
		}
		fields[key] = *v
		changes[key] = common_models.Change{Old: old, New: *v}
	}
	set("name", current.Name, req.Name)
	set("time_zone", current.TimeZone, req.TimeZone)
	set("phone", current.Phone, req.Phone)
	set("email", current.Email, req.Email)
	set("reminder_template", current.ReminderTemplate, req.ReminderTemplate)
	if req.LeadScoringScript != nil && *req.LeadScoringScript != "" && s.Scripts != nil {
		if err := s.Scripts.CheckScript(*req.LeadScoringScript); err != nil {
			return nil, err
		}
	}
	set("lead_scoring_script", current.LeadScoringScript, req.LeadScoringScript)

	if len(fields) == 0 {
		return current, nil
	}
	fields["updated_at"] = time.Now()
	if err := s.Repo.Update(ctx, scope.TenantID, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionSettings, "clinic", scope.TenantID.Hex(), changes)

	return s.Repo.FindByID(ctx, scope.TenantID)
}
