package job

import (
	"context"
	"strings"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/tenant"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tenants resolves the clinic behind a public careers page.
type Tenants interface {
	GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
}

type JobService interface {
	List(ctx context.Context, scope common_models.Scope, status Status, page common_models.Page) (*common_models.PageResult[Listing], error)
	Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Listing, error)
	Create(ctx context.Context, scope common_models.Scope, req ListingRequest) (*Listing, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req ListingRequest) (*Listing, error)
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	PublicListings(ctx context.Context, tenantSlug string) ([]PublicListing, error)
}

type JobServiceImpl struct {
	Repo         JobRepository
	Tenants      Tenants
	AuditService audit.AuditService
}

func NewJobService(repo JobRepository, tenants Tenants, auditService audit.AuditService) JobService {
	return &JobServiceImpl{Repo: repo, Tenants: tenants, AuditService: auditService}
}

func (s *JobServiceImpl) List(ctx context.Context, scope common_models.Scope, status Status, page common_models.Page) (*common_models.PageResult[Listing], error) {
	items, total, err := s.Repo.List(ctx, scope, status, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[Listing]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *JobServiceImpl) Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Listing, error) {
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *JobServiceImpl) Create(ctx context.Context, scope common_models.Scope, req ListingRequest) (*Listing, error) {
	req = trim(req)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	now := time.Now()
	l := &Listing{
		ID:             primitive.NewObjectID(),
		TenantID:       scope.TenantID,
		Title:          req.Title,
		Department:     req.Department,
		Location:       req.Location,
		EmploymentType: req.EmploymentType,
		Description:    req.Description,
		Status:         req.Status,
		CreatedBy:      scope.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if l.EmploymentType == "" {
		l.EmploymentType = "full_time"
	}
	if l.Status == "" {
		l.Status = StatusOpen
	}
	if err := s.Repo.Create(ctx, l); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "job_listing", l.ID.Hex(), map[string]common_models.Change{
		"title":  {New: l.Title},
		"status": {New: l.Status},
	})
	return l, nil
}

func (s *JobServiceImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req ListingRequest) (*Listing, error) {
	req = trim(req)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.Repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	changes := map[string]common_models.Change{}
	set := func(key string, old, next interface{}) {
		if old != next {
			fields[key] = next
			changes[key] = common_models.Change{Old: old, New: next}
		}
	}
	set("title", current.Title, req.Title)
	set("department", current.Department, req.Department)
	set("location", current.Location, req.Location)
	set("description", current.Description, req.Description)
	if req.EmploymentType != "" {
		set("employment_type", current.EmploymentType, req.EmploymentType)
	}
	if req.Status != "" {
		set("status", current.Status, req.Status)
	}
	if len(fields) == 0 {
		return current, nil
	}
	fields["updated_at"] = time.Now()
	if err := s.Repo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "job_listing", id.Hex(), changes)
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *JobServiceImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if err := s.Repo.Delete(ctx, scope, id); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionDelete, "job_listing", id.Hex(), nil)
	return nil
}

func (s *JobServiceImpl) PublicListings(ctx context.Context, tenantSlug string) ([]PublicListing, error) {
	t, err := s.Tenants.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(tenantSlug)))
	if err != nil {
		return nil, err
	}
	listings, err := s.Repo.ListOpen(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	out := make([]PublicListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Public())
	}
	return out, nil
}

func trim(req ListingRequest) ListingRequest {
	req.Title = strings.TrimSpace(req.Title)
	req.Department = strings.TrimSpace(req.Department)
	req.Location = strings.TrimSpace(req.Location)
	req.Description = strings.TrimSpace(req.Description)
	return req
}
