package patient

import (
	"context"
	"errors"
	"strings"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/datetime"
	"go-clinic/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PatientService interface {
	List(ctx context.Context, scope common_models.Scope, search string, page common_models.Page) (*common_models.PageResult[Patient], error)
	Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Patient, error)
	Create(ctx context.Context, scope common_models.Scope, req PatientRequest) (*Patient, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req PatientRequest) (*Patient, error)
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	// FindOrCreateByPhone matches on the normalized phone and creates the patient when absent.
	FindOrCreateByPhone(ctx context.Context, scope common_models.Scope, req PatientRequest) (*Patient, bool, error)
	FindByPhone(ctx context.Context, scope common_models.Scope, phone string) (*Patient, error)
	Names(ctx context.Context, scope common_models.Scope, ids []primitive.ObjectID) (map[primitive.ObjectID]Patient, error)
}

type PatientServiceImpl struct {
	Repo         PatientRepository
	AuditService audit.AuditService
}

func NewPatientService(repo PatientRepository, auditService audit.AuditService) PatientService {
	return &PatientServiceImpl{Repo: repo, AuditService: auditService}
}

func (s *PatientServiceImpl) List(ctx context.Context, scope common_models.Scope, search string, page common_models.Page) (*common_models.PageResult[Patient], error) {
	items, total, err := s.Repo.List(ctx, scope, strings.TrimSpace(search), page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[Patient]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *PatientServiceImpl) Get(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Patient, error) {
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *PatientServiceImpl) Create(ctx context.Context, scope common_models.Scope, req PatientRequest) (*Patient, error) {
	p, err := s.build(scope, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.Repo.FindByPhone(ctx, scope, p.PhoneKey); err == nil {
		return nil, apperrors.Conflict("a patient with this phone already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "patient", p.ID.Hex(), map[string]common_models.Change{
		"name":  {New: p.Name},
		"phone": {New: p.Phone},
	})
	return p, nil
}

func (s *PatientServiceImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req PatientRequest) (*Patient, error) {
	next, err := s.build(scope, req)
	if err != nil {
		return nil, err
	}
	current, err := s.Repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if next.PhoneKey != current.PhoneKey {
		if other, err := s.Repo.FindByPhone(ctx, scope, next.PhoneKey); err == nil && other.ID != id {
			return nil, apperrors.Conflict("a patient with this phone already exists")
		}
	}

	fields := bson.M{
		"name":          next.Name,
		"phone":         next.Phone,
		"phone_key":     next.PhoneKey,
		"email":         next.Email,
		"gender":        next.Gender,
		"date_of_birth": next.DateOfBirth,
		"notes":         next.Notes,
		"updated_at":    time.Now(),
	}
	if err := s.Repo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "patient", id.Hex(), map[string]common_models.Change{
		"name":  {Old: current.Name, New: next.Name},
		"phone": {Old: current.Phone, New: next.Phone},
	})
	return s.Repo.FindByID(ctx, scope, id)
}

func (s *PatientServiceImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if err := s.Repo.Delete(ctx, scope, id); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionDelete, "patient", id.Hex(), nil)
	return nil
}

func (s *PatientServiceImpl) FindOrCreateByPhone(ctx context.Context, scope common_models.Scope, req PatientRequest) (*Patient, bool, error) {
	key := utils.NormalizePhone(req.Phone)
	if key == "" {
		return nil, false, apperrors.Validation("phone is required")
	}
	existing, err := s.Repo.FindByPhone(ctx, scope, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	p, err := s.build(scope, req)
	if err != nil {
		return nil, false, err
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		// Lost a race with a concurrent create for the same phone.
		if errors.Is(err, apperrors.ErrConflict) {
			existing, findErr := s.Repo.FindByPhone(ctx, scope, key)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return p, true, nil
}

func (s *PatientServiceImpl) FindByPhone(ctx context.Context, scope common_models.Scope, phone string) (*Patient, error) {
	return s.Repo.FindByPhone(ctx, scope, utils.NormalizePhone(phone))
}

func (s *PatientServiceImpl) Names(ctx context.Context, scope common_models.Scope, ids []primitive.ObjectID) (map[primitive.ObjectID]Patient, error) {
	out := make(map[primitive.ObjectID]Patient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	patients, err := s.Repo.FindByIDs(ctx, scope, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range patients {
		out[p.ID] = p
	}
	return out, nil
}

func (s *PatientServiceImpl) build(scope common_models.Scope, req PatientRequest) (*Patient, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Gender = strings.ToLower(strings.TrimSpace(req.Gender))
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	key := utils.NormalizePhone(req.Phone)
	if key == "" {
		return nil, apperrors.Validation("phone must contain digits")
	}

	now := time.Now()
	p := &Patient{
		ID:        primitive.NewObjectID(),
		TenantID:  scope.TenantID,
		Name:      req.Name,
		Phone:     req.Phone,
		PhoneKey:  key,
		Email:     req.Email,
		Gender:    req.Gender,
		Notes:     req.Notes,
		Source:    req.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.DateOfBirth != "" {
		dob, ok := datetime.ParseDate(req.DateOfBirth)
		if !ok {
			return nil, apperrors.Validation("date_of_birth is not a valid date")
		}
		p.DateOfBirth = &dob
	}
	return p, nil
}
