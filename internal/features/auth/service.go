package auth

import (
	"context"
	"errors"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/tenant"
	"go-clinic/internal/features/user"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	ClinicName string `json:"clinic_name" validate:"required,min=2"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token  string         `json:"token"`
	User   *user.User     `json:"user"`
	Tenant *tenant.Tenant `json:"tenant,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, scope common_models.Scope) (*user.User, error)
}

type AuthServiceImpl struct {
	UserRepo      user.UserRepository
	TenantService tenant.TenantService
	AuditService  audit.AuditService
	Logger        *zap.Logger
}

func NewAuthService(userRepo user.UserRepository, tenantService tenant.TenantService, auditService audit.AuditService, logger *zap.Logger) AuthService {
	return &AuthServiceImpl{
		UserRepo:      userRepo,
		TenantService: tenantService,
		AuditService:  auditService,
		Logger:        logger,
	}
}

// Register creates a clinic and its first admin.
func (s *AuthServiceImpl) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.UserRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("email already registered")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	t, err := s.TenantService.Create(ctx, req.ClinicName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	admin := &user.User{
		ID:           primitive.NewObjectID(),
		TenantID:     t.ID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         common_models.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.UserRepo.Create(ctx, admin); err != nil {
		return nil, err
	}

	scope := common_models.Scope{TenantID: t.ID, UserID: admin.ID, Role: admin.Role}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "clinic", t.ID.Hex(), map[string]common_models.Change{
		"name":  {New: t.Name},
		"admin": {New: admin.Email},
	})
	s.Logger.Info("Clinic registered", zap.String("tenant_id", t.ID.Hex()), zap.String("slug", t.Slug))

	token, err := utils.GenerateToken(admin.ID, t.ID, admin.Role, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: admin, Tenant: t}, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	u, err := s.UserRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !u.Active {
		return nil, apperrors.ErrInactiveAccount
	}

	scope := common_models.Scope{TenantID: u.TenantID, UserID: u.ID, Role: u.Role, DoctorID: u.DoctorID}
	now := time.Now()
	_ = s.UserRepo.Update(ctx, scope, u.ID, bson.M{"last_login_at": now})
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionLogin, "user", u.ID.Hex(), nil)

	token, err := utils.GenerateToken(u.ID, u.TenantID, u.Role, u.DoctorID)
	if err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	return &AuthResponse{Token: token, User: u}, nil
}

func (s *AuthServiceImpl) Me(ctx context.Context, scope common_models.Scope) (*user.User, error) {
	return s.UserRepo.FindByID(ctx, scope, scope.UserID)
}
