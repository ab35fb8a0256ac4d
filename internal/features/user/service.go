package user

import (
	"context"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService interface {
	ListUsers(ctx context.Context, scope common_models.Scope, page common_models.Page) (*common_models.PageResult[User], error)
	GetUser(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*User, error)
	CreateUser(ctx context.Context, scope common_models.Scope, req CreateUserRequest) (*User, error)
	UpdateUser(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
}

type UserServiceImpl struct {
	UserRepo     UserRepository
	AuditService audit.AuditService
}

func NewUserService(userRepo UserRepository, auditService audit.AuditService) UserService {
	return &UserServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
	}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, scope common_models.Scope, page common_models.Page) (*common_models.PageResult[User], error) {
	users, total, err := s.UserRepo.List(ctx, scope, page)
	if err != nil {
		return nil, err
	}
	return &common_models.PageResult[User]{Items: users, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*User, error) {
	return s.UserRepo.FindByID(ctx, scope, id)
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, scope common_models.Scope, req CreateUserRequest) (*User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &User{
		ID:           primitive.NewObjectID(),
		TenantID:     scope.TenantID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         common_models.Role(req.Role),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.DoctorID != "" {
		user.DoctorID, _ = primitive.ObjectIDFromHex(req.DoctorID)
	}
	if user.Role == common_models.RoleDoctor && user.DoctorID.IsZero() {
		return nil, apperrors.Validation("doctor_id is required for doctor logins")
	}

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	changes := map[string]common_models.Change{
		"name":  {New: user.Name},
		"email": {New: user.Email},
		"role":  {New: user.Role},
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "user", user.ID.Hex(), changes)

	return user, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req UpdateUserRequest) (*User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	changes := make(map[string]common_models.Change)

	if req.Name != nil && *req.Name != user.Name {
		changes["name"] = common_models.Change{Old: user.Name, New: *req.Name}
		fields["name"] = *req.Name
	}
	if req.Role != nil && common_models.Role(*req.Role) != user.Role {
		if id == scope.UserID {
			return nil, apperrors.Clone(apperrors.ErrForbidden, "cannot change your own role")
		}
		changes["role"] = common_models.Change{Old: user.Role, New: *req.Role}
		fields["role"] = *req.Role
	}
	if req.Active != nil && *req.Active != user.Active {
		changes["active"] = common_models.Change{Old: user.Active, New: *req.Active}
		fields["active"] = *req.Active
	}
	if req.DoctorID != nil {
		doctorID, _ := primitive.ObjectIDFromHex(*req.DoctorID)
		if doctorID != user.DoctorID {
			changes["doctor_id"] = common_models.Change{Old: user.DoctorID.Hex(), New: *req.DoctorID}
			fields["doctor_id"] = doctorID
		}
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		changes["password"] = common_models.Change{New: "changed"}
		fields["password_hash"] = hash
	}

	if len(fields) == 0 {
		return user, nil
	}
	fields["updated_at"] = time.Now()

	if err := s.UserRepo.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "user", id.Hex(), changes)

	return s.UserRepo.FindByID(ctx, scope, id)
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if id == scope.UserID {
		return apperrors.Clone(apperrors.ErrForbidden, "cannot delete yourself")
	}
	if err := s.UserRepo.Delete(ctx, scope, id); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionDelete, "user", id.Hex(), nil)
	return nil
}
