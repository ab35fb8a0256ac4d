package user

import (
	"context"
	"testing"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/features/audit/audittest"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserRepo struct {
	users map[primitive.ObjectID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperrors.Conflict("email already registered")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, scope common_models.Scope, id primitive.ObjectID) (*User, error) {
	u, ok := r.users[id]
	if !ok || (!scope.IsSuperAdmin() && u.TenantID != scope.TenantID) {
		return nil, apperrors.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func (r *fakeUserRepo) List(_ context.Context, scope common_models.Scope, _ common_models.Page) ([]User, int64, error) {
	var out []User
	for _, u := range r.users {
		if u.TenantID == scope.TenantID {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	u, err := r.FindByID(ctx, scope, id)
	if err != nil {
		return err
	}
	if v, ok := fields["name"].(string); ok {
		u.Name = v
	}
	if v, ok := fields["role"].(string); ok {
		u.Role = common_models.Role(v)
	}
	if v, ok := fields["active"].(bool); ok {
		u.Active = v
	}
	if v, ok := fields["password_hash"].(string); ok {
		u.PasswordHash = v
	}
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if _, err := r.FindByID(ctx, scope, id); err != nil {
		return err
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) NamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, u := range r.users {
		out[u.ID.Hex()] = u.Name
	}
	return out, nil
}

func (r *fakeUserRepo) EnsureIndexes(context.Context) error { return nil }

func adminScope() common_models.Scope {
	return common_models.Scope{TenantID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Role: common_models.RoleAdmin}
}

func TestCreateUser(t *testing.T) {
	repo := newFakeUserRepo()
	rec := &audittest.Recorder{}
	svc := NewUserService(repo, rec)
	scope := adminScope()

	u, err := svc.CreateUser(context.Background(), scope, CreateUserRequest{Name: "Sam", Email: "sam@clinic.io", Password: "password1", Role: "staff"})
	require.NoError(t, err)
	assert.Equal(t, scope.TenantID, u.TenantID)
	assert.True(t, u.Active)
	assert.True(t, utils.CheckPassword(u.PasswordHash, "password1"))
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionCreate}, rec.Actions())

	_, err = svc.CreateUser(context.Background(), scope, CreateUserRequest{Name: "Sam", Email: "sam@clinic.io", Password: "password1", Role: "staff"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), &audittest.Recorder{})
	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{name: "short password", req: CreateUserRequest{Name: "A", Email: "a@b.co", Password: "x", Role: "staff"}},
		{name: "superadmin not assignable", req: CreateUserRequest{Name: "A", Email: "a@b.co", Password: "password1", Role: "superadmin"}},
		{name: "doctor without record", req: CreateUserRequest{Name: "A", Email: "a@b.co", Password: "password1", Role: "doctor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), adminScope(), tt.req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestUpdateAndDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	rec := &audittest.Recorder{}
	svc := NewUserService(repo, rec)
	scope := adminScope()

	u, err := svc.CreateUser(context.Background(), scope, CreateUserRequest{Name: "Sam", Email: "sam@clinic.io", Password: "password1", Role: "staff"})
	require.NoError(t, err)

	name, inactive := "Samantha", false
	updated, err := svc.UpdateUser(context.Background(), scope, u.ID, UpdateUserRequest{Name: &name, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Samantha", updated.Name)
	assert.False(t, updated.Active)

	otherTenant := adminScope()
	_, err = svc.GetUser(context.Background(), otherTenant, u.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	role := "admin"
	_, err = svc.UpdateUser(context.Background(), common_models.Scope{TenantID: scope.TenantID, UserID: u.ID, Role: common_models.RoleAdmin}, u.ID, UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assert.ErrorIs(t, svc.DeleteUser(context.Background(), common_models.Scope{TenantID: scope.TenantID, UserID: u.ID}, u.ID), apperrors.ErrForbidden)
	require.NoError(t, svc.DeleteUser(context.Background(), scope, u.ID))
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionCreate, common_models.AuditActionUpdate, common_models.AuditActionDelete}, rec.Actions())
}
