package patient

import (
	"context"
	"testing"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/features/audit/audittest"
	"go-clinic/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memPatients struct{ items map[primitive.ObjectID]*Patient }

func newMem() *memPatients { return &memPatients{items: map[primitive.ObjectID]*Patient{}} }

func (m *memPatients) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.items {
		if existing.TenantID == p.TenantID && existing.PhoneKey == p.PhoneKey {
			return apperrors.Conflict("dup")
		}
	}
	m.items[p.ID] = p
	return nil
}

func (m *memPatients) FindByID(_ context.Context, scope common_models.Scope, id primitive.ObjectID) (*Patient, error) {
	if p, ok := m.items[id]; ok && p.TenantID == scope.TenantID {
		return p, nil
	}
	return nil, apperrors.NotFound("patient")
}

func (m *memPatients) FindByPhone(_ context.Context, scope common_models.Scope, key string) (*Patient, error) {
	for _, p := range m.items {
		if p.TenantID == scope.TenantID && p.PhoneKey == key {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("patient")
}

func (m *memPatients) FindByIDs(_ context.Context, scope common_models.Scope, ids []primitive.ObjectID) ([]Patient, error) {
	var out []Patient
	for _, id := range ids {
		if p, ok := m.items[id]; ok && p.TenantID == scope.TenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPatients) List(_ context.Context, scope common_models.Scope, _ string, _ common_models.Page) ([]Patient, int64, error) {
	var out []Patient
	for _, p := range m.items {
		if p.TenantID == scope.TenantID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memPatients) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	p, err := m.FindByID(ctx, scope, id)
	if err != nil {
		return err
	}
	p.Name = fields["name"].(string)
	p.Phone = fields["phone"].(string)
	p.PhoneKey = fields["phone_key"].(string)
	return nil
}

func (m *memPatients) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if _, err := m.FindByID(ctx, scope, id); err != nil {
		return err
	}
	delete(m.items, id)
	return nil
}

func (m *memPatients) EnsureIndexes(context.Context) error { return nil }

func staff() common_models.Scope {
	return common_models.Scope{TenantID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Role: common_models.RoleStaff}
}

func TestFindOrCreateByPhone(t *testing.T) {
	svc := NewPatientService(newMem(), &audittest.Recorder{})
	s := staff()

	first, created, err := svc.FindOrCreateByPhone(context.Background(), s, PatientRequest{Name: "John Doe", Phone: "(555) 123-4567"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "5551234567", first.PhoneKey)

	again, created, err := svc.FindOrCreateByPhone(context.Background(), s, PatientRequest{Name: "Johnny", Phone: "555 123 4567"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "John Doe", again.Name)

	other, created, err := svc.FindOrCreateByPhone(context.Background(), staff(), PatientRequest{Name: "John Doe", Phone: "5551234567"})
	require.NoError(t, err)
	assert.True(t, created, "phones are unique per clinic only")
	assert.NotEqual(t, first.ID, other.ID)
}

func TestCreatePatientValidation(t *testing.T) {
	svc := NewPatientService(newMem(), &audittest.Recorder{})
	tests := []struct {
		name string
		req  PatientRequest
	}{
		{name: "missing name", req: PatientRequest{Phone: "555"}},
		{name: "phone without digits", req: PatientRequest{Name: "A", Phone: "abc"}},
		{name: "bad gender", req: PatientRequest{Name: "A", Phone: "555", Gender: "robot"}},
		{name: "bad birth date", req: PatientRequest{Name: "A", Phone: "555", DateOfBirth: "someday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), staff(), tt.req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc := NewPatientService(newMem(), &audittest.Recorder{})
	s := staff()
	p, err := svc.Create(context.Background(), s, PatientRequest{Name: " Jane ", Phone: "555-0000", Gender: "Female", DateOfBirth: "01/02/1990"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.Name)
	assert.Equal(t, "female", p.Gender)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, "1990-02-01", p.DateOfBirth.Format("2006-01-02"))

	_, err = svc.Create(context.Background(), s, PatientRequest{Name: "Jane 2", Phone: "5550000"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdatePhoneConflict(t *testing.T) {
	svc := NewPatientService(newMem(), &audittest.Recorder{})
	s := staff()
	a, _ := svc.Create(context.Background(), s, PatientRequest{Name: "A", Phone: "111"})
	_, _ = svc.Create(context.Background(), s, PatientRequest{Name: "B", Phone: "222"})

	_, err := svc.Update(context.Background(), s, a.ID, PatientRequest{Name: "A", Phone: "222"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := svc.Update(context.Background(), s, a.ID, PatientRequest{Name: "A+", Phone: "333"})
	require.NoError(t, err)
	assert.Equal(t, "A+", got.Name)
	assert.Equal(t, "333", got.PhoneKey)
}
