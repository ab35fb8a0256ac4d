package clinic

import (
	"context"
	"testing"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/features/audit/audittest"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/importmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memDoctors struct{ items []*Doctor }

func (m *memDoctors) Create(_ context.Context, d *Doctor) error {
	d.NameKey = NameKey(d.Name)
	m.items = append(m.items, d)
	return nil
}

func (m *memDoctors) FindByID(_ context.Context, scope common_models.Scope, id primitive.ObjectID) (*Doctor, error) {
	for _, d := range m.items {
		if d.ID == id && d.TenantID == scope.TenantID {
			return d, nil
		}
	}
	return nil, apperrors.NotFound("doctor")
}

func (m *memDoctors) FindByName(_ context.Context, scope common_models.Scope, name string) (*Doctor, error) {
	for _, d := range m.items {
		if d.NameKey == NameKey(name) && d.TenantID == scope.TenantID {
			return d, nil
		}
	}
	return nil, apperrors.NotFound("doctor")
}

func (m *memDoctors) List(_ context.Context, scope common_models.Scope, activeOnly bool) ([]Doctor, error) {
	var out []Doctor
	for _, d := range m.items {
		if d.TenantID == scope.TenantID && (!activeOnly || d.Active) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDoctors) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	d, err := m.FindByID(ctx, scope, id)
	if err != nil {
		return err
	}
	if v, ok := fields["name"].(string); ok {
		d.Name = v
		d.NameKey = NameKey(v)
	}
	if v, ok := fields["active"].(bool); ok {
		d.Active = v
	}
	return nil
}

func (m *memDoctors) Delete(context.Context, common_models.Scope, primitive.ObjectID) error { return nil }

func (m *memDoctors) EnsureIndexes(context.Context) error { return nil }

type memRooms struct{ items []*Room }

func (m *memRooms) Create(_ context.Context, r *Room) error {
	r.NameKey = NameKey(r.Name)
	m.items = append(m.items, r)
	return nil
}

func (m *memRooms) FindByID(_ context.Context, scope common_models.Scope, id primitive.ObjectID) (*Room, error) {
	for _, r := range m.items {
		if r.ID == id && r.TenantID == scope.TenantID {
			return r, nil
		}
	}
	return nil, apperrors.NotFound("room")
}

func (m *memRooms) FindByName(_ context.Context, scope common_models.Scope, name string) (*Room, error) {
	for _, r := range m.items {
		if r.NameKey == NameKey(name) && r.TenantID == scope.TenantID {
			return r, nil
		}
	}
	return nil, apperrors.NotFound("room")
}

func (m *memRooms) List(_ context.Context, scope common_models.Scope, activeOnly bool) ([]Room, error) {
	var out []Room
	for _, r := range m.items {
		if r.TenantID == scope.TenantID && (!activeOnly || r.Active) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRooms) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	r, err := m.FindByID(ctx, scope, id)
	if err != nil {
		return err
	}
	if v, ok := fields["active"].(bool); ok {
		r.Active = v
	}
	return nil
}

func (m *memRooms) Delete(context.Context, common_models.Scope, primitive.ObjectID) error { return nil }

func (m *memRooms) EnsureIndexes(context.Context) error { return nil }

func newService() (ClinicService, *audittest.Recorder) {
	rec := &audittest.Recorder{}
	return NewClinicService(&memDoctors{}, &memRooms{}, rec), rec
}

func scope() common_models.Scope {
	return common_models.Scope{TenantID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Role: common_models.RoleAdmin}
}

func TestDoctorNamesAreUniqueCaseInsensitive(t *testing.T) {
	svc, _ := newService()
	s := scope()

	_, err := svc.CreateDoctor(context.Background(), s, DoctorRequest{Name: "Dr. Smith"})
	require.NoError(t, err)

	_, err = svc.CreateDoctor(context.Background(), s, DoctorRequest{Name: "  dr. SMITH "})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.CreateDoctor(context.Background(), scope(), DoctorRequest{Name: "Dr. Smith"})
	assert.NoError(t, err, "other tenants may reuse the name")
}

func TestCreateDoctorValidation(t *testing.T) {
	svc, _ := newService()
	_, err := svc.CreateDoctor(context.Background(), scope(), DoctorRequest{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateDoctor(context.Background(), scope(), DoctorRequest{Name: "Dr. X", Email: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateDoctorRename(t *testing.T) {
	svc, rec := newService()
	s := scope()
	a, _ := svc.CreateDoctor(context.Background(), s, DoctorRequest{Name: "Dr. A"})
	_, _ = svc.CreateDoctor(context.Background(), s, DoctorRequest{Name: "Dr. B"})

	_, err := svc.UpdateDoctor(context.Background(), s, a.ID, DoctorRequest{Name: "dr. b"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := svc.UpdateDoctor(context.Background(), s, a.ID, DoctorRequest{Name: "DR. A"})
	require.NoError(t, err)
	assert.Equal(t, "DR. A", got.Name)
	assert.Contains(t, rec.Actions(), common_models.AuditActionUpdate)
}

func TestReferenceListsSkipInactive(t *testing.T) {
	svc, _ := newService()
	s := scope()
	smith, _ := svc.CreateDoctor(context.Background(), s, DoctorRequest{Name: "Dr. Smith"})
	gone, _ := svc.CreateDoctor(context.Background(), s, DoctorRequest{Name: "Dr. Gone"})
	room, _ := svc.CreateRoom(context.Background(), s, RoomRequest{Name: "Room 1"})
	require.NoError(t, svc.DeactivateDoctor(context.Background(), s, gone.ID))

	doctors, rooms, err := svc.ReferenceLists(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []importmap.Reference{{ID: smith.ID.Hex(), Name: "Dr. Smith"}}, doctors)
	assert.Equal(t, []importmap.Reference{{ID: room.ID.Hex(), Name: "Room 1"}}, rooms)
}

func TestRoomLifecycle(t *testing.T) {
	svc, rec := newService()
	s := scope()
	r, err := svc.CreateRoom(context.Background(), s, RoomRequest{Name: "Room 1", Floor: "1"})
	require.NoError(t, err)
	assert.True(t, r.Active)

	_, err = svc.CreateRoom(context.Background(), s, RoomRequest{Name: "ROOM 1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, svc.DeactivateRoom(context.Background(), s, r.ID))
	active, err := svc.ListRooms(context.Background(), s, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionCreate, common_models.AuditActionDelete}, rec.Actions())
}
