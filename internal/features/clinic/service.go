package clinic

import (
	"context"
	"errors"
	"strings"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/common/validation"
	"go-clinic/internal/features/audit"
	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/importmap"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ClinicService interface {
	ListDoctors(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Doctor, error)
	GetDoctor(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Doctor, error)
	CreateDoctor(ctx context.Context, scope common_models.Scope, req DoctorRequest) (*Doctor, error)
	UpdateDoctor(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req DoctorRequest) (*Doctor, error)
	DeactivateDoctor(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error

	ListRooms(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Room, error)
	GetRoom(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Room, error)
	CreateRoom(ctx context.Context, scope common_models.Scope, req RoomRequest) (*Room, error)
	UpdateRoom(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req RoomRequest) (*Room, error)
	DeactivateRoom(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error

	// ReferenceLists returns the active doctors and rooms as the import validator sees them.
	ReferenceLists(ctx context.Context, scope common_models.Scope) (doctors, rooms []importmap.Reference, err error)
}

type ClinicServiceImpl struct {
	Doctors      DoctorRepository
	Rooms        RoomRepository
	AuditService audit.AuditService
}

func NewClinicService(doctors DoctorRepository, rooms RoomRepository, auditService audit.AuditService) ClinicService {
	return &ClinicServiceImpl{
		Doctors:      doctors,
		Rooms:        rooms,
		AuditService: auditService,
	}
}

func (s *ClinicServiceImpl) ListDoctors(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Doctor, error) {
	return s.Doctors.List(ctx, scope, activeOnly)
}

func (s *ClinicServiceImpl) GetDoctor(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Doctor, error) {
	return s.Doctors.FindByID(ctx, scope, id)
}

func (s *ClinicServiceImpl) CreateDoctor(ctx context.Context, scope common_models.Scope, req DoctorRequest) (*Doctor, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := nameFree(s.Doctors.FindByName(ctx, scope, req.Name)); err != nil {
		return nil, err
	}

	now := time.Now()
	d := &Doctor{
		ID:        primitive.NewObjectID(),
		TenantID:  scope.TenantID,
		Name:      req.Name,
		Specialty: req.Specialty,
		Phone:     req.Phone,
		Email:     req.Email,
		Active:    req.Active == nil || *req.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "doctor", d.ID.Hex(), map[string]common_models.Change{"name": {New: d.Name}})
	return d, nil
}

func (s *ClinicServiceImpl) UpdateDoctor(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req DoctorRequest) (*Doctor, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.Doctors.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if NameKey(req.Name) != current.NameKey {
		if err := nameFree(s.Doctors.FindByName(ctx, scope, req.Name)); err != nil {
			return nil, err
		}
	}

	fields := bson.M{
		"name":       req.Name,
		"name_key":   NameKey(req.Name),
		"specialty":  req.Specialty,
		"phone":      req.Phone,
		"email":      req.Email,
		"updated_at": time.Now(),
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if err := s.Doctors.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "doctor", id.Hex(), map[string]common_models.Change{"name": {Old: current.Name, New: req.Name}})
	return s.Doctors.FindByID(ctx, scope, id)
}

func (s *ClinicServiceImpl) DeactivateDoctor(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if err := s.Doctors.Update(ctx, scope, id, bson.M{"active": false, "updated_at": time.Now()}); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionDelete, "doctor", id.Hex(), map[string]common_models.Change{"active": {Old: true, New: false}})
	return nil
}

func (s *ClinicServiceImpl) ListRooms(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Room, error) {
	return s.Rooms.List(ctx, scope, activeOnly)
}

func (s *ClinicServiceImpl) GetRoom(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Room, error) {
	return s.Rooms.FindByID(ctx, scope, id)
}

func (s *ClinicServiceImpl) CreateRoom(ctx context.Context, scope common_models.Scope, req RoomRequest) (*Room, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := nameFree(s.Rooms.FindByName(ctx, scope, req.Name)); err != nil {
		return nil, err
	}

	now := time.Now()
	r := &Room{
		ID:        primitive.NewObjectID(),
		TenantID:  scope.TenantID,
		Name:      req.Name,
		Floor:     req.Floor,
		Active:    req.Active == nil || *req.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Rooms.Create(ctx, r); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionCreate, "room", r.ID.Hex(), map[string]common_models.Change{"name": {New: r.Name}})
	return r, nil
}

func (s *ClinicServiceImpl) UpdateRoom(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, req RoomRequest) (*Room, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	current, err := s.Rooms.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if NameKey(req.Name) != current.NameKey {
		if err := nameFree(s.Rooms.FindByName(ctx, scope, req.Name)); err != nil {
			return nil, err
		}
	}

	fields := bson.M{
		"name":       req.Name,
		"name_key":   NameKey(req.Name),
		"floor":      req.Floor,
		"updated_at": time.Now(),
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if err := s.Rooms.Update(ctx, scope, id, fields); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionUpdate, "room", id.Hex(), map[string]common_models.Change{"name": {Old: current.Name, New: req.Name}})
	return s.Rooms.FindByID(ctx, scope, id)
}

func (s *ClinicServiceImpl) DeactivateRoom(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	if err := s.Rooms.Update(ctx, scope, id, bson.M{"active": false, "updated_at": time.Now()}); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionDelete, "room", id.Hex(), map[string]common_models.Change{"active": {Old: true, New: false}})
	return nil
}

func (s *ClinicServiceImpl) ReferenceLists(ctx context.Context, scope common_models.Scope) ([]importmap.Reference, []importmap.Reference, error) {
	doctors, err := s.Doctors.List(ctx, scope, true)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.Rooms.List(ctx, scope, true)
	if err != nil {
		return nil, nil, err
	}

	doctorRefs := make([]importmap.Reference, 0, len(doctors))
	for _, d := range doctors {
		doctorRefs = append(doctorRefs, importmap.Reference{ID: d.ID.Hex(), Name: d.Name})
	}
	roomRefs := make([]importmap.Reference, 0, len(rooms))
	for _, r := range rooms {
		roomRefs = append(roomRefs, importmap.Reference{ID: r.ID.Hex(), Name: r.Name})
	}
	return doctorRefs, roomRefs, nil
}

// nameFree turns a successful name lookup into a conflict.
func nameFree(_ any, err error) error {
	switch {
	case err == nil:
		return apperrors.Conflict("name already in use")
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return err
	}
}
