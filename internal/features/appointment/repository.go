package appointment

import (
	"context"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OverlapQuery looks for blocking appointments of one doctor or room intersecting
// [Start, End) on Date.
type OverlapQuery struct {
	Field   string // "doctor_id" or "room_id"
	ID      primitive.ObjectID
	Date    string
	Start   string
	End     string
	Exclude primitive.ObjectID
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Appointment, error)
	List(ctx context.Context, scope common_models.Scope, filter Filter, page common_models.Page) ([]Appointment, int64, error)
	FindAll(ctx context.Context, scope common_models.Scope, filter Filter) ([]Appointment, error)
	Overlapping(ctx context.Context, scope common_models.Scope, q OverlapQuery) ([]Appointment, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	UpdatedSince(ctx context.Context, since time.Time, afterID primitive.ObjectID, limit int64) ([]Appointment, error)
	EnsureIndexes(ctx context.Context) error
}

type AppointmentRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAppointmentRepository(mongodb *database.MongodbDB) AppointmentRepository {
	return &AppointmentRepositoryImpl{Collection: mongodb.DB.Collection("appointments")}
}

var chronological = bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}}

func (r *AppointmentRepositoryImpl) Create(ctx context.Context, a *Appointment) error {
	_, err := r.Collection.InsertOne(ctx, a)
	return err
}

func (r *AppointmentRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Appointment, error) {
	var a Appointment
	if err := r.Collection.FindOne(ctx, filterFor(scope, Filter{}, bson.M{"_id": id})).Decode(&a); err != nil {
		return nil, database.NotFound(err, "appointment")
	}
	return &a, nil
}

func (r *AppointmentRepositoryImpl) List(ctx context.Context, scope common_models.Scope, filter Filter, page common_models.Page) ([]Appointment, int64, error) {
	return database.FindPage[Appointment](ctx, r.Collection, filterFor(scope, filter, nil), page, chronological)
}

func (r *AppointmentRepositoryImpl) FindAll(ctx context.Context, scope common_models.Scope, filter Filter) ([]Appointment, error) {
	return r.find(ctx, filterFor(scope, filter, nil), options.Find().SetSort(chronological))
}

func (r *AppointmentRepositoryImpl) Overlapping(ctx context.Context, scope common_models.Scope, q OverlapQuery) ([]Appointment, error) {
	// Canonical HH:MM strings sort in time order.
	extra := bson.M{
		q.Field:      q.ID,
		"date":       q.Date,
		"status":     bson.M{"$nin": []Status{StatusCancelled, StatusNoShow}},
		"start_time": bson.M{"$lt": q.End},
		"end_time":   bson.M{"$gt": q.Start},
	}
	if !q.Exclude.IsZero() {
		extra["_id"] = bson.M{"$ne": q.Exclude}
	}
	return r.find(ctx, scope.With(extra), options.Find().SetSort(chronological))
}

func (r *AppointmentRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "appointment")
	}
	return nil
}

// UpdatedSince pages through every tenant's appointments by (updated_at, _id),
// starting after the given cursor. It feeds the warehouse mirror only.
func (r *AppointmentRepositoryImpl) UpdatedSince(ctx context.Context, since time.Time, afterID primitive.ObjectID, limit int64) ([]Appointment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	filter := bson.M{"$or": bson.A{
		bson.M{"updated_at": bson.M{"$gt": since}},
		bson.M{"updated_at": since, "_id": bson.M{"$gt": afterID}},
	}}
	return r.find(ctx, filter, opts)
}

func (r *AppointmentRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "date", Value: 1}, {Key: "doctor_id", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "date", Value: 1}, {Key: "room_id", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "patient_id", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: 1}}},
	})
	return err
}

func (r *AppointmentRepositoryImpl) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Appointment, error) {
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Appointment, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// filterFor applies the tenant, the doctor-role restriction and the filter fields.
func filterFor(scope common_models.Scope, f Filter, extra bson.M) bson.M {
	q := scope.With(extra)
	if scope.Role == common_models.RoleDoctor {
		q["doctor_id"] = scope.DoctorID
	} else if !f.DoctorID.IsZero() {
		q["doctor_id"] = f.DoctorID
	}
	if !f.RoomID.IsZero() {
		q["room_id"] = f.RoomID
	}
	if !f.PatientID.IsZero() {
		q["patient_id"] = f.PatientID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	dates := bson.M{}
	if f.From != "" {
		dates["$gte"] = f.From
	}
	if f.To != "" {
		dates["$lte"] = f.To
	}
	if len(dates) > 0 {
		q["date"] = dates
	}
	return q
}
