package clinic

import (
	"context"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Doctor, error)
	FindByName(ctx context.Context, scope common_models.Scope, name string) (*Doctor, error)
	List(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Doctor, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type RoomRepository interface {
	Create(ctx context.Context, r *Room) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Room, error)
	FindByName(ctx context.Context, scope common_models.Scope, name string) (*Room, error)
	List(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Room, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

// collection holds the queries doctors and rooms share.
type collection[T any] struct {
	Collection *mongo.Collection
	resource   string
}

func (c collection[T]) insert(ctx context.Context, doc *T) error {
	_, err := c.Collection.InsertOne(ctx, doc)
	return database.Duplicate(err, c.resource+" name already exists")
}

func (c collection[T]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	var out T
	if err := c.Collection.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, database.NotFound(err, c.resource)
	}
	return &out, nil
}

func (c collection[T]) list(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]T, error) {
	filter := scope.Filter()
	if activeOnly {
		filter["active"] = true
	}
	cursor, err := c.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c collection[T]) update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := c.Collection.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return database.Duplicate(err, c.resource+" name already exists")
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, c.resource)
	}
	return nil
}

func (c collection[T]) delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	res, err := c.Collection.DeleteOne(ctx, scope.With(bson.M{"_id": id}))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, c.resource)
	}
	return nil
}

func (c collection[T]) ensureIndexes(ctx context.Context) error {
	_, err := c.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "name_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type DoctorRepositoryImpl struct {
	collection[Doctor]
}

func NewDoctorRepository(mongodb *database.MongodbDB) DoctorRepository {
	return &DoctorRepositoryImpl{collection[Doctor]{Collection: mongodb.DB.Collection("doctors"), resource: "doctor"}}
}

func (r *DoctorRepositoryImpl) Create(ctx context.Context, d *Doctor) error {
	d.NameKey = NameKey(d.Name)
	return r.insert(ctx, d)
}

func (r *DoctorRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Doctor, error) {
	return r.findOne(ctx, scope.With(bson.M{"_id": id}))
}

func (r *DoctorRepositoryImpl) FindByName(ctx context.Context, scope common_models.Scope, name string) (*Doctor, error) {
	return r.findOne(ctx, scope.With(bson.M{"name_key": NameKey(name)}))
}

func (r *DoctorRepositoryImpl) List(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Doctor, error) {
	return r.list(ctx, scope, activeOnly)
}

func (r *DoctorRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	return r.update(ctx, scope, id, fields)
}

func (r *DoctorRepositoryImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	return r.delete(ctx, scope, id)
}

func (r *DoctorRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	return r.ensureIndexes(ctx)
}

type RoomRepositoryImpl struct {
	collection[Room]
}

func NewRoomRepository(mongodb *database.MongodbDB) RoomRepository {
	return &RoomRepositoryImpl{collection[Room]{Collection: mongodb.DB.Collection("rooms"), resource: "room"}}
}

func (r *RoomRepositoryImpl) Create(ctx context.Context, room *Room) error {
	room.NameKey = NameKey(room.Name)
	return r.insert(ctx, room)
}

func (r *RoomRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Room, error) {
	return r.findOne(ctx, scope.With(bson.M{"_id": id}))
}

func (r *RoomRepositoryImpl) FindByName(ctx context.Context, scope common_models.Scope, name string) (*Room, error) {
	return r.findOne(ctx, scope.With(bson.M{"name_key": NameKey(name)}))
}

func (r *RoomRepositoryImpl) List(ctx context.Context, scope common_models.Scope, activeOnly bool) ([]Room, error) {
	return r.list(ctx, scope, activeOnly)
}

func (r *RoomRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	return r.update(ctx, scope, id, fields)
}

func (r *RoomRepositoryImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	return r.delete(ctx, scope, id)
}

func (r *RoomRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	return r.ensureIndexes(ctx)
}
