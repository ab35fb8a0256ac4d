package patient

import (
	"context"
	"regexp"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Patient, error)
	FindByPhone(ctx context.Context, scope common_models.Scope, phoneKey string) (*Patient, error)
	FindByIDs(ctx context.Context, scope common_models.Scope, ids []primitive.ObjectID) ([]Patient, error)
	List(ctx context.Context, scope common_models.Scope, search string, page common_models.Page) ([]Patient, int64, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type PatientRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewPatientRepository(mongodb *database.MongodbDB) PatientRepository {
	return &PatientRepositoryImpl{
		Collection: mongodb.DB.Collection("patients"),
	}
}

func (r *PatientRepositoryImpl) Create(ctx context.Context, p *Patient) error {
	_, err := r.Collection.InsertOne(ctx, p)
	return database.Duplicate(err, "a patient with this phone already exists")
}

func (r *PatientRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Patient, error) {
	var p Patient
	if err := r.Collection.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&p); err != nil {
		return nil, database.NotFound(err, "patient")
	}
	return &p, nil
}

func (r *PatientRepositoryImpl) FindByPhone(ctx context.Context, scope common_models.Scope, phoneKey string) (*Patient, error) {
	var p Patient
	if err := r.Collection.FindOne(ctx, scope.With(bson.M{"phone_key": phoneKey})).Decode(&p); err != nil {
		return nil, database.NotFound(err, "patient")
	}
	return &p, nil
}

func (r *PatientRepositoryImpl) FindByIDs(ctx context.Context, scope common_models.Scope, ids []primitive.ObjectID) ([]Patient, error) {
	cursor, err := r.Collection.Find(ctx, scope.With(bson.M{"_id": bson.M{"$in": ids}}))
	if err != nil {
		return nil, err
	}
	var out []Patient
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PatientRepositoryImpl) List(ctx context.Context, scope common_models.Scope, search string, page common_models.Page) ([]Patient, int64, error) {
	filter := scope.Filter()
	if search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"phone": pattern},
			bson.M{"email": pattern},
		}
	}
	return database.FindPage[Patient](ctx, r.Collection, filter, page, bson.D{{Key: "name", Value: 1}})
}

func (r *PatientRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return database.Duplicate(err, "a patient with this phone already exists")
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "patient")
	}
	return nil
}

func (r *PatientRepositoryImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, scope.With(bson.M{"_id": id}))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "patient")
	}
	return nil
}

func (r *PatientRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "phone_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}}},
	})
	return err
}
