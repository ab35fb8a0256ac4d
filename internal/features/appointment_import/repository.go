package appointment_import

import (
	"context"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ImportJobRepository interface {
	Create(ctx context.Context, job *ImportJob) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*ImportJob, error)
	List(ctx context.Context, scope common_models.Scope, page common_models.Page) ([]ImportJob, int64, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	EnsureIndexes(ctx context.Context) error
}

type ImportJobRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewImportJobRepository(mongodb *database.MongodbDB) ImportJobRepository {
	return &ImportJobRepositoryImpl{Collection: mongodb.DB.Collection("import_jobs")}
}

func (r *ImportJobRepositoryImpl) Create(ctx context.Context, job *ImportJob) error {
	_, err := r.Collection.InsertOne(ctx, job)
	return err
}

func (r *ImportJobRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*ImportJob, error) {
	var job ImportJob
	if err := r.Collection.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&job); err != nil {
		return nil, database.NotFound(err, "import job")
	}
	return &job, nil
}

func (r *ImportJobRepositoryImpl) List(ctx context.Context, scope common_models.Scope, page common_models.Page) ([]ImportJob, int64, error) {
	return database.FindPage[ImportJob](ctx, r.Collection, scope.Filter(), page, bson.D{{Key: "created_at", Value: -1}})
}

func (r *ImportJobRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "import job")
	}
	return nil
}

func (r *ImportJobRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
