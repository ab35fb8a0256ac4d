package job

import (
	"context"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type JobRepository interface {
	Create(ctx context.Context, l *Listing) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Listing, error)
	List(ctx context.Context, scope common_models.Scope, status Status, page common_models.Page) ([]Listing, int64, error)
	ListOpen(ctx context.Context, tenantID primitive.ObjectID) ([]Listing, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type JobRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewJobRepository(mongodb *database.MongodbDB) JobRepository {
	return &JobRepositoryImpl{Collection: mongodb.DB.Collection("job_listings")}
}

func (r *JobRepositoryImpl) Create(ctx context.Context, l *Listing) error {
	_, err := r.Collection.InsertOne(ctx, l)
	return err
}

func (r *JobRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Listing, error) {
	var l Listing
	if err := r.Collection.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&l); err != nil {
		return nil, database.NotFound(err, "job listing")
	}
	return &l, nil
}

func (r *JobRepositoryImpl) List(ctx context.Context, scope common_models.Scope, status Status, page common_models.Page) ([]Listing, int64, error) {
	filter := scope.Filter()
	if status != "" {
		filter["status"] = status
	}
	return database.FindPage[Listing](ctx, r.Collection, filter, page, bson.D{{Key: "created_at", Value: -1}})
}

func (r *JobRepositoryImpl) ListOpen(ctx context.Context, tenantID primitive.ObjectID) ([]Listing, error) {
	cursor, err := r.Collection.Find(ctx,
		bson.M{"tenant_id": tenantID, "status": StatusOpen},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *JobRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "job listing")
	}
	return nil
}

func (r *JobRepositoryImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, scope.With(bson.M{"_id": id}))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "job listing")
	}
	return nil
}

func (r *JobRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
