package lead

import (
	"context"
	"regexp"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type LeadRepository interface {
	Create(ctx context.Context, l *Lead) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Lead, error)
	List(ctx context.Context, scope common_models.Scope, f Filter, page common_models.Page) ([]Lead, int64, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	// MarkConverted only succeeds while the lead is not converted yet.
	MarkConverted(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type LeadRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewLeadRepository(mongodb *database.MongodbDB) LeadRepository {
	return &LeadRepositoryImpl{Collection: mongodb.DB.Collection("leads")}
}

func (r *LeadRepositoryImpl) Create(ctx context.Context, l *Lead) error {
	_, err := r.Collection.InsertOne(ctx, l)
	return err
}

func (r *LeadRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*Lead, error) {
	var l Lead
	if err := r.Collection.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&l); err != nil {
		return nil, database.NotFound(err, "lead")
	}
	return &l, nil
}

func (r *LeadRepositoryImpl) List(ctx context.Context, scope common_models.Scope, f Filter, page common_models.Page) ([]Lead, int64, error) {
	filter := scope.Filter()
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"phone": pattern},
			bson.M{"email": pattern},
		}
	}
	return database.FindPage[Lead](ctx, r.Collection, filter, page, bson.D{{Key: "score", Value: -1}, {Key: "created_at", Value: -1}})
}

func (r *LeadRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "lead")
	}
	return nil
}

func (r *LeadRepositoryImpl) MarkConverted(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	filter := scope.With(bson.M{"_id": id, "status": bson.M{"$ne": StatusConverted}})
	res, err := r.Collection.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyConverted
	}
	return nil
}

func (r *LeadRepositoryImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, scope.With(bson.M{"_id": id}))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "lead")
	}
	return nil
}

func (r *LeadRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "score", Value: -1}}},
	})
	return err
}
