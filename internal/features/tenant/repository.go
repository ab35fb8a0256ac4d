package tenant

import (
	"context"

	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	EnsureIndexes(ctx context.Context) error
}

type TenantRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTenantRepository(mongodb *database.MongodbDB) TenantRepository {
	return &TenantRepositoryImpl{
		Collection: mongodb.DB.Collection("tenants"),
	}
}

func (r *TenantRepositoryImpl) Create(ctx context.Context, t *Tenant) error {
	_, err := r.Collection.InsertOne(ctx, t)
	return database.Duplicate(err, "clinic slug already taken")
}

func (r *TenantRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Tenant, error) {
	var t Tenant
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, database.NotFound(err, "clinic")
	}
	return &t, nil
}

func (r *TenantRepositoryImpl) FindBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var t Tenant
	if err := r.Collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&t); err != nil {
		return nil, database.NotFound(err, "clinic")
	}
	return &t, nil
}

func (r *TenantRepositoryImpl) List(ctx context.Context) ([]Tenant, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []Tenant
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TenantRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "clinic")
	}
	return nil
}

func (r *TenantRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
