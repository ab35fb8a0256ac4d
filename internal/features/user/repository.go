package user

import (
	"context"
	"strings"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*User, error)
	// FindByEmail is unscoped; used for login.
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, scope common_models.Scope, page common_models.Page) ([]User, int64, error)
	Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
	EnsureIndexes(ctx context.Context) error
}

type UserRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewUserRepository(mongodb *database.MongodbDB) UserRepository {
	return &UserRepositoryImpl{
		Collection: mongodb.DB.Collection("users"),
	}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := r.Collection.InsertOne(ctx, user)
	return database.Duplicate(err, "email already registered")
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) (*User, error) {
	var user User
	if err := r.Collection.FindOne(ctx, scope.With(bson.M{"_id": id})).Decode(&user); err != nil {
		return nil, database.NotFound(err, "user")
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := r.Collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user); err != nil {
		return nil, database.NotFound(err, "user")
	}
	return &user, nil
}

func (r *UserRepositoryImpl) List(ctx context.Context, scope common_models.Scope, page common_models.Page) ([]User, int64, error) {
	return database.FindPage[User](ctx, r.Collection, scope.Filter(), page, bson.D{{Key: "name", Value: 1}})
}

func (r *UserRepositoryImpl) Update(ctx context.Context, scope common_models.Scope, id primitive.ObjectID, fields bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, scope.With(bson.M{"_id": id}), bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "user")
	}
	return nil
}

func (r *UserRepositoryImpl) Delete(ctx context.Context, scope common_models.Scope, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, scope.With(bson.M{"_id": id}))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.NotFound(mongo.ErrNoDocuments, "user")
	}
	return nil
}

func (r *UserRepositoryImpl) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	cursor, err := r.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.ID.Hex()] = u.Name
	}
	return out, nil
}

func (r *UserRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role", Value: 1}}},
	})
	return err
}
