package database

import (
	"context"
	"errors"
	"log"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

// MongodbDB wraps the application database handle.
type MongodbDB struct {
	DB *mongo.Database
}

// NewDatabase creates a new MongoDB database connection with lifecycle management
func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*MongodbDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB!")

	db := client.Database(cfg.DBName)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Disconnecting from MongoDB...")
			return client.Disconnect(ctx)
		},
	})

	return &MongodbDB{DB: db}, nil
}

// IndexSpec is implemented by repositories that need indexes at startup.
type IndexSpec interface {
	EnsureIndexes(ctx context.Context) error
}

// NotFound maps mongo.ErrNoDocuments to a typed not-found error.
func NotFound(err error, resource string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound(resource)
	}
	return err
}

// Duplicate maps a unique index violation to a typed conflict.
func Duplicate(err error, message string) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Conflict(message)
	}
	return err
}

// FindPage runs a paged find and a matching count.
func FindPage[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, page common_models.Page, sort bson.D) ([]T, int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSkip(page.Offset()).SetLimit(page.Limit)
	if len(sort) > 0 {
		opts.SetSort(sort)
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	items := make([]T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
