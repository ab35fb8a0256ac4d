package sync

import (
	"context"
	"errors"
	"time"

	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SyncRepository interface {
	// GetState returns the zero cursor for a stream that never ran.
	GetState(ctx context.Context, stream string) (*State, error)
	SaveState(ctx context.Context, state *State) error
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int64) ([]Run, error)
	EnsureIndexes(ctx context.Context) error
}

type SyncRepositoryImpl struct {
	State *mongo.Collection
	Runs  *mongo.Collection
}

func NewSyncRepository(mongodb *database.MongodbDB) SyncRepository {
	return &SyncRepositoryImpl{
		State: mongodb.DB.Collection("sync_state"),
		Runs:  mongodb.DB.Collection("sync_runs"),
	}
}

func (r *SyncRepositoryImpl) GetState(ctx context.Context, stream string) (*State, error) {
	var s State
	err := r.State.FindOne(ctx, bson.M{"_id": stream}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &State{Stream: stream}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SyncRepositoryImpl) SaveState(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now()
	_, err := r.State.ReplaceOne(ctx, bson.M{"_id": state.Stream}, state, options.Replace().SetUpsert(true))
	return err
}

func (r *SyncRepositoryImpl) CreateRun(ctx context.Context, run *Run) error {
	res, err := r.Runs.InsertOne(ctx, run)
	if err != nil {
		return err
	}
	run.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *SyncRepositoryImpl) FinishRun(ctx context.Context, run *Run) error {
	_, err := r.Runs.UpdateByID(ctx, run.ID, bson.M{"$set": bson.M{
		"end_time":  run.EndTime,
		"status":    run.Status,
		"processed": run.Processed,
		"error":     run.Error,
	}})
	return err
}

func (r *SyncRepositoryImpl) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	cursor, err := r.Runs.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Run, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SyncRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Runs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "start_time", Value: -1}},
		Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600),
	})
	return err
}
