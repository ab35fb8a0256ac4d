package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"time"

	"go-clinic/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// cleanup deletes stored import uploads older than the retention window and
// clears the file reference on their jobs. Job counters and errors are kept.
func main() {
	days := flag.Int("days", 30, "retention in days")
	dryRun := flag.Bool("dry-run", false, "report without deleting")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(ctx)

	jobs := client.Database(cfg.DBName).Collection("import_jobs")
	cutoff := time.Now().AddDate(0, 0, -*days)
	filter := bson.M{"created_at": bson.M{"$lt": cutoff}, "file_path": bson.M{"$nin": bson.A{"", nil}}}

	cursor, err := jobs.Find(ctx, filter, options.Find().SetProjection(bson.M{"file_path": 1}))
	if err != nil {
		logger.Fatal("Failed to list import jobs", zap.Error(err))
	}
	defer cursor.Close(ctx)

	removed, missing := 0, 0
	for cursor.Next(ctx) {
		var job struct {
			ID       interface{} `bson:"_id"`
			FilePath string      `bson:"file_path"`
		}
		if err := cursor.Decode(&job); err != nil {
			logger.Warn("Skipping undecodable job", zap.Error(err))
			continue
		}
		if *dryRun {
			logger.Info("Would remove", zap.String("path", job.FilePath))
			continue
		}
		if err := os.Remove(job.FilePath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Failed to remove upload", zap.String("path", job.FilePath), zap.Error(err))
				continue
			}
			missing++
		} else {
			removed++
		}
		if _, err := jobs.UpdateByID(ctx, job.ID, bson.M{"$set": bson.M{"file_path": ""}}); err != nil {
			logger.Warn("Failed to clear file reference", zap.Error(err))
		}
	}
	if err := cursor.Err(); err != nil {
		logger.Fatal("Cursor failed", zap.Error(err))
	}

	logger.Info("Cleanup complete",
		zap.Time("cutoff", cutoff),
		zap.Int("removed", removed),
		zap.Int("already_missing", missing),
		zap.Bool("dry_run", *dryRun),
	)
}
