package logger

import (
	"context"
	"fmt"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// Field keys the DB writer lifts into their own columns.
const (
	FieldIP        = "ip"
	FieldTenant    = "tenant_id"
	FieldRequestID = "request_id"
)

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level     zapcore.Level
	Message   string
	IpAddress string
	TenantID  string
	RequestID string
	Caller    string
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	db      *mongo.Database
	logChan chan LogEntry
	appId   string
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		db:      mongodb.DB,
		logChan: make(chan LogEntry, 1000),
		appId:   cfg.AppId,
	}

	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop rather than block the request path
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

func (w *DBLogWriter) processLogs() {
	for entry := range w.logChan {
		record := toRecord(entry, w.appId)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = w.db.Collection("logs").InsertOne(ctx, record)
		cancel()
	}
}

func toRecord(entry LogEntry, appID string) common_models.Log {
	return common_models.Log{
		Message:      entry.Message,
		Level:        entry.Level.String(),
		LogLevelId:   mapLevelToInt(entry.Level),
		IpAddress:    entry.IpAddress,
		TenantID:     entry.TenantID,
		RequestID:    entry.RequestID,
		Caller:       entry.Caller,
		AppId:        appID,
		CreatedOnUtc: time.Now().UTC(),
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
