package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDBCoreTeesEntries(t *testing.T) {
	base, logs := observer.New(zapcore.InfoLevel)
	writer := &DBLogWriter{logChan: make(chan LogEntry, 4), appId: "test"}
	log := zap.New(NewDBCore(base, writer)).With(zap.String(FieldTenant, "t1"))

	log.Info("imported", zap.String(FieldRequestID, "req-1"), zap.String(FieldIP, "10.0.0.1"))
	log.Debug("dropped by level")

	assert.Equal(t, 1, logs.Len())
	select {
	case entry := <-writer.logChan:
		assert.Equal(t, "imported", entry.Message)
		assert.Equal(t, "req-1", entry.RequestID)
		assert.Equal(t, "10.0.0.1", entry.IpAddress)
		assert.Equal(t, "t1", entry.TenantID)
	default:
		t.Fatal("expected entry on the writer channel")
	}
	assert.Len(t, writer.logChan, 0)
}

func TestAddLogDropsWhenFull(t *testing.T) {
	writer := &DBLogWriter{logChan: make(chan LogEntry, 1)}
	writer.AddLog(LogEntry{Message: "a"})
	writer.AddLog(LogEntry{Message: "b"})
	assert.Len(t, writer.logChan, 1)
}

func TestToRecord(t *testing.T) {
	rec := toRecord(LogEntry{Level: zapcore.WarnLevel, Message: "m", TenantID: "t"}, "app")
	assert.Equal(t, 30, rec.LogLevelId)
	assert.Equal(t, "warn", rec.Level)
	assert.Equal(t, "app", rec.AppId)
	assert.Equal(t, "t", rec.TenantID)
	assert.False(t, rec.CreatedOnUtc.IsZero())
}
