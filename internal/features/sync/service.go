package sync

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/features/appointment"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/metrics"
	"go-clinic/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	batchSize   = 500
	defaultRuns = 20
	maxRuns     = 100
)

var (
	ErrSyncRunning  = apperrors.New("SYNC_RUNNING", http.StatusConflict, "a sync run is already in progress")
	ErrSyncDisabled = apperrors.Clone(apperrors.ErrUnavailable, "warehouse sync is not configured")
)

// Appointments pages through every tenant's appointments in (updated_at, _id) order.
type Appointments interface {
	UpdatedSince(ctx context.Context, since time.Time, afterID primitive.ObjectID, limit int64) ([]appointment.Appointment, error)
}

type SyncService interface {
	// Run copies appointments changed since the saved cursor into the warehouse.
	Run(ctx context.Context, scope common_models.Scope, trigger string) (*Run, error)
	Runs(ctx context.Context, limit int) ([]Run, error)
	State(ctx context.Context) (*State, error)
}

type SyncServiceImpl struct {
	Repo         SyncRepository
	Warehouse    Warehouse
	Appointments Appointments
	AuditService audit.AuditService
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	BatchSize    int64

	mu sync.Mutex
}

func NewSyncService(repo SyncRepository, warehouse Warehouse, appointments Appointments, auditService audit.AuditService, m *metrics.Metrics, logger *zap.Logger) SyncService {
	return &SyncServiceImpl{
		Repo:         repo,
		Warehouse:    warehouse,
		Appointments: appointments,
		AuditService: auditService,
		Metrics:      m,
		Logger:       logger,
		BatchSize:    batchSize,
	}
}

func (s *SyncServiceImpl) Run(ctx context.Context, scope common_models.Scope, trigger string) (*Run, error) {
	if s.Warehouse == nil {
		return nil, ErrSyncDisabled
	}
	if !s.mu.TryLock() {
		return nil, ErrSyncRunning
	}
	defer s.mu.Unlock()

	run := &Run{Trigger: trigger, StartTime: time.Now(), Status: RunInProgress}
	if err := s.Repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionSync, "sync", run.ID.Hex(), map[string]common_models.Change{
		"status": {New: RunInProgress},
	})

	processed, err := s.copy(ctx)
	run.Processed = processed
	run.EndTime = time.Now()
	run.Status = RunSuccess
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		s.Logger.Error("Warehouse sync failed", zap.String("trigger", trigger), zap.Int("processed", processed), zap.Error(err))
	} else {
		s.Logger.Info("Warehouse sync finished", zap.String("trigger", trigger), zap.Int("processed", processed))
	}
	s.Metrics.JobRun("sync", err == nil)

	// The run outcome is saved even if the caller's context is gone.
	if ferr := s.Repo.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
		s.Logger.Warn("Failed to record sync run", zap.Error(ferr))
	}
	_ = s.AuditService.LogChange(ctx, scope, common_models.AuditActionSync, "sync", run.ID.Hex(), map[string]common_models.Change{
		"status":    {Old: RunInProgress, New: run.Status},
		"processed": {New: processed},
	})
	if err != nil {
		return run, apperrors.Wrap(err, "SYNC_FAILED", http.StatusBadGateway, "warehouse sync failed")
	}
	return run, nil
}

// copy advances the cursor one batch at a time so a failed run resumes where it stopped.
func (s *SyncServiceImpl) copy(ctx context.Context) (int, error) {
	if err := s.Warehouse.EnsureSchema(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}
	state, err := s.Repo.GetState(ctx, appointmentsStream)
	if err != nil {
		return 0, err
	}

	processed := 0
	for {
		batch, err := s.Appointments.UpdatedSince(ctx, state.LastSyncAt, state.LastID, s.BatchSize)
		if err != nil {
			return processed, err
		}
		if len(batch) == 0 {
			return processed, nil
		}
		rows := make([]Row, len(batch))
		for i, a := range batch {
			rows[i] = rowFrom(a)
		}
		n, err := s.Warehouse.Upsert(ctx, rows)
		if err != nil {
			return processed, err
		}
		processed += n

		last := batch[len(batch)-1]
		state.LastSyncAt = last.UpdatedAt
		state.LastID = last.ID
		state.Total += int64(n)
		if err := s.Repo.SaveState(ctx, state); err != nil {
			return processed, err
		}
		if int64(len(batch)) < s.BatchSize {
			return processed, nil
		}
	}
}

func (s *SyncServiceImpl) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRuns
	}
	if limit > maxRuns {
		limit = maxRuns
	}
	return s.Repo.ListRuns(ctx, int64(limit))
}

func (s *SyncServiceImpl) State(ctx context.Context) (*State, error) {
	return s.Repo.GetState(ctx, appointmentsStream)
}
