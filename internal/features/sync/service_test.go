package sync

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/features/appointment"
	"go-clinic/internal/features/audit/audittest"
	"go-clinic/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memRepo struct {
	state *State
	runs  []Run
}

func (m *memRepo) GetState(_ context.Context, stream string) (*State, error) {
	if m.state == nil {
		return &State{Stream: stream}, nil
	}
	cp := *m.state
	return &cp, nil
}

func (m *memRepo) SaveState(_ context.Context, state *State) error {
	cp := *state
	m.state = &cp
	return nil
}

func (m *memRepo) CreateRun(_ context.Context, run *Run) error {
	run.ID = primitive.NewObjectID()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRepo) FinishRun(_ context.Context, run *Run) error {
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = *run
		}
	}
	return nil
}

func (m *memRepo) ListRuns(_ context.Context, limit int64) ([]Run, error) {
	if int64(len(m.runs)) > limit {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *memRepo) EnsureIndexes(context.Context) error { return nil }

type memWarehouse struct {
	rows   map[string]Row
	calls  int
	failAt int
}

func (w *memWarehouse) EnsureSchema(context.Context) error { return nil }

func (w *memWarehouse) Upsert(_ context.Context, rows []Row) (int, error) {
	w.calls++
	if w.calls == w.failAt {
		return 0, errors.New("connection reset")
	}
	if w.rows == nil {
		w.rows = map[string]Row{}
	}
	for _, r := range rows {
		w.rows[r.ID] = r
	}
	return len(rows), nil
}

type memAppointments struct{ items []appointment.Appointment }

func (m *memAppointments) UpdatedSince(_ context.Context, since time.Time, afterID primitive.ObjectID, limit int64) ([]appointment.Appointment, error) {
	sorted := append([]appointment.Appointment(nil), m.items...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
		}
		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})
	var out []appointment.Appointment
	for _, a := range sorted {
		after := a.UpdatedAt.After(since) ||
			(a.UpdatedAt.Equal(since) && bytes.Compare(a.ID[:], afterID[:]) > 0)
		if after && int64(len(out)) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

// fixture has five appointments, three of which share an updated_at.
func fixture() *memAppointments {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute)}
	m := &memAppointments{}
	for _, at := range times {
		m.items = append(m.items, appointment.Appointment{
			ID: primitive.NewObjectID(), TenantID: primitive.NewObjectID(),
			Status: appointment.StatusScheduled, UpdatedAt: at,
		})
	}
	return m
}

func newService(w Warehouse, appts Appointments) (*SyncServiceImpl, *memRepo, *audittest.Recorder) {
	repo := &memRepo{}
	rec := &audittest.Recorder{}
	svc := NewSyncService(repo, w, appts, rec, nil, zap.NewNop()).(*SyncServiceImpl)
	svc.BatchSize = 2
	return svc, repo, rec
}

var superadmin = common_models.Scope{UserID: primitive.NewObjectID(), Role: common_models.RoleSuperAdmin}

func TestRunCopiesEveryRowAcrossBatches(t *testing.T) {
	w := &memWarehouse{}
	appts := fixture()
	svc, repo, rec := newService(w, appts)

	run, err := svc.Run(context.Background(), superadmin, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, RunSuccess, run.Status)
	assert.Equal(t, 5, run.Processed)
	assert.Len(t, w.rows, 5)
	assert.Equal(t, 3, w.calls)

	last := appts.items[4]
	assert.Equal(t, last.ID, repo.state.LastID)
	assert.True(t, last.UpdatedAt.Equal(repo.state.LastSyncAt))
	assert.EqualValues(t, 5, repo.state.Total)
	assert.Equal(t, []common_models.AuditAction{common_models.AuditActionSync, common_models.AuditActionSync}, rec.Actions())

	again, err := svc.Run(context.Background(), superadmin, TriggerSchedule)
	require.NoError(t, err)
	assert.Zero(t, again.Processed)
}

func TestRunPicksUpChangedRows(t *testing.T) {
	w := &memWarehouse{}
	appts := fixture()
	svc, _, _ := newService(w, appts)
	_, err := svc.Run(context.Background(), superadmin, TriggerManual)
	require.NoError(t, err)

	appts.items[0].Status = appointment.StatusCancelled
	appts.items[0].UpdatedAt = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	run, err := svc.Run(context.Background(), superadmin, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Processed)
	assert.Equal(t, "cancelled", w.rows[appts.items[0].ID.Hex()].Status)
}

func TestRunResumesAfterFailure(t *testing.T) {
	w := &memWarehouse{failAt: 2}
	svc, repo, _ := newService(w, fixture())

	run, err := svc.Run(context.Background(), superadmin, TriggerManual)
	require.Error(t, err)
	assert.Equal(t, "SYNC_FAILED", apperrors.FromError(err).Code)
	assert.Equal(t, RunFailed, run.Status)
	assert.Equal(t, 2, run.Processed)
	assert.Contains(t, run.Error, "connection reset")
	assert.Equal(t, RunFailed, repo.runs[0].Status)
	assert.EqualValues(t, 2, repo.state.Total)

	run, err = svc.Run(context.Background(), superadmin, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Processed)
	assert.Len(t, w.rows, 5)
}

func TestRunWithoutWarehouse(t *testing.T) {
	svc, repo, _ := newService(nil, fixture())
	_, err := svc.Run(context.Background(), superadmin, TriggerManual)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Empty(t, repo.runs)
}

func TestRunRejectsOverlap(t *testing.T) {
	svc, _, _ := newService(&memWarehouse{}, fixture())
	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, err := svc.Run(context.Background(), superadmin, TriggerSchedule)
	assert.ErrorIs(t, err, ErrSyncRunning)
}

func TestRunsLimit(t *testing.T) {
	svc, repo, _ := newService(&memWarehouse{}, fixture())
	for i := 0; i < 30; i++ {
		repo.runs = append(repo.runs, Run{ID: primitive.NewObjectID()})
	}
	tests := []struct {
		limit int
		want  int
	}{
		{0, defaultRuns},
		{5, 5},
		{500, 30},
	}
	for _, tt := range tests {
		runs, err := svc.Runs(context.Background(), tt.limit)
		require.NoError(t, err)
		assert.Len(t, runs, tt.want)
	}
}
