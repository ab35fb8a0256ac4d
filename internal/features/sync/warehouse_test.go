package sync

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow(id string) Row {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return Row{
		ID: id, TenantID: "t1", PatientID: "p1", PatientName: "Ann Lee",
		DoctorID: "d1", DoctorName: "Dr. Smith", RoomID: "r1", RoomName: "Room 1",
		Date: "2026-03-02", StartTime: "09:00", EndTime: "09:30",
		StartsAt: at, EndsAt: at.Add(30 * time.Minute),
		Status: "scheduled", FollowType: "new", Source: "import",
		CreatedAt: at, UpdatedAt: at,
	}
}

func args(r Row) []driver.Value {
	vals := r.values()
	out := make([]driver.Value, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func TestUpsertSQL(t *testing.T) {
	q := upsertSQL()
	assert.Contains(t, q, `INSERT INTO "appointments" (id, tenant_id,`)
	assert.Contains(t, q, "$18)")
	assert.Contains(t, q, "ON CONFLICT (id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id")
	assert.NotContains(t, q, "SET id =")
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "appointments"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, (&PostgresWarehouse{DB: db}).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCommitsBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := []Row{sampleRow("a1"), sampleRow("a2")}
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "appointments"`))
	for _, r := range rows {
		prep.ExpectExec().WithArgs(args(r)...).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	n, err := (&PostgresWarehouse{DB: db}).Upsert(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := []Row{sampleRow("a1"), sampleRow("a2")}
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "appointments"`))
	prep.ExpectExec().WithArgs(args(rows[0])...).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(args(rows[1])...).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	n, err := (&PostgresWarehouse{DB: db}).Upsert(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a2")
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n, err := (&PostgresWarehouse{DB: db}).Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
