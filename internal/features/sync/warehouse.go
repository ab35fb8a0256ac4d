package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go-clinic/internal/config"

	"github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const warehouseTable = "appointments"

var warehouseColumns = []string{
	"id", "tenant_id", "patient_id", "patient_name", "doctor_id", "doctor_name", "room_id", "room_name",
	"date", "start_time", "end_time", "starts_at", "ends_at", "status", "follow_type", "source",
	"created_at", "updated_at",
}

// Warehouse is the reporting database appointments are mirrored into.
type Warehouse interface {
	EnsureSchema(ctx context.Context) error
	// Upsert writes rows in one transaction and returns how many were written.
	Upsert(ctx context.Context, rows []Row) (int, error)
}

type PostgresWarehouse struct {
	DB *sql.DB
}

// NewWarehouse opens the warehouse connection. It returns nil when no DSN is configured,
// which disables the mirror.
func NewWarehouse(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (Warehouse, error) {
	if cfg.WarehouseDSN == "" {
		logger.Info("Warehouse sync disabled, WAREHOUSE_DSN is empty")
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.WarehouseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}
	db.SetMaxOpenConns(4)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				// The API stays up; runs fail until the warehouse is reachable.
				logger.Warn("Warehouse unreachable", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return &PostgresWarehouse{DB: db}, nil
}

func (w *PostgresWarehouse) EnsureSchema(ctx context.Context) error {
	_, err := w.DB.ExecContext(ctx, createTableSQL())
	return err
}

func (w *PostgresWarehouse) Upsert(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSQL())
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.values()...); err != nil {
			return 0, fmt.Errorf("upsert appointment %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func createTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS ` + pq.QuoteIdentifier(warehouseTable) + ` (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	patient_id TEXT NOT NULL,
	patient_name TEXT,
	doctor_id TEXT NOT NULL,
	doctor_name TEXT,
	room_id TEXT NOT NULL,
	room_name TEXT,
	date DATE NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	starts_at TIMESTAMPTZ,
	ends_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	follow_type TEXT,
	source TEXT,
	created_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ
)`
}

func upsertSQL() string {
	placeholders := make([]string, len(warehouseColumns))
	updates := make([]string, 0, len(warehouseColumns)-1)
	for i, col := range warehouseColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		pq.QuoteIdentifier(warehouseTable),
		strings.Join(warehouseColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}
