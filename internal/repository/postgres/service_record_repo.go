package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ormd/internal/domain"
	"ormd/internal/port"
)

type serviceRecordRepo struct {
	db *sqlx.DB
}

// NewServiceRecordRepo creates a new PostgreSQL-backed ServiceRecordRepository.
func NewServiceRecordRepo(db *sqlx.DB) port.ServiceRecordRepository {
	return &serviceRecordRepo{db: db}
}

// Upsert inserts or replaces the citizen's single service record.
func (r *serviceRecordRepo) Upsert(ctx context.Context, rec *domain.ServiceRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `INSERT INTO service_records
		(id, citizen_id, presto_servicio, gran_unidad, unidad_alta, unidad_baja,
		 fecha_alta, fecha_baja, grado, motivo_baja, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (citizen_id) DO UPDATE SET
			presto_servicio = EXCLUDED.presto_servicio,
			gran_unidad = EXCLUDED.gran_unidad,
			unidad_alta = EXCLUDED.unidad_alta,
			unidad_baja = EXCLUDED.unidad_baja,
			fecha_alta = EXCLUDED.fecha_alta,
			fecha_baja = EXCLUDED.fecha_baja,
			grado = EXCLUDED.grado,
			motivo_baja = EXCLUDED.motivo_baja,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.CitizenID, rec.PrestoServicio, rec.GranUnidad, rec.UnidadAlta,
		rec.UnidadBaja, rec.FechaAlta, rec.FechaBaja, rec.Grado, rec.MotivoBaja,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("serviceRecordRepo.Upsert: %w", err)
	}
	return nil
}

func (r *serviceRecordRepo) GetByCitizen(ctx context.Context, citizenID uuid.UUID) (*domain.ServiceRecord, error) {
	var rec domain.ServiceRecord
	err := r.db.GetContext(ctx, &rec,
		"SELECT * FROM service_records WHERE citizen_id = $1", citizenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("serviceRecordRepo.GetByCitizen: %w", err)
	}
	return &rec, nil
}

func (r *serviceRecordRepo) DeleteByCitizen(ctx context.Context, citizenID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM service_records WHERE citizen_id = $1", citizenID)
	if err != nil {
		return fmt.Errorf("serviceRecordRepo.DeleteByCitizen: %w", err)
	}
	return nil
}
