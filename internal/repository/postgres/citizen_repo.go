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

type citizenRepo struct {
	db *sqlx.DB
}

// NewCitizenRepo creates a new PostgreSQL-backed CitizenRepository.
func NewCitizenRepo(db *sqlx.DB) port.CitizenRepository {
	return &citizenRepo{db: db}
}

func (r *citizenRepo) Create(ctx context.Context, c *domain.Citizen) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `INSERT INTO citizens
		(id, dni, lm, or_code, clase, libro, folio, apellidos, nombres,
		 fecha_nacimiento, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.DNI, c.LM, c.OR, c.Clase, c.Libro, c.Folio,
		c.Apellidos, c.Nombres, c.FechaNacimiento, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("citizenRepo.Create: %w", err)
	}
	return nil
}

func (r *citizenRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Citizen, error) {
	var c domain.Citizen
	err := r.db.GetContext(ctx, &c, "SELECT * FROM citizens WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("citizenRepo.GetByID: %w", err)
	}
	return &c, nil
}

// FindByIdentity looks a citizen up by DNI first, then LM. Either key may be
// nil; both nil returns ErrNotFound without touching the database.
func (r *citizenRepo) FindByIdentity(ctx context.Context, dni, lm *string) (*domain.Citizen, error) {
	if dni == nil && lm == nil {
		return nil, domain.ErrNotFound
	}

	var c domain.Citizen
	if dni != nil {
		err := r.db.GetContext(ctx, &c, "SELECT * FROM citizens WHERE dni = $1", *dni)
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("citizenRepo.FindByIdentity dni: %w", err)
		}
	}
	if lm != nil {
		err := r.db.GetContext(ctx, &c, "SELECT * FROM citizens WHERE lm = $1", *lm)
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("citizenRepo.FindByIdentity lm: %w", err)
		}
	}
	return nil, domain.ErrNotFound
}

func (r *citizenRepo) List(ctx context.Context, offset, limit int) ([]domain.Citizen, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM citizens"); err != nil {
		return nil, 0, fmt.Errorf("citizenRepo.List count: %w", err)
	}

	var citizens []domain.Citizen
	err := r.db.SelectContext(ctx, &citizens,
		`SELECT * FROM citizens ORDER BY apellidos NULLS LAST, created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("citizenRepo.List: %w", err)
	}
	return citizens, total, nil
}

// Search matches the query against identity numbers and names.
func (r *citizenRepo) Search(ctx context.Context, query string, offset, limit int) ([]domain.Citizen, int, error) {
	pattern := "%" + query + "%"

	const where = `dni LIKE $1 OR lm LIKE $1 OR apellidos ILIKE $1 OR nombres ILIKE $1`

	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM citizens WHERE "+where, pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("citizenRepo.Search count: %w", err)
	}

	var citizens []domain.Citizen
	err = r.db.SelectContext(ctx, &citizens,
		`SELECT * FROM citizens WHERE `+where+`
		 ORDER BY apellidos NULLS LAST LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("citizenRepo.Search: %w", err)
	}
	return citizens, total, nil
}

func (r *citizenRepo) Update(ctx context.Context, c *domain.Citizen) error {
	c.UpdatedAt = time.Now().UTC()

	query := `UPDATE citizens SET
		dni = $1, lm = $2, or_code = $3, clase = $4, libro = $5, folio = $6,
		apellidos = $7, nombres = $8, fecha_nacimiento = $9, updated_at = $10
		WHERE id = $11`

	result, err := r.db.ExecContext(ctx, query,
		c.DNI, c.LM, c.OR, c.Clase, c.Libro, c.Folio,
		c.Apellidos, c.Nombres, c.FechaNacimiento, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("citizenRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *citizenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM citizens WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("citizenRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
