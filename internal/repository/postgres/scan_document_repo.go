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

type scanDocumentRepo struct {
	db *sqlx.DB
}

// NewScanDocumentRepo creates a new PostgreSQL-backed ScanDocumentRepository.
func NewScanDocumentRepo(db *sqlx.DB) port.ScanDocumentRepository {
	return &scanDocumentRepo{db: db}
}

func (r *scanDocumentRepo) Create(ctx context.Context, doc *domain.ScanDocument) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `INSERT INTO scan_documents
		(id, citizen_id, file_name, original_name, file_type, file_size,
		 s3_bucket, s3_key, content_type, extraction_status, extraction_error,
		 extracted_data, corrected_data, model_used, extracted_at,
		 review_status, reviewed_at, reviewer_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.CitizenID, doc.FileName, doc.OriginalName, doc.FileType,
		doc.FileSize, doc.S3Bucket, doc.S3Key, doc.ContentType,
		doc.ExtractionStatus, doc.ExtractionError, doc.ExtractedData,
		doc.CorrectedData, doc.ModelUsed, doc.ExtractedAt,
		doc.ReviewStatus, doc.ReviewedAt, doc.ReviewerNotes,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("scanDocumentRepo.Create: %w", err)
	}
	return nil
}

func (r *scanDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanDocument, error) {
	var doc domain.ScanDocument
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM scan_documents WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanDocumentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *scanDocumentRepo) List(ctx context.Context, status *domain.ExtractionStatus, offset, limit int) ([]domain.ScanDocument, int, error) {
	where := ""
	args := []interface{}{}
	if status != nil {
		where = "WHERE extraction_status = $1"
		args = append(args, *status)
	}

	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM scan_documents "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("scanDocumentRepo.List count: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT * FROM scan_documents %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var docs []domain.ScanDocument
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("scanDocumentRepo.List: %w", err)
	}
	return docs, total, nil
}

func (r *scanDocumentRepo) ListByCitizen(ctx context.Context, citizenID uuid.UUID) ([]domain.ScanDocument, error) {
	var docs []domain.ScanDocument
	err := r.db.SelectContext(ctx, &docs,
		"SELECT * FROM scan_documents WHERE citizen_id = $1 ORDER BY created_at DESC",
		citizenID)
	if err != nil {
		return nil, fmt.Errorf("scanDocumentRepo.ListByCitizen: %w", err)
	}
	return docs, nil
}

func (r *scanDocumentRepo) UpdateExtraction(ctx context.Context, doc *domain.ScanDocument) error {
	doc.UpdatedAt = time.Now().UTC()

	query := `UPDATE scan_documents SET
		extraction_status = $1, extraction_error = $2, extracted_data = $3,
		model_used = $4, extracted_at = $5, updated_at = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		doc.ExtractionStatus, doc.ExtractionError, doc.ExtractedData,
		doc.ModelUsed, doc.ExtractedAt, doc.UpdatedAt, doc.ID)
	if err != nil {
		return fmt.Errorf("scanDocumentRepo.UpdateExtraction: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *scanDocumentRepo) UpdateReview(ctx context.Context, doc *domain.ScanDocument) error {
	doc.UpdatedAt = time.Now().UTC()

	query := `UPDATE scan_documents SET
		citizen_id = $1, corrected_data = $2, review_status = $3,
		reviewed_at = $4, reviewer_notes = $5, updated_at = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		doc.CitizenID, doc.CorrectedData, doc.ReviewStatus,
		doc.ReviewedAt, doc.ReviewerNotes, doc.UpdatedAt, doc.ID)
	if err != nil {
		return fmt.Errorf("scanDocumentRepo.UpdateReview: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetToPending requeues a document for extraction and clears the previous
// outcome.
func (r *scanDocumentRepo) ResetToPending(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE scan_documents SET
			extraction_status = $1, extraction_error = NULL,
			extracted_data = NULL, extracted_at = NULL, updated_at = $2
		 WHERE id = $3`,
		domain.ExtractionStatusPending, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("scanDocumentRepo.ResetToPending: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimPending flips up to limit pending documents to processing and returns
// them. FOR UPDATE SKIP LOCKED keeps concurrent workers from claiming the
// same document.
func (r *scanDocumentRepo) ClaimPending(ctx context.Context, limit int) ([]domain.ScanDocument, error) {
	query := `UPDATE scan_documents SET
			extraction_status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM scan_documents
			WHERE extraction_status = $3
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	var docs []domain.ScanDocument
	err := r.db.SelectContext(ctx, &docs, query,
		domain.ExtractionStatusProcessing, time.Now().UTC(),
		domain.ExtractionStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("scanDocumentRepo.ClaimPending: %w", err)
	}
	return docs, nil
}
