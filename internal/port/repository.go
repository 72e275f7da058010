package port

import (
	"context"

	"github.com/google/uuid"

	"ormd/internal/domain"
)

// CitizenRepository defines the contract for citizen persistence.
type CitizenRepository interface {
	Create(ctx context.Context, c *domain.Citizen) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Citizen, error)
	FindByIdentity(ctx context.Context, dni, lm *string) (*domain.Citizen, error)
	List(ctx context.Context, offset, limit int) ([]domain.Citizen, int, error)
	Search(ctx context.Context, query string, offset, limit int) ([]domain.Citizen, int, error)
	Update(ctx context.Context, c *domain.Citizen) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceRecordRepository defines the contract for service record persistence.
type ServiceRecordRepository interface {
	Upsert(ctx context.Context, rec *domain.ServiceRecord) error
	GetByCitizen(ctx context.Context, citizenID uuid.UUID) (*domain.ServiceRecord, error)
	DeleteByCitizen(ctx context.Context, citizenID uuid.UUID) error
}

// ScanDocumentRepository defines the contract for scan document persistence.
type ScanDocumentRepository interface {
	Create(ctx context.Context, doc *domain.ScanDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanDocument, error)
	List(ctx context.Context, status *domain.ExtractionStatus, offset, limit int) ([]domain.ScanDocument, int, error)
	ListByCitizen(ctx context.Context, citizenID uuid.UUID) ([]domain.ScanDocument, error)
	UpdateExtraction(ctx context.Context, doc *domain.ScanDocument) error
	UpdateReview(ctx context.Context, doc *domain.ScanDocument) error
	ResetToPending(ctx context.Context, id uuid.UUID) error
	// ClaimPending atomically flips up to limit pending documents to
	// processing and returns them. Concurrent workers never claim the
	// same document twice.
	ClaimPending(ctx context.Context, limit int) ([]domain.ScanDocument, error)
}
