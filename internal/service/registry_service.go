package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ormd/internal/domain"
	"ormd/internal/port"
)

// CitizenDetail bundles a citizen with their service record and scans.
type CitizenDetail struct {
	Citizen   *domain.Citizen       `json:"citizen"`
	Service   *domain.ServiceRecord `json:"service"`
	Documents []domain.ScanDocument `json:"documents"`
}

// RegistryService exposes the digitized registry for browsing and search.
type RegistryService interface {
	ListCitizens(ctx context.Context, offset, limit int) ([]domain.Citizen, int, error)
	SearchCitizens(ctx context.Context, query string, offset, limit int) ([]domain.Citizen, int, error)
	GetCitizen(ctx context.Context, id uuid.UUID) (*CitizenDetail, error)
}

type registryService struct {
	citizenRepo port.CitizenRepository
	serviceRepo port.ServiceRecordRepository
	docRepo     port.ScanDocumentRepository
}

// NewRegistryService creates a new RegistryService implementation.
func NewRegistryService(
	citizenRepo port.CitizenRepository,
	serviceRepo port.ServiceRecordRepository,
	docRepo port.ScanDocumentRepository,
) RegistryService {
	return &registryService{
		citizenRepo: citizenRepo,
		serviceRepo: serviceRepo,
		docRepo:     docRepo,
	}
}

func (s *registryService) ListCitizens(ctx context.Context, offset, limit int) ([]domain.Citizen, int, error) {
	return s.citizenRepo.List(ctx, offset, limit)
}

func (s *registryService) SearchCitizens(ctx context.Context, query string, offset, limit int) ([]domain.Citizen, int, error) {
	return s.citizenRepo.Search(ctx, query, offset, limit)
}

func (s *registryService) GetCitizen(ctx context.Context, id uuid.UUID) (*CitizenDetail, error) {
	citizen, err := s.citizenRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := s.serviceRepo.GetByCitizen(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	docs, err := s.docRepo.ListByCitizen(ctx, id)
	if err != nil {
		return nil, err
	}

	return &CitizenDetail{Citizen: citizen, Service: rec, Documents: docs}, nil
}
