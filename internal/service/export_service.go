package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ormd/internal/domain"
	"ormd/internal/export"
	"ormd/internal/port"
)

// exportPageSize bounds memory while walking the registry.
const exportPageSize = 500

// ExportService renders the full registry as a download.
type ExportService interface {
	ExportCSV(ctx context.Context, w io.Writer) error
	ExportXLSX(ctx context.Context, w io.Writer) error
}

type exportService struct {
	citizenRepo port.CitizenRepository
	serviceRepo port.ServiceRecordRepository
}

// NewExportService creates a new ExportService implementation.
func NewExportService(citizenRepo port.CitizenRepository, serviceRepo port.ServiceRecordRepository) ExportService {
	return &exportService{citizenRepo: citizenRepo, serviceRepo: serviceRepo}
}

func (s *exportService) ExportCSV(ctx context.Context, w io.Writer) error {
	if _, err := w.Write(export.BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := export.NewWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := s.walkRows(ctx, func(rows []export.Row) error {
		return cw.WriteRows(rows)
	}); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func (s *exportService) ExportXLSX(ctx context.Context, w io.Writer) error {
	var all []export.Row
	if err := s.walkRows(ctx, func(rows []export.Row) error {
		all = append(all, rows...)
		return nil
	}); err != nil {
		return err
	}
	return export.WriteXLSX(w, all)
}

// walkRows pages through the registry, pairing each citizen with their
// service record.
func (s *exportService) walkRows(ctx context.Context, fn func([]export.Row) error) error {
	offset := 0
	for {
		citizens, total, err := s.citizenRepo.List(ctx, offset, exportPageSize)
		if err != nil {
			return fmt.Errorf("listing citizens: %w", err)
		}

		rows := make([]export.Row, 0, len(citizens))
		for i := range citizens {
			rec, err := s.serviceRepo.GetByCitizen(ctx, citizens[i].ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("loading service record: %w", err)
			}
			rows = append(rows, export.Row{Citizen: citizens[i], Service: rec})
		}
		if err := fn(rows); err != nil {
			return err
		}

		offset += len(citizens)
		if offset >= total || len(citizens) == 0 {
			return nil
		}
	}
}
