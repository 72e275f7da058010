package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ormd/internal/config"
	"ormd/internal/domain"
	"ormd/internal/extract"
	"ormd/internal/port"
	"ormd/internal/smv"
)

// ScanUploadInput is the DTO for scan upload requests.
type ScanUploadInput struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// ReviewInput carries operator corrections for one document. Fields holds the
// corrected raw values keyed by canonical field name; they go through the
// normalizer again before anything is persisted.
type ReviewInput struct {
	DocumentID uuid.UUID
	Fields     map[string]any
	Notes      string
}

// DigitizeService is the scan lifecycle contract: upload, extraction,
// review, and retry.
type DigitizeService interface {
	Upload(ctx context.Context, input ScanUploadInput) (*domain.ScanDocument, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*domain.ScanDocument, error)
	ListDocuments(ctx context.Context, status *domain.ExtractionStatus, offset, limit int) ([]domain.ScanDocument, int, error)
	GetScanURL(ctx context.Context, id uuid.UUID) (string, error)
	ProcessDocument(ctx context.Context, doc *domain.ScanDocument)
	RetryExtraction(ctx context.Context, id uuid.UUID) error
	SaveReview(ctx context.Context, input ReviewInput) (*domain.ScanDocument, error)
}

type digitizeService struct {
	docRepo     port.ScanDocumentRepository
	citizenRepo port.CitizenRepository
	serviceRepo port.ServiceRecordRepository
	storage     port.ObjectStorage
	extractor   *extract.Extractor
	cfg         *config.S3Config
}

// NewDigitizeService creates a new DigitizeService implementation.
func NewDigitizeService(
	docRepo port.ScanDocumentRepository,
	citizenRepo port.CitizenRepository,
	serviceRepo port.ServiceRecordRepository,
	storage port.ObjectStorage,
	extractor *extract.Extractor,
	cfg *config.S3Config,
) DigitizeService {
	return &digitizeService{
		docRepo:     docRepo,
		citizenRepo: citizenRepo,
		serviceRepo: serviceRepo,
		storage:     storage,
		extractor:   extractor,
		cfg:         cfg,
	}
}

// Upload stores the scan in object storage and registers a pending document.
// Extraction itself happens later when the queue worker claims the document.
func (s *digitizeService) Upload(ctx context.Context, input ScanUploadInput) (*domain.ScanDocument, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Magic-byte check so a renamed file cannot sneak past the extension.
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	detectedType := http.DetectContentType(buf[:n])
	if _, validContent := domain.AllowedContentTypes[detectedType]; !validContent {
		return nil, domain.ErrUnsupportedFileType
	}
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	docID := uuid.New()
	s3Key := fmt.Sprintf("scans/%s/%s", docID, input.Header.Filename)
	contentType := domain.AllowedFileTypes[fileType]

	doc := &domain.ScanDocument{
		ID:               docID,
		FileName:         docID.String() + "." + ext,
		OriginalName:     input.Header.Filename,
		FileType:         fileType,
		FileSize:         input.Header.Size,
		S3Bucket:         s.cfg.Bucket,
		S3Key:            s3Key,
		ContentType:      contentType,
		ExtractionStatus: domain.ExtractionStatusPending,
		ReviewStatus:     domain.ReviewStatusPending,
	}

	log.Printf("digitizeService.Upload: uploading scan %s (%s, %d bytes)",
		input.Header.Filename, contentType, input.Header.Size)

	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         s3Key,
		Body:        input.File,
		ContentType: contentType,
		Size:        input.Header.Size,
	})
	if err != nil {
		log.Printf("digitizeService.Upload: S3 upload failed for scan %s: %v", docID, err)
		return nil, domain.ErrUploadFailed
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		log.Printf("digitizeService.Upload: failed to create scan document: %v", err)
		return nil, fmt.Errorf("creating scan document: %w", err)
	}

	return doc, nil
}

func (s *digitizeService) GetDocument(ctx context.Context, id uuid.UUID) (*domain.ScanDocument, error) {
	return s.docRepo.GetByID(ctx, id)
}

func (s *digitizeService) ListDocuments(ctx context.Context, status *domain.ExtractionStatus, offset, limit int) ([]domain.ScanDocument, int, error) {
	return s.docRepo.List(ctx, status, offset, limit)
}

func (s *digitizeService) GetScanURL(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, doc.S3Bucket, doc.S3Key, s.cfg.PresignExpiry)
}

// ProcessDocument runs the extraction pipeline for a claimed document and
// stores the outcome. Tagged extraction errors land on the document as a
// failed status; they are never propagated.
func (s *digitizeService) ProcessDocument(ctx context.Context, doc *domain.ScanDocument) {
	data, err := s.storage.Download(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		log.Printf("digitizeService.ProcessDocument: download failed for %s: %v", doc.ID, err)
		s.storeFailure(ctx, doc, fmt.Sprintf("no se pudo descargar el archivo: %v", err), "")
		return
	}

	result, err := s.extractor.ExtractBytes(ctx, data, doc.ContentType)
	if err != nil {
		log.Printf("digitizeService.ProcessDocument: extraction setup failed for %s: %v", doc.ID, err)
		s.storeFailure(ctx, doc, err.Error(), "")
		return
	}

	if result.Failed() {
		log.Printf("digitizeService.ProcessDocument: extraction failed for %s: %s", doc.ID, result.Err.Error())
		errJSON, _ := json.Marshal(result.Err)
		s.storeFailure(ctx, doc, string(errJSON), result.ModelUsed)
		return
	}

	now := time.Now().UTC()
	doc.ExtractionStatus = domain.ExtractionStatusCompleted
	doc.ExtractionError = nil
	doc.ExtractedData = result.Record.JSON()
	doc.ModelUsed = result.ModelUsed
	doc.ExtractedAt = &now

	if err := s.docRepo.UpdateExtraction(ctx, doc); err != nil {
		log.Printf("digitizeService.ProcessDocument: failed to store extraction for %s: %v", doc.ID, err)
		return
	}
	log.Printf("digitizeService.ProcessDocument: document %s extracted", doc.ID)
}

func (s *digitizeService) storeFailure(ctx context.Context, doc *domain.ScanDocument, msg, model string) {
	doc.ExtractionStatus = domain.ExtractionStatusFailed
	doc.ExtractionError = &msg
	doc.ModelUsed = model
	if err := s.docRepo.UpdateExtraction(ctx, doc); err != nil {
		log.Printf("digitizeService.storeFailure: failed to store failure for %s: %v", doc.ID, err)
	}
}

// RetryExtraction requeues a document that is not currently processing.
func (s *digitizeService) RetryExtraction(ctx context.Context, id uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.ExtractionStatus == domain.ExtractionStatusProcessing {
		return domain.ErrAlreadyProcessing
	}
	return s.docRepo.ResetToPending(ctx, id)
}

// SaveReview renormalizes the operator's corrected fields and persists the
// result: citizen upserted by identity number, service record replaced, and
// the document marked validated with the corrected payload attached.
func (s *digitizeService) SaveReview(ctx context.Context, input ReviewInput) (*domain.ScanDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.ExtractionStatus != domain.ExtractionStatusCompleted &&
		doc.ExtractionStatus != domain.ExtractionStatusFailed {
		return nil, domain.ErrNotExtracted
	}

	rec := smv.Normalize(input.Fields)
	if rec.DNI == nil && rec.LM == nil {
		return nil, domain.ErrMissingIdentity
	}

	citizen, err := s.upsertCitizen(ctx, rec)
	if err != nil {
		return nil, err
	}

	if err := s.serviceRepo.Upsert(ctx, &domain.ServiceRecord{
		ID:             uuid.New(),
		CitizenID:      citizen.ID,
		PrestoServicio: rec.PrestoServicio,
		GranUnidad:     rec.GranUnidad,
		UnidadAlta:     rec.UnidadAlta,
		UnidadBaja:     rec.UnidadBaja,
		FechaAlta:      rec.FechaAlta,
		FechaBaja:      rec.FechaBaja,
		Grado:          rec.Grado,
		MotivoBaja:     rec.MotivoBaja,
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc.CitizenID = &citizen.ID
	doc.CorrectedData = rec.JSON()
	doc.ReviewStatus = domain.ReviewStatusValidated
	doc.ReviewedAt = &now
	doc.ReviewerNotes = input.Notes

	if err := s.docRepo.UpdateReview(ctx, doc); err != nil {
		return nil, err
	}

	log.Printf("digitizeService.SaveReview: document %s validated, citizen %s", doc.ID, citizen.ID)
	return doc, nil
}

func (s *digitizeService) upsertCitizen(ctx context.Context, rec *smv.Record) (*domain.Citizen, error) {
	citizen, err := s.citizenRepo.FindByIdentity(ctx, rec.DNI, rec.LM)
	if err != nil {
		if err != domain.ErrNotFound {
			return nil, err
		}
		citizen = &domain.Citizen{ID: uuid.New()}
		applyRecordToCitizen(citizen, rec)
		if err := s.citizenRepo.Create(ctx, citizen); err != nil {
			return nil, err
		}
		return citizen, nil
	}

	applyRecordToCitizen(citizen, rec)
	if err := s.citizenRepo.Update(ctx, citizen); err != nil {
		return nil, err
	}
	return citizen, nil
}

func applyRecordToCitizen(c *domain.Citizen, rec *smv.Record) {
	c.DNI = rec.DNI
	c.LM = rec.LM
	c.OR = rec.OR
	c.Clase = rec.Clase
	c.Libro = rec.Libro
	c.Folio = rec.Folio
	c.Apellidos = rec.Apellidos
	c.Nombres = rec.Nombres
	c.FechaNacimiento = rec.FechaNacimiento
}
