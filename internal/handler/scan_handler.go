package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ormd/internal/domain"
	"ormd/internal/service"
	"ormd/internal/smv"
	"ormd/internal/validator"
)

// ScanHandler handles scan upload, extraction, and review endpoints.
type ScanHandler struct {
	digitizeService service.DigitizeService
	engine          *validator.Engine
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(digitizeService service.DigitizeService, engine *validator.Engine) *ScanHandler {
	return &ScanHandler{digitizeService: digitizeService, engine: engine}
}

// Upload handles POST /api/v1/scans
// Accepts a multipart form with a "file" field (PDF, JPG, or PNG) and
// registers a pending document. Extraction runs asynchronously.
func (h *ScanHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.digitizeService.Upload(c.Request.Context(), service.ScanUploadInput{
		File:   file,
		Header: header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, doc)
}

// List handles GET /api/v1/scans
// Supports an optional ?status= filter (pending, processing, completed, failed).
func (h *ScanHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var status *domain.ExtractionStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.ExtractionStatus(raw)
		switch s {
		case domain.ExtractionStatusPending, domain.ExtractionStatusProcessing,
			domain.ExtractionStatusCompleted, domain.ExtractionStatusFailed:
			status = &s
		default:
			RespondError(c, http.StatusBadRequest, "INVALID_STATUS",
				"status must be one of: pending, processing, completed, failed")
			return
		}
	}

	docs, total, err := h.digitizeService.ListDocuments(c.Request.Context(), status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, docs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/scans/:id
// The response carries a validation report over the extracted (or, once
// reviewed, the corrected) record so the frontend can flag suspect fields.
func (h *ScanHandler) GetByID(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid scan document ID")
		return
	}

	doc, err := h.digitizeService.GetDocument(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"document":   doc,
		"validation": h.validationReport(doc),
	})
}

// validationReport runs the rule engine over the document's current record.
// Documents without an extracted record yet get no report.
func (h *ScanHandler) validationReport(doc *domain.ScanDocument) *validator.Report {
	data := doc.CorrectedData
	if len(data) == 0 {
		data = doc.ExtractedData
	}
	if len(data) == 0 {
		return nil
	}
	rec, err := smv.FromJSON(data)
	if err != nil {
		return nil
	}
	return h.engine.Validate(rec)
}

// GetViewURL handles GET /api/v1/scans/:id/url
// Returns a presigned URL so the review frontend can show the original scan.
func (h *ScanHandler) GetViewURL(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid scan document ID")
		return
	}

	url, err := h.digitizeService.GetScanURL(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"url": url})
}

// Retry handles POST /api/v1/scans/:id/retry
// Requeues a failed or completed document for a fresh extraction.
func (h *ScanHandler) Retry(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid scan document ID")
		return
	}

	if err := h.digitizeService.RetryExtraction(c.Request.Context(), docID); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "extraction requeued"})
}

// reviewRequest is the JSON body for the review endpoint. Fields carries the
// operator-corrected raw values keyed by canonical field name.
type reviewRequest struct {
	Fields map[string]any `json:"fields" binding:"required"`
	Notes  string         `json:"notes"`
}

// Review handles POST /api/v1/scans/:id/review
// Persists the operator's corrections into the registry and marks the
// document validated.
func (h *ScanHandler) Review(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid scan document ID")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "fields object is required")
		return
	}

	doc, err := h.digitizeService.SaveReview(c.Request.Context(), service.ReviewInput{
		DocumentID: docID,
		Fields:     req.Fields,
		Notes:      req.Notes,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, doc)
}
