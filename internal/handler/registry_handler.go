package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ormd/internal/export"
	"ormd/internal/service"
)

// RegistryHandler handles citizen registry browsing and export endpoints.
type RegistryHandler struct {
	registryService service.RegistryService
	exportService   service.ExportService
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registryService service.RegistryService, exportService service.ExportService) *RegistryHandler {
	return &RegistryHandler{registryService: registryService, exportService: exportService}
}

// List handles GET /api/v1/citizens
// Supports an optional ?q= search over DNI, LM, and names.
func (h *RegistryHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var err error
	var citizens interface{}
	var total int
	if q := c.Query("q"); q != "" {
		citizens, total, err = h.registryService.SearchCitizens(c.Request.Context(), q, offset, limit)
	} else {
		citizens, total, err = h.registryService.ListCitizens(c.Request.Context(), offset, limit)
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, citizens, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/citizens/:id
// Returns the citizen together with their service record and scans.
func (h *RegistryHandler) GetByID(c *gin.Context) {
	citizenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid citizen ID")
		return
	}

	detail, err := h.registryService.GetCitizen(c.Request.Context(), citizenID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, detail)
}

// ExportCSV handles GET /api/v1/export/csv
func (h *RegistryHandler) ExportCSV(c *gin.Context) {
	filename := export.BuildFilename("registro_smv", "csv")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.exportService.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		log.Printf("registryHandler.ExportCSV: %v", err)
		c.Abort()
	}
}

// ExportXLSX handles GET /api/v1/export/xlsx
func (h *RegistryHandler) ExportXLSX(c *gin.Context) {
	filename := export.BuildFilename("registro_smv", "xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.exportService.ExportXLSX(c.Request.Context(), c.Writer); err != nil {
		log.Printf("registryHandler.ExportXLSX: %v", err)
		c.Abort()
	}
}
