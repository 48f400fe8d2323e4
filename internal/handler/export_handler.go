package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/padma-edu/timetable-api/internal/models"
	"github.com/padma-edu/timetable-api/internal/service"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
	"github.com/padma-edu/timetable-api/pkg/response"
)

type exportService interface {
	Request(ctx context.Context, tenantID string, req service.RequestExportRequest) (*models.TimetableExportJob, error)
	Get(ctx context.Context, tenantID, jobID string) (*service.ExportStatusResponse, error)
	Open(token string) (*os.File, error)
}

// ExportHandler manages timetable export endpoints.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Request a timetable export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.RequestExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /timetable-exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.RequestExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.service.Request(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Get godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /timetable-exports/{id} [get]
func (h *ExportHandler) Get(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /timetable-exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(file.Name()))
	c.File(file.Name())
}
