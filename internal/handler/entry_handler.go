package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/padma-edu/timetable-api/internal/models"
	"github.com/padma-edu/timetable-api/internal/service"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
	"github.com/padma-edu/timetable-api/pkg/response"
)

type entryService interface {
	Create(ctx context.Context, tenantID string, req service.CreateEntryRequest) (*models.Entry, error)
	Update(ctx context.Context, tenantID, id string, req service.UpdateEntryRequest) (*models.Entry, error)
	Delete(ctx context.Context, tenantID, id string) error
	BulkImport(ctx context.Context, tenantID, academicYearID string, items []service.CreateEntryRequest) (*service.BulkImportResult, error)
	TimetableByClass(ctx context.Context, tenantID, classID, academicYearID string) (*models.WeeklyTimetable, error)
	TimetableByTeacher(ctx context.Context, tenantID, teacherID, academicYearID string) (*models.WeeklyTimetable, error)
	TimetableByRoom(ctx context.Context, tenantID, roomID, academicYearID string) (*models.WeeklyTimetable, error)
}

// EntryHandler manages timetable entry endpoints.
type EntryHandler struct {
	service entryService
}

// NewEntryHandler constructs handler.
func NewEntryHandler(svc entryService) *EntryHandler {
	return &EntryHandler{service: svc}
}

// BulkImportRequest wraps the ordered candidate list for one academic year.
type BulkImportRequest struct {
	AcademicYearID string                       `json:"academic_year_id" binding:"required"`
	Entries        []service.CreateEntryRequest `json:"entries" binding:"required"`
}

// Create godoc
// @Summary Create timetable entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body service.CreateEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update timetable entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.UpdateEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /entries/{id} [put]
func (h *EntryHandler) Update(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Retire timetable entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204
// @Router /entries/{id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkImport godoc
// @Summary Bulk import timetable entries
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body BulkImportRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /entries/bulk [post]
func (h *EntryHandler) BulkImport(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.BulkImport(c.Request.Context(), tenantID, req.AcademicYearID, req.Entries)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// TimetableByClass godoc
// @Summary Weekly timetable for a class
// @Tags Entries
// @Produce json
// @Param id path string true "Class ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable [get]
func (h *EntryHandler) TimetableByClass(c *gin.Context) {
	h.timetable(c, h.service.TimetableByClass)
}

// TimetableByTeacher godoc
// @Summary Weekly timetable for a teacher
// @Tags Entries
// @Produce json
// @Param id path string true "Teacher ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *EntryHandler) TimetableByTeacher(c *gin.Context) {
	h.timetable(c, h.service.TimetableByTeacher)
}

// TimetableByRoom godoc
// @Summary Weekly timetable for a room
// @Tags Entries
// @Produce json
// @Param id path string true "Room ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/timetable [get]
func (h *EntryHandler) TimetableByRoom(c *gin.Context) {
	h.timetable(c, h.service.TimetableByRoom)
}

func (h *EntryHandler) timetable(c *gin.Context, load func(ctx context.Context, tenantID, refID, academicYearID string) (*models.WeeklyTimetable, error)) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	academicYearID := c.Query("academicYearId")
	if academicYearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academicYearId is required"))
		return
	}
	timetable, err := load(c.Request.Context(), tenantID, c.Param("id"), academicYearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}
