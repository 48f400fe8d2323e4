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

type availabilityService interface {
	Get(ctx context.Context, tenantID, teacherID string) ([]models.TeacherAvailability, error)
	Set(ctx context.Context, tenantID, teacherID string, req service.SetAvailabilityRequest) error
	AvailableTeachers(ctx context.Context, tenantID, timeSlotID, academicYearID string) ([]models.Teacher, error)
}

// AvailabilityHandler manages teacher availability endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Get godoc
// @Summary Get teacher availability
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Set godoc
// @Summary Replace teacher availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.SetAvailabilityRequest true "Availability payload"
// @Success 204
// @Router /teachers/{id}/availability [put]
func (h *AvailabilityHandler) Set(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.Set(c.Request.Context(), tenantID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableTeachers godoc
// @Summary List teachers available for a slot
// @Tags Availability
// @Produce json
// @Param id path string true "Time slot ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id}/available-teachers [get]
func (h *AvailabilityHandler) AvailableTeachers(c *gin.Context) {
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
	teachers, err := h.service.AvailableTeachers(c.Request.Context(), tenantID, c.Param("id"), academicYearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}
