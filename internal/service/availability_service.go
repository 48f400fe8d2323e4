package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/padma-edu/timetable-api/internal/models"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
)

type availabilityRepository interface {
	ListByTeacher(ctx context.Context, tenantID, teacherID string) ([]models.TeacherAvailability, error)
	ReplaceForTeacher(ctx context.Context, tenantID, teacherID string, records []models.TeacherAvailability) error
	FindTeacher(ctx context.Context, tenantID, teacherID string) (*models.Teacher, error)
	AvailableTeachers(ctx context.Context, tenantID, timeSlotID, academicYearID string) ([]models.Teacher, error)
}

// AvailabilitySlotInput marks one slot as allowed or denied for a teacher.
type AvailabilitySlotInput struct {
	TimeSlotID string `json:"time_slot_id" validate:"required"`
	Available  bool   `json:"available"`
}

// SetAvailabilityRequest replaces a teacher's full availability set.
type SetAvailabilityRequest struct {
	Slots []AvailabilitySlotInput `json:"slots" validate:"dive"`
}

// AvailabilityService manages per-teacher slot preferences and the
// available-teacher suggestion used when building a proposal.
type AvailabilityService struct {
	repo      availabilityRepository
	slots     slotLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService builds the service.
func NewAvailabilityService(repo availabilityRepository, slots slotLookup, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, slots: slots, validator: validate, logger: logger}
}

// Get returns a teacher's stored availability records.
func (s *AvailabilityService) Get(ctx context.Context, tenantID, teacherID string) ([]models.TeacherAvailability, error) {
	if err := s.ensureTeacher(ctx, tenantID, teacherID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByTeacher(ctx, tenantID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return records, nil
}

// Set replaces the teacher's availability set as one operation, so a slot
// dropped from a resubmission cannot leave a stale record behind. An empty
// slot list restores the default-available policy.
func (s *AvailabilityService) Set(ctx context.Context, tenantID, teacherID string, req SetAvailabilityRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := s.ensureTeacher(ctx, tenantID, teacherID); err != nil {
		return err
	}

	for _, slot := range req.Slots {
		if _, err := s.slots.FindByID(ctx, tenantID, slot.TimeSlotID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "time slot not found: "+slot.TimeSlotID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
		}
	}

	records := make([]models.TeacherAvailability, 0, len(req.Slots))
	for _, slot := range req.Slots {
		records = append(records, models.TeacherAvailability{
			TimeSlotID: slot.TimeSlotID,
			Available:  slot.Available,
		})
	}

	if err := s.repo.ReplaceForTeacher(ctx, tenantID, teacherID, records); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set availability")
	}
	return nil
}

// AvailableTeachers lists teachers that can take the slot in the given year:
// explicit opt-ins and teachers without any record (default-available),
// minus anyone already booked at that slot+year.
func (s *AvailabilityService) AvailableTeachers(ctx context.Context, tenantID, timeSlotID, academicYearID string) ([]models.Teacher, error) {
	if _, err := s.slots.FindByID(ctx, tenantID, timeSlotID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}

	teachers, err := s.repo.AvailableTeachers(ctx, tenantID, timeSlotID, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available teachers")
	}
	return teachers, nil
}

func (s *AvailabilityService) ensureTeacher(ctx context.Context, tenantID, teacherID string) error {
	if _, err := s.repo.FindTeacher(ctx, tenantID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}
