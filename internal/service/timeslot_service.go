package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/padma-edu/timetable-api/internal/models"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
)

type timeSlotRepository interface {
	ListActive(ctx context.Context, tenantID string) ([]models.TimeSlot, error)
	ListActiveByDay(ctx context.Context, tenantID string, day models.DayOfWeek) ([]models.TimeSlot, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.TimeSlot, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
	UpdateVersioned(ctx context.Context, slot *models.TimeSlot, expectedVersion int) (bool, error)
	SoftDelete(ctx context.Context, tenantID, id string) (bool, error)
}

type slotUsageCounter interface {
	CountActiveBySlot(ctx context.Context, tenantID, timeSlotID string) (int, error)
}

// CreateTimeSlotRequest describes payload for creating a weekly slot.
type CreateTimeSlotRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Label     string `json:"label"`
}

// UpdateTimeSlotRequest updates an existing slot under optimistic
// concurrency. Nil fields keep current values.
type UpdateTimeSlotRequest struct {
	Version   int     `json:"version" validate:"required,min=1"`
	DayOfWeek *string `json:"day_of_week"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Label     *string `json:"label"`
}

// TimeSlotService owns the canonical recurring weekly slots for each tenant.
type TimeSlotService struct {
	repo      timeSlotRepository
	entries   slotUsageCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService instantiates TimeSlotService.
func NewTimeSlotService(repo timeSlotRepository, entries slotUsageCounter, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{repo: repo, entries: entries, validator: validate, logger: logger}
}

// List returns the tenant's active slots ordered by day and start time.
func (s *TimeSlotService) List(ctx context.Context, tenantID string) ([]models.TimeSlot, error) {
	slots, err := s.repo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}

// Create validates the interval and inserts a slot unless it overlaps an
// active slot on the same tenant weekday.
func (s *TimeSlotService) Create(ctx context.Context, tenantID string, req CreateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}

	day, err := models.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
	}
	start, end, err := normalizeInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot interval")
	}

	if err := s.ensureNoOverlap(ctx, tenantID, day, start, end, ""); err != nil {
		return nil, err
	}

	slot := models.TimeSlot{
		TenantID:  tenantID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		Label:     req.Label,
	}
	if err := s.repo.Create(ctx, &slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	return &slot, nil
}

// Update applies a versioned change. Reshaping the interval or moving the
// day is rejected while active entries reference the slot, since that would
// silently invalidate published assignments.
func (s *TimeSlotService) Update(ctx context.Context, tenantID, id string, req UpdateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}

	current, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}

	updated := *current
	if req.DayOfWeek != nil {
		day, perr := models.ParseDayOfWeek(*req.DayOfWeek)
		if perr != nil {
			return nil, appErrors.Wrap(perr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
		}
		updated.DayOfWeek = day
	}
	if req.StartTime != nil {
		updated.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		updated.EndTime = *req.EndTime
	}
	if req.Label != nil {
		updated.Label = *req.Label
	}

	start, end, err := normalizeInterval(updated.StartTime, updated.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot interval")
	}
	updated.StartTime = start
	updated.EndTime = end

	timeBoundsChanged := updated.DayOfWeek != current.DayOfWeek ||
		updated.StartTime != current.StartTime ||
		updated.EndTime != current.EndTime
	if timeBoundsChanged {
		count, cerr := s.entries.CountActiveBySlot(ctx, tenantID, id)
		if cerr != nil {
			return nil, appErrors.Wrap(cerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count slot usage")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrInUse, "cannot change time bounds while active entries reference the slot")
		}
		if err := s.ensureNoOverlap(ctx, tenantID, updated.DayOfWeek, updated.StartTime, updated.EndTime, id); err != nil {
			return nil, err
		}
	}

	ok, err := s.repo.UpdateVersioned(ctx, &updated, req.Version)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time slot")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrVersionMismatch, "time slot was modified concurrently, reload and retry")
	}
	return &updated, nil
}

// Delete soft-deletes the slot unless an active entry still references it.
func (s *TimeSlotService) Delete(ctx context.Context, tenantID, id string) error {
	count, err := s.entries.CountActiveBySlot(ctx, tenantID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count slot usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrInUse, "cannot delete a time slot referenced by active entries")
	}

	ok, err := s.repo.SoftDelete(ctx, tenantID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	return nil
}

func (s *TimeSlotService) ensureNoOverlap(ctx context.Context, tenantID string, day models.DayOfWeek, start, end, excludeID string) error {
	siblings, err := s.repo.ListActiveByDay(ctx, tenantID, day)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot overlap")
	}
	for _, sibling := range siblings {
		if sibling.ID == excludeID {
			continue
		}
		if sibling.Overlaps(start, end) {
			return appErrors.Clone(appErrors.ErrSlotOverlap,
				fmt.Sprintf("slot overlaps %s (%s %s-%s)", sibling.ID, sibling.DayOfWeek, sibling.StartTime, sibling.EndTime))
		}
	}
	return nil
}

// normalizeInterval parses HH:MM wall-clock bounds and requires start < end.
// Zero-padded output keeps lexicographic comparison chronological.
func normalizeInterval(start, end string) (string, string, error) {
	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return "", "", fmt.Errorf("invalid start time %q: %w", start, err)
	}
	endAt, err := time.Parse("15:04", end)
	if err != nil {
		return "", "", fmt.Errorf("invalid end time %q: %w", end, err)
	}
	if !startAt.Before(endAt) {
		return "", "", fmt.Errorf("start time %q must be before end time %q", start, end)
	}
	return startAt.Format("15:04"), endAt.Format("15:04"), nil
}
