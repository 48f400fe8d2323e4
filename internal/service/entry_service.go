package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/padma-edu/timetable-api/internal/models"
	"github.com/padma-edu/timetable-api/internal/repository"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
)

type entryRepository interface {
	ListActiveBySlot(ctx context.Context, tenantID, timeSlotID, academicYearID string) ([]models.Entry, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Entry, error)
	Create(ctx context.Context, entry *models.Entry) error
	UpdateVersioned(ctx context.Context, entry *models.Entry, expectedVersion int) (bool, error)
	Retire(ctx context.Context, tenantID, id string) (bool, error)
	ListDetailsByClass(ctx context.Context, tenantID, classID, academicYearID string) ([]models.EntryDetail, error)
	ListDetailsByTeacher(ctx context.Context, tenantID, teacherID, academicYearID string) ([]models.EntryDetail, error)
	ListDetailsByRoom(ctx context.Context, tenantID, roomID, academicYearID string) ([]models.EntryDetail, error)
}

type slotLookup interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.TimeSlot, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type schedulingRecorder interface {
	ObserveConflict(dimension string)
	ObserveBulkImportRow(outcome string)
}

// CreateEntryRequest proposes one assignment for a slot and academic year.
type CreateEntryRequest struct {
	TimeSlotID     string  `json:"time_slot_id" validate:"required"`
	ClassID        string  `json:"class_id" validate:"required"`
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	RoomID         *string `json:"room_id"`
	SubjectID      *string `json:"subject_id"`
	TeacherID      *string `json:"teacher_id"`
}

// UpdateEntryRequest changes an entry under optimistic concurrency. Nil
// fields keep current values, so an update cannot clear an optional room,
// subject, or teacher back to unset; retire the entry and create a
// replacement instead.
type UpdateEntryRequest struct {
	Version        int     `json:"version" validate:"required,min=1"`
	TimeSlotID     *string `json:"time_slot_id"`
	ClassID        *string `json:"class_id"`
	AcademicYearID *string `json:"academic_year_id"`
	RoomID         *string `json:"room_id"`
	SubjectID      *string `json:"subject_id"`
	TeacherID      *string `json:"teacher_id"`
}

// BulkImportError reports one rejected row alongside its conflict detail.
type BulkImportError struct {
	Index     int                    `json:"index"`
	Input     CreateEntryRequest     `json:"input"`
	Message   string                 `json:"message"`
	Conflicts []models.EntryConflict `json:"conflicts,omitempty"`
}

// BulkImportResult accumulates independent per-row outcomes.
type BulkImportResult struct {
	Success []models.Entry    `json:"success"`
	Errors  []BulkImportError `json:"errors"`
}

// EntryService owns the lifecycle of timetable entries. Every write runs the
// conflict pre-check first; the partial unique indexes in the store settle
// any race the pre-check cannot see.
type EntryService struct {
	repo      entryRepository
	slots     slotLookup
	cache     timetableCache
	metrics   schedulingRecorder
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEntryService instantiates EntryService. cache and metrics may be nil.
func NewEntryService(repo entryRepository, slots slotLookup, cache timetableCache, metrics schedulingRecorder, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *EntryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &EntryService{
		repo:      repo,
		slots:     slots,
		cache:     cache,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// Create inserts a new active entry after the conflict pre-check. A
// non-empty conflict set rejects the proposal without writing anything.
func (s *EntryService) Create(ctx context.Context, tenantID string, req CreateEntryRequest) (*models.Entry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}

	if _, err := s.slots.FindByID(ctx, tenantID, req.TimeSlotID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}

	candidate := EntryCandidate{
		TimeSlotID:     req.TimeSlotID,
		AcademicYearID: req.AcademicYearID,
		ClassID:        req.ClassID,
		RoomID:         req.RoomID,
		TeacherID:      req.TeacherID,
	}
	if err := s.ensureNoConflict(ctx, tenantID, candidate, ""); err != nil {
		return nil, err
	}

	entry := models.Entry{
		TenantID:       tenantID,
		TimeSlotID:     req.TimeSlotID,
		RoomID:         req.RoomID,
		ClassID:        req.ClassID,
		SubjectID:      req.SubjectID,
		TeacherID:      req.TeacherID,
		AcademicYearID: req.AcademicYearID,
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			// A concurrent writer slipped in between the pre-check and the
			// insert; the unique index caught it.
			return nil, s.conflictError(nil, "entry collides with a concurrently created assignment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create entry")
	}

	s.invalidateTimetables(ctx, tenantID, entry.AcademicYearID)
	return &entry, nil
}

// Update merges the supplied fields over the current row, re-runs the
// conflict check excluding the entry itself, and performs the conditional
// versioned write.
func (s *EntryService) Update(ctx context.Context, tenantID, id string, req UpdateEntryRequest) (*models.Entry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}

	current, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}

	updated := *current
	if req.TimeSlotID != nil {
		updated.TimeSlotID = *req.TimeSlotID
	}
	if req.ClassID != nil {
		updated.ClassID = *req.ClassID
	}
	if req.AcademicYearID != nil {
		updated.AcademicYearID = *req.AcademicYearID
	}
	if req.RoomID != nil {
		updated.RoomID = req.RoomID
	}
	if req.SubjectID != nil {
		updated.SubjectID = req.SubjectID
	}
	if req.TeacherID != nil {
		updated.TeacherID = req.TeacherID
	}

	if updated.TimeSlotID != current.TimeSlotID {
		if _, err := s.slots.FindByID(ctx, tenantID, updated.TimeSlotID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
		}
	}

	candidate := EntryCandidate{
		TimeSlotID:     updated.TimeSlotID,
		AcademicYearID: updated.AcademicYearID,
		ClassID:        updated.ClassID,
		RoomID:         updated.RoomID,
		TeacherID:      updated.TeacherID,
	}
	if err := s.ensureNoConflict(ctx, tenantID, candidate, current.ID); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateVersioned(ctx, &updated, req.Version)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, s.conflictError(nil, "entry collides with a concurrently created assignment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update entry")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrVersionMismatch, "entry was modified concurrently, reload and retry")
	}

	s.invalidateTimetables(ctx, tenantID, current.AcademicYearID)
	if updated.AcademicYearID != current.AcademicYearID {
		s.invalidateTimetables(ctx, tenantID, updated.AcademicYearID)
	}
	return &updated, nil
}

// Delete retires the entry (soft delete). Retired is terminal; the row stays
// for audit history.
func (s *EntryService) Delete(ctx context.Context, tenantID, id string) error {
	current, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}

	if _, err := s.repo.Retire(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete entry")
	}

	s.invalidateTimetables(ctx, tenantID, current.AcademicYearID)
	return nil
}

// TimetableByClass returns the class's weekly timetable grouped Monday..Sunday.
func (s *EntryService) TimetableByClass(ctx context.Context, tenantID, classID, academicYearID string) (*models.WeeklyTimetable, error) {
	return s.timetable(ctx, tenantID, academicYearID, "class", classID, func() ([]models.EntryDetail, error) {
		return s.repo.ListDetailsByClass(ctx, tenantID, classID, academicYearID)
	})
}

// TimetableByTeacher returns the teacher's weekly timetable.
func (s *EntryService) TimetableByTeacher(ctx context.Context, tenantID, teacherID, academicYearID string) (*models.WeeklyTimetable, error) {
	return s.timetable(ctx, tenantID, academicYearID, "teacher", teacherID, func() ([]models.EntryDetail, error) {
		return s.repo.ListDetailsByTeacher(ctx, tenantID, teacherID, academicYearID)
	})
}

// TimetableByRoom returns the room's weekly timetable.
func (s *EntryService) TimetableByRoom(ctx context.Context, tenantID, roomID, academicYearID string) (*models.WeeklyTimetable, error) {
	return s.timetable(ctx, tenantID, academicYearID, "room", roomID, func() ([]models.EntryDetail, error) {
		return s.repo.ListDetailsByRoom(ctx, tenantID, roomID, academicYearID)
	})
}

// BulkImport drives Create over an ordered candidate list, sequentially and
// independently. There is deliberately no enclosing transaction: a failing
// row is reported next to the successes instead of rolling them back.
func (s *EntryService) BulkImport(ctx context.Context, tenantID, academicYearID string, items []CreateEntryRequest) (*BulkImportResult, error) {
	if len(items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bulk import requires at least one entry")
	}

	result := &BulkImportResult{Success: []models.Entry{}, Errors: []BulkImportError{}}
	for i, item := range items {
		item.AcademicYearID = academicYearID

		entry, err := s.Create(ctx, tenantID, item)
		if err != nil {
			importErr := BulkImportError{Index: i, Input: item, Message: appErrors.FromError(err).Message}
			var conflictErr *models.SchedulingConflictError
			if errors.As(err, &conflictErr) {
				importErr.Conflicts = conflictErr.Conflicts
			}
			result.Errors = append(result.Errors, importErr)
			if s.metrics != nil {
				s.metrics.ObserveBulkImportRow("rejected")
			}
			continue
		}
		result.Success = append(result.Success, *entry)
		if s.metrics != nil {
			s.metrics.ObserveBulkImportRow("created")
		}
	}

	s.logger.Info("bulk import finished",
		zap.String("tenant_id", tenantID),
		zap.String("academic_year_id", academicYearID),
		zap.Int("created", len(result.Success)),
		zap.Int("rejected", len(result.Errors)))
	return result, nil
}

func (s *EntryService) ensureNoConflict(ctx context.Context, tenantID string, candidate EntryCandidate, excludeEntryID string) error {
	existing, err := s.repo.ListActiveBySlot(ctx, tenantID, candidate.TimeSlotID, candidate.AcademicYearID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check entry conflicts")
	}

	conflicts := CheckConflicts(candidate, existing, excludeEntryID)
	if len(conflicts) == 0 {
		return nil
	}

	if s.metrics != nil {
		for _, conflict := range conflicts {
			s.metrics.ObserveConflict(string(conflict.Dimension))
		}
	}
	return s.conflictError(conflicts, fmt.Sprintf("%d scheduling conflict(s) detected", len(conflicts)))
}

func (s *EntryService) conflictError(conflicts []models.EntryConflict, message string) error {
	domainErr := &models.SchedulingConflictError{Message: message, Conflicts: conflicts}
	wrapped := appErrors.Wrap(domainErr, appErrors.ErrSchedulingConflict.Code, appErrors.ErrSchedulingConflict.Status, message)
	wrapped.Details = domainErr.Conflicts
	return wrapped
}

func (s *EntryService) timetable(ctx context.Context, tenantID, academicYearID, dimension, refID string, fetch func() ([]models.EntryDetail, error)) (*models.WeeklyTimetable, error) {
	key := repository.TimetableKey(tenantID, academicYearID, dimension, refID)
	if s.cache != nil {
		var cached models.WeeklyTimetable
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	details, err := fetch()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	timetable := &models.WeeklyTimetable{}
	for _, detail := range details {
		timetable.Add(detail)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, timetable, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return timetable, nil
}

func (s *EntryService) invalidateTimetables(ctx context.Context, tenantID, academicYearID string) {
	if s.cache == nil {
		return
	}
	pattern := repository.TimetablePattern(tenantID, academicYearID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
