package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padma-edu/timetable-api/internal/models"
	"github.com/padma-edu/timetable-api/internal/repository"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
)

type mockEntryRepo struct {
	items     map[string]*models.Entry
	nextID    int
	createErr error
	details   []models.EntryDetail
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{items: make(map[string]*models.Entry)}
}

func (m *mockEntryRepo) ListActiveBySlot(ctx context.Context, tenantID, timeSlotID, academicYearID string) ([]models.Entry, error) {
	var out []models.Entry
	for _, e := range m.items {
		if e.TenantID == tenantID && e.TimeSlotID == timeSlotID && e.AcademicYearID == academicYearID && e.Active {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEntryRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Entry, error) {
	if e, ok := m.items[id]; ok && e.TenantID == tenantID && e.DeletedAt == nil {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEntryRepo) Create(ctx context.Context, entry *models.Entry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	entry.ID = fmt.Sprintf("entry-%d", m.nextID)
	entry.Active = true
	entry.Version = 1
	cp := *entry
	m.items[entry.ID] = &cp
	return nil
}

func (m *mockEntryRepo) UpdateVersioned(ctx context.Context, entry *models.Entry, expectedVersion int) (bool, error) {
	current, ok := m.items[entry.ID]
	if !ok || current.TenantID != entry.TenantID || current.Version != expectedVersion {
		return false, nil
	}
	entry.Version = expectedVersion + 1
	cp := *entry
	m.items[entry.ID] = &cp
	return true, nil
}

func (m *mockEntryRepo) Retire(ctx context.Context, tenantID, id string) (bool, error) {
	e, ok := m.items[id]
	if !ok || e.TenantID != tenantID {
		return false, nil
	}
	now := time.Now()
	e.Active = false
	e.DeletedAt = &now
	return true, nil
}

func (m *mockEntryRepo) ListDetailsByClass(ctx context.Context, tenantID, classID, academicYearID string) ([]models.EntryDetail, error) {
	return m.details, nil
}

func (m *mockEntryRepo) ListDetailsByTeacher(ctx context.Context, tenantID, teacherID, academicYearID string) ([]models.EntryDetail, error) {
	return m.details, nil
}

func (m *mockEntryRepo) ListDetailsByRoom(ctx context.Context, tenantID, roomID, academicYearID string) ([]models.EntryDetail, error) {
	return m.details, nil
}

type mockSlotLookup struct {
	slots map[string]*models.TimeSlot
}

func (m *mockSlotLookup) FindByID(ctx context.Context, tenantID, id string) (*models.TimeSlot, error) {
	if s, ok := m.slots[id]; ok && s.TenantID == tenantID {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func knownSlots(tenantID string, ids ...string) *mockSlotLookup {
	lookup := &mockSlotLookup{slots: make(map[string]*models.TimeSlot)}
	for _, id := range ids {
		lookup.slots[id] = &models.TimeSlot{ID: id, TenantID: tenantID, DayOfWeek: models.Monday, StartTime: "08:00", EndTime: "09:00", Version: 1}
	}
	return lookup
}

func newEntryService(repo *mockEntryRepo, slots *mockSlotLookup) *EntryService {
	return NewEntryService(repo, slots, nil, nil, time.Minute, validator.New(), zap.NewNop())
}

func TestEntryServiceCreate(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	entry, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID:     "slot-1",
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		TeacherID:      strPtr("teacher-1"),
	})
	require.NoError(t, err)
	assert.True(t, entry.Active)
	assert.Equal(t, 1, entry.Version)
	assert.Equal(t, "tenant-1", entry.TenantID)
}

func TestEntryServiceCreateUnknownSlot(t *testing.T) {
	svc := newEntryService(newMockEntryRepo(), knownSlots("tenant-1"))

	_, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID:     "slot-missing",
		ClassID:        "class-a",
		AcademicYearID: "year-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEntryServiceCreateReportsAllConflicts(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	_, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID:     "slot-1",
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		RoomID:         strPtr("room-1"),
		TeacherID:      strPtr("teacher-1"),
	})
	require.NoError(t, err)

	// Same class, room, and teacher at the same slot and year: every
	// dimension must be reported at once.
	_, err = svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID:     "slot-1",
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		RoomID:         strPtr("room-1"),
		TeacherID:      strPtr("teacher-1"),
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErr.Code)

	var conflictErr *models.SchedulingConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Len(t, conflictErr.Conflicts, 3)
}

func TestEntryServiceCreateDifferentYearNoConflict(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	_, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-2",
	})
	require.NoError(t, err)
}

func TestEntryServiceCreateMapsUniqueViolation(t *testing.T) {
	repo := newMockEntryRepo()
	repo.createErr = repository.ErrUniqueViolation
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	_, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestEntryServiceUpdateExcludesSelf(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	entry, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID:     "slot-1",
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		TeacherID:      strPtr("teacher-1"),
	})
	require.NoError(t, err)

	// Changing only the room keeps the entry on its own slot, which must
	// not conflict with itself.
	updated, err := svc.Update(context.Background(), "tenant-1", entry.ID, UpdateEntryRequest{
		Version: entry.Version,
		RoomID:  strPtr("room-9"),
	})
	require.NoError(t, err)
	assert.Equal(t, "room-9", *updated.RoomID)
	assert.Equal(t, entry.Version+1, updated.Version)
}

func TestEntryServiceUpdateNilFieldsKeepValues(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	entry, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
		RoomID: strPtr("room-1"), TeacherID: strPtr("teacher-1"),
	})
	require.NoError(t, err)

	// Only the subject is supplied; every omitted optional field stays as
	// stored. Clearing one requires retiring and recreating the entry.
	updated, err := svc.Update(context.Background(), "tenant-1", entry.ID, UpdateEntryRequest{
		Version:   entry.Version,
		SubjectID: strPtr("subject-1"),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.RoomID)
	assert.Equal(t, "room-1", *updated.RoomID)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, "teacher-1", *updated.TeacherID)
	require.NotNil(t, updated.SubjectID)
	assert.Equal(t, "subject-1", *updated.SubjectID)
	assert.Equal(t, entry.Version+1, updated.Version)
}

func TestEntryServiceUpdateStaleVersion(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	entry, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "tenant-1", entry.ID, UpdateEntryRequest{
		Version: entry.Version + 5,
		RoomID:  strPtr("room-1"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrVersionMismatch.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 412, appErrors.FromError(err).Status)

	// The losing write must leave the row untouched.
	stored := repo.items[entry.ID]
	require.NotNil(t, stored)
	assert.Equal(t, entry.Version, stored.Version)
	assert.Nil(t, stored.RoomID)
	assert.Equal(t, "slot-1", stored.TimeSlotID)
	assert.True(t, stored.Active)
}

func TestEntryServiceUpdateIntoOccupiedSlot(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1", "slot-2"))

	_, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-2", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.NoError(t, err)

	entry, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "tenant-1", entry.ID, UpdateEntryRequest{
		Version:    entry.Version,
		TimeSlotID: strPtr("slot-2"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSchedulingConflict.Code, appErrors.FromError(err).Code)
}

func TestEntryServiceUpdateMissingEntry(t *testing.T) {
	svc := newEntryService(newMockEntryRepo(), knownSlots("tenant-1", "slot-1"))

	_, err := svc.Update(context.Background(), "tenant-1", "nope", UpdateEntryRequest{Version: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEntryServiceDeleteFreesSlot(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	entry, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), "tenant-1", entry.ID))

	// The slot is free again for the same class.
	_, err = svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.NoError(t, err)
}

func TestEntryServiceDeleteMissing(t *testing.T) {
	svc := newEntryService(newMockEntryRepo(), knownSlots("tenant-1"))

	err := svc.Delete(context.Background(), "tenant-1", "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEntryServiceTenantIsolation(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1"))

	entry, err := svc.Create(context.Background(), "tenant-1", CreateEntryRequest{
		TimeSlotID: "slot-1", ClassID: "class-a", AcademicYearID: "year-1",
	})
	require.NoError(t, err)

	// Another tenant can neither see nor delete the entry.
	err = svc.Delete(context.Background(), "tenant-2", entry.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEntryServiceBulkImportPartialFailure(t *testing.T) {
	repo := newMockEntryRepo()
	svc := newEntryService(repo, knownSlots("tenant-1", "slot-1", "slot-2", "slot-3", "slot-4", "slot-5"))

	items := []CreateEntryRequest{
		{TimeSlotID: "slot-1", ClassID: "class-a"},
		{TimeSlotID: "slot-2", ClassID: "class-a"},
		{TimeSlotID: "slot-3", ClassID: "class-a"},
		{TimeSlotID: "slot-1", ClassID: "class-a"}, // duplicates row 0
		{TimeSlotID: "slot-4", ClassID: "class-a"},
		{TimeSlotID: "slot-9", ClassID: "class-a"}, // unknown slot
		{TimeSlotID: "slot-5", ClassID: "class-a"},
	}

	result, err := svc.BulkImport(context.Background(), "tenant-1", "year-1", items)
	require.NoError(t, err)
	assert.Len(t, result.Success, 5)
	require.Len(t, result.Errors, 2)

	assert.Equal(t, 3, result.Errors[0].Index)
	assert.NotEmpty(t, result.Errors[0].Conflicts)
	assert.Equal(t, 5, result.Errors[1].Index)
	assert.Empty(t, result.Errors[1].Conflicts)

	// Rows after a failure were still imported.
	assert.Len(t, repo.items, 5)
}

func TestEntryServiceBulkImportEmpty(t *testing.T) {
	svc := newEntryService(newMockEntryRepo(), knownSlots("tenant-1"))

	_, err := svc.BulkImport(context.Background(), "tenant-1", "year-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEntryServiceTimetableGroupsByDay(t *testing.T) {
	repo := newMockEntryRepo()
	repo.details = []models.EntryDetail{
		{Day: models.Wednesday, StartTime: "10:00", EndTime: "11:00", ClassName: "10A"},
		{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassName: "10A"},
		{Day: models.Monday, StartTime: "09:00", EndTime: "10:00", ClassName: "10A"},
	}
	svc := newEntryService(repo, knownSlots("tenant-1"))

	timetable, err := svc.TimetableByClass(context.Background(), "tenant-1", "class-a", "year-1")
	require.NoError(t, err)
	assert.Len(t, timetable.Monday, 2)
	assert.Len(t, timetable.Wednesday, 1)
	assert.Empty(t, timetable.Friday)
}
