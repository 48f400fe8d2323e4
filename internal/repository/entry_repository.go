package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/padma-edu/timetable-api/internal/models"
)

// ErrUniqueViolation is returned when an insert or update loses the race
// against the partial unique indexes guarding active entries. The
// application-level conflict check is only a pre-check; these indexes are
// the actual double-booking guarantee.
var ErrUniqueViolation = errors.New("active entry uniqueness violated")

const pqUniqueViolation = "23505"

const entryColumns = "id, tenant_id, time_slot_id, room_id, class_id, subject_id, teacher_id, academic_year_id, active, version, created_at, updated_at, deleted_at"

const entryDetailSelect = `SELECT e.id, e.tenant_id, e.time_slot_id, e.room_id, e.class_id, e.subject_id, e.teacher_id,
	e.academic_year_id, e.active, e.version, e.created_at, e.updated_at, e.deleted_at,
	ts.day_of_week, ts.start_time, ts.end_time, ts.label AS slot_label,
	c.name AS class_name, s.name AS subject_name, t.full_name AS teacher_name, r.name AS room_name
FROM entries e
JOIN time_slots ts ON ts.id = e.time_slot_id
JOIN classes c ON c.id = e.class_id
LEFT JOIN subjects s ON s.id = e.subject_id
LEFT JOIN teachers t ON t.id = e.teacher_id
LEFT JOIN rooms r ON r.id = e.room_id`

// EntryRepository owns persistence for timetable entries.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// ListActiveBySlot returns the active entries occupying a slot within one
// academic year, the input set for conflict checking.
func (r *EntryRepository) ListActiveBySlot(ctx context.Context, tenantID, timeSlotID, academicYearID string) ([]models.Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM entries WHERE tenant_id = $1 AND time_slot_id = $2 AND academic_year_id = $3 AND active AND deleted_at IS NULL", entryColumns)
	var entries []models.Entry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, timeSlotID, academicYearID); err != nil {
		return nil, fmt.Errorf("list active entries by slot: %w", err)
	}
	return entries, nil
}

// FindByID loads a non-deleted entry by id within the tenant.
func (r *EntryRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM entries WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL", entryColumns)
	var entry models.Entry
	if err := r.db.GetContext(ctx, &entry, query, tenantID, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountActiveBySlot counts active entries referencing a slot across all
// academic years; used to block slot reshaping and deletion while in use.
func (r *EntryRepository) CountActiveBySlot(ctx context.Context, tenantID, timeSlotID string) (int, error) {
	const query = `SELECT COUNT(*) FROM entries WHERE tenant_id = $1 AND time_slot_id = $2 AND active AND deleted_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, timeSlotID); err != nil {
		return 0, fmt.Errorf("count active entries by slot: %w", err)
	}
	return count, nil
}

// Create inserts a new active entry with version 1.
func (r *EntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.Active = true
	entry.Version = 1
	entry.CreatedAt = now
	entry.UpdatedAt = now

	const query = `INSERT INTO entries (id, tenant_id, time_slot_id, room_id, class_id, subject_id, teacher_id, academic_year_id, active, version, created_at, updated_at)
		VALUES (:id, :tenant_id, :time_slot_id, :room_id, :class_id, :subject_id, :teacher_id, :academic_year_id, :active, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

// UpdateVersioned performs the optimistic-concurrency write keyed on id and
// version. False means zero rows matched: either the row is gone or a
// concurrent writer advanced the version first; callers treat both the same.
func (r *EntryRepository) UpdateVersioned(ctx context.Context, entry *models.Entry, expectedVersion int) (bool, error) {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE entries
		SET time_slot_id = $1, room_id = $2, class_id = $3, subject_id = $4, teacher_id = $5, academic_year_id = $6, version = version + 1, updated_at = $7
		WHERE tenant_id = $8 AND id = $9 AND version = $10 AND active AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		entry.TimeSlotID, entry.RoomID, entry.ClassID, entry.SubjectID, entry.TeacherID, entry.AcademicYearID, entry.UpdatedAt,
		entry.TenantID, entry.ID, expectedVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrUniqueViolation
		}
		return false, fmt.Errorf("update entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update entry rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	entry.Version = expectedVersion + 1
	return true, nil
}

// Retire soft-deletes the entry (active=false). The row stays for audit.
func (r *EntryRepository) Retire(ctx context.Context, tenantID, id string) (bool, error) {
	const query = `UPDATE entries SET active = FALSE, deleted_at = $1, updated_at = $1 WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), tenantID, id)
	if err != nil {
		return false, fmt.Errorf("retire entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("retire entry rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListDetailsByClass returns joined display rows for a class timetable.
func (r *EntryRepository) ListDetailsByClass(ctx context.Context, tenantID, classID, academicYearID string) ([]models.EntryDetail, error) {
	query := entryDetailSelect + ` WHERE e.tenant_id = $1 AND e.class_id = $2 AND e.academic_year_id = $3 AND e.active AND e.deleted_at IS NULL ORDER BY ts.day_of_week ASC, ts.start_time ASC`
	var details []models.EntryDetail
	if err := r.db.SelectContext(ctx, &details, query, tenantID, classID, academicYearID); err != nil {
		return nil, fmt.Errorf("list entries by class: %w", err)
	}
	return details, nil
}

// ListDetailsByTeacher returns joined display rows for a teacher timetable.
func (r *EntryRepository) ListDetailsByTeacher(ctx context.Context, tenantID, teacherID, academicYearID string) ([]models.EntryDetail, error) {
	query := entryDetailSelect + ` WHERE e.tenant_id = $1 AND e.teacher_id = $2 AND e.academic_year_id = $3 AND e.active AND e.deleted_at IS NULL ORDER BY ts.day_of_week ASC, ts.start_time ASC`
	var details []models.EntryDetail
	if err := r.db.SelectContext(ctx, &details, query, tenantID, teacherID, academicYearID); err != nil {
		return nil, fmt.Errorf("list entries by teacher: %w", err)
	}
	return details, nil
}

// ListDetailsByRoom returns joined display rows for a room timetable.
func (r *EntryRepository) ListDetailsByRoom(ctx context.Context, tenantID, roomID, academicYearID string) ([]models.EntryDetail, error) {
	query := entryDetailSelect + ` WHERE e.tenant_id = $1 AND e.room_id = $2 AND e.academic_year_id = $3 AND e.active AND e.deleted_at IS NULL ORDER BY ts.day_of_week ASC, ts.start_time ASC`
	var details []models.EntryDetail
	if err := r.db.SelectContext(ctx, &details, query, tenantID, roomID, academicYearID); err != nil {
		return nil, fmt.Errorf("list entries by room: %w", err)
	}
	return details, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}
