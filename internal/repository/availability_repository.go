package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/padma-edu/timetable-api/internal/models"
)

// AvailabilityRepository persists per-slot teacher availability preferences
// and answers the "who can teach this slot" query.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByTeacher returns the stored availability records for a teacher.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, tenantID, teacherID string) ([]models.TeacherAvailability, error) {
	const query = `SELECT id, tenant_id, teacher_id, time_slot_id, available, created_at
		FROM teacher_availability WHERE tenant_id = $1 AND teacher_id = $2 ORDER BY created_at ASC`
	var records []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &records, query, tenantID, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return records, nil
}

// ReplaceForTeacher swaps the teacher's entire availability set in one
// transaction: delete everything, then insert the submitted records. A
// resubmission that drops a slot therefore leaves no stale record behind.
func (r *AvailabilityRepository) ReplaceForTeacher(ctx context.Context, tenantID, teacherID string, records []models.TeacherAvailability) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace availability: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_availability WHERE tenant_id = $1 AND teacher_id = $2`, tenantID, teacherID); err != nil {
		err = fmt.Errorf("clear teacher availability: %w", err)
		return err
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO teacher_availability (id, tenant_id, teacher_id, time_slot_id, available, created_at)
		VALUES (:id, :tenant_id, :teacher_id, :time_slot_id, :available, :created_at)`
	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.TenantID = tenantID
		record.TeacherID = teacherID
		record.CreatedAt = now
		if _, err = sqlx.NamedExecContext(ctx, tx, insert, record); err != nil {
			err = fmt.Errorf("insert teacher availability: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace availability: %w", err)
	}
	return nil
}

// FindTeacher loads an active teacher within the tenant.
func (r *AvailabilityRepository) FindTeacher(ctx context.Context, tenantID, teacherID string) (*models.Teacher, error) {
	const query = `SELECT id, tenant_id, full_name, email, active FROM teachers WHERE tenant_id = $1 AND id = $2`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, tenantID, teacherID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// AvailableTeachers returns active teachers that either opted in for the
// slot or have no record at all (default-available), excluding anyone
// already holding an active entry at slot+year.
func (r *AvailabilityRepository) AvailableTeachers(ctx context.Context, tenantID, timeSlotID, academicYearID string) ([]models.Teacher, error) {
	const query = `SELECT t.id, t.tenant_id, t.full_name, t.email, t.active
		FROM teachers t
		WHERE t.tenant_id = $1
		  AND t.active
		  AND NOT EXISTS (
		      SELECT 1 FROM teacher_availability a
		      WHERE a.tenant_id = t.tenant_id AND a.teacher_id = t.id AND a.time_slot_id = $2 AND NOT a.available
		  )
		  AND NOT EXISTS (
		      SELECT 1 FROM entries e
		      WHERE e.tenant_id = t.tenant_id AND e.teacher_id = t.id AND e.time_slot_id = $2
		        AND e.academic_year_id = $3 AND e.active AND e.deleted_at IS NULL
		  )
		ORDER BY t.full_name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, tenantID, timeSlotID, academicYearID); err != nil {
		return nil, fmt.Errorf("list available teachers: %w", err)
	}
	return teachers, nil
}
