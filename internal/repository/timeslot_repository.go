package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/padma-edu/timetable-api/internal/models"
)

const timeSlotColumns = "id, tenant_id, day_of_week, start_time, end_time, label, version, created_at, updated_at, deleted_at"

// TimeSlotRepository provides tenant-scoped persistence for recurring weekly slots.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListActive returns every non-deleted slot for the tenant ordered by day and start.
func (r *TimeSlotRepository) ListActive(ctx context.Context, tenantID string) ([]models.TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY day_of_week ASC, start_time ASC", timeSlotColumns)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, tenantID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// ListActiveByDay returns non-deleted slots for one tenant weekday, the scan
// set for overlap validation.
func (r *TimeSlotRepository) ListActiveByDay(ctx context.Context, tenantID string, day models.DayOfWeek) ([]models.TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots WHERE tenant_id = $1 AND day_of_week = $2 AND deleted_at IS NULL ORDER BY start_time ASC", timeSlotColumns)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, tenantID, day); err != nil {
		return nil, fmt.Errorf("list time slots by day: %w", err)
	}
	return slots, nil
}

// FindByID loads a non-deleted slot by id within the tenant.
func (r *TimeSlotRepository) FindByID(ctx context.Context, tenantID, id string) (*models.TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL", timeSlotColumns)
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, tenantID, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create stores a new slot with version 1.
func (r *TimeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.Version = 1
	slot.CreatedAt = now
	slot.UpdatedAt = now

	const query = `INSERT INTO time_slots (id, tenant_id, day_of_week, start_time, end_time, label, version, created_at, updated_at)
		VALUES (:id, :tenant_id, :day_of_week, :start_time, :end_time, :label, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create time slot: %w", err)
	}
	return nil
}

// UpdateVersioned performs the compare-and-swap write keyed on id and
// version. It returns false when zero rows matched, which covers both a
// missing row and a racing writer that already advanced the version.
func (r *TimeSlotRepository) UpdateVersioned(ctx context.Context, slot *models.TimeSlot, expectedVersion int) (bool, error) {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_slots
		SET day_of_week = $1, start_time = $2, end_time = $3, label = $4, version = version + 1, updated_at = $5
		WHERE tenant_id = $6 AND id = $7 AND version = $8 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Label, slot.UpdatedAt,
		slot.TenantID, slot.ID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("update time slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update time slot rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	slot.Version = expectedVersion + 1
	return true, nil
}

// SoftDelete marks the slot deleted. Rows are never physically removed.
func (r *TimeSlotRepository) SoftDelete(ctx context.Context, tenantID, id string) (bool, error) {
	const query = `UPDATE time_slots SET deleted_at = $1, updated_at = $1 WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete time slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete time slot rows affected: %w", err)
	}
	return affected > 0, nil
}
