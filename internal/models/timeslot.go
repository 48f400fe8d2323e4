package models

import "time"

// TimeSlot is a recurring weekly interval, the atomic scheduling unit.
// Start and end are same-day wall-clock times in zero-padded "HH:MM" form,
// which makes lexicographic comparison equivalent to chronological order.
type TimeSlot struct {
	ID        string     `db:"id" json:"id"`
	TenantID  string     `db:"tenant_id" json:"tenant_id"`
	DayOfWeek DayOfWeek  `db:"day_of_week" json:"day_of_week"`
	StartTime string     `db:"start_time" json:"start_time"`
	EndTime   string     `db:"end_time" json:"end_time"`
	Label     string     `db:"label" json:"label"`
	Version   int        `db:"version" json:"version"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// Overlaps reports whether the slot intersects the [start, end) interval.
// Touching boundaries (one slot ending exactly when another starts) do not overlap.
func (t TimeSlot) Overlaps(start, end string) bool {
	return t.StartTime < end && start < t.EndTime
}
