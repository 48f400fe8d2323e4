package models

import "time"

// TeacherAvailability records a per-slot allow/deny preference for a teacher.
// The absence of a record means the teacher is available (default-available).
type TeacherAvailability struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	TimeSlotID string    `db:"time_slot_id" json:"time_slot_id"`
	Available  bool      `db:"available" json:"available"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Teacher is the directory view consumed by availability suggestions.
type Teacher struct {
	ID       string  `db:"id" json:"id"`
	TenantID string  `db:"tenant_id" json:"tenant_id"`
	FullName string  `db:"full_name" json:"full_name"`
	Email    *string `db:"email" json:"email,omitempty"`
	Active   bool    `db:"active" json:"active"`
}
