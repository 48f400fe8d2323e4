package models

import "time"

// Entry assigns a class (and optionally subject, teacher, room) to a time
// slot for one academic year. Rows are soft-deleted only; active=false is
// the terminal retired state.
type Entry struct {
	ID             string     `db:"id" json:"id"`
	TenantID       string     `db:"tenant_id" json:"tenant_id"`
	TimeSlotID     string     `db:"time_slot_id" json:"time_slot_id"`
	RoomID         *string    `db:"room_id" json:"room_id,omitempty"`
	ClassID        string     `db:"class_id" json:"class_id"`
	SubjectID      *string    `db:"subject_id" json:"subject_id,omitempty"`
	TeacherID      *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	AcademicYearID string     `db:"academic_year_id" json:"academic_year_id"`
	Active         bool       `db:"active" json:"active"`
	Version        int        `db:"version" json:"version"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time `db:"deleted_at" json:"-"`
}

// EntryDetail is an entry joined with slot and reference display data for
// timetable views.
type EntryDetail struct {
	Entry
	Day         DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	SlotLabel   string    `db:"slot_label" json:"slot_label"`
	ClassName   string    `db:"class_name" json:"class_name"`
	SubjectName *string   `db:"subject_name" json:"subject_name,omitempty"`
	TeacherName *string   `db:"teacher_name" json:"teacher_name,omitempty"`
	RoomName    *string   `db:"room_name" json:"room_name,omitempty"`
}

// WeeklyTimetable groups entries into the fixed Monday..Sunday order.
type WeeklyTimetable struct {
	Monday    []EntryDetail `json:"MONDAY"`
	Tuesday   []EntryDetail `json:"TUESDAY"`
	Wednesday []EntryDetail `json:"WEDNESDAY"`
	Thursday  []EntryDetail `json:"THURSDAY"`
	Friday    []EntryDetail `json:"FRIDAY"`
	Saturday  []EntryDetail `json:"SATURDAY"`
	Sunday    []EntryDetail `json:"SUNDAY"`
}

// Add places the detail under its weekday bucket.
func (w *WeeklyTimetable) Add(detail EntryDetail) {
	switch detail.Day {
	case Monday:
		w.Monday = append(w.Monday, detail)
	case Tuesday:
		w.Tuesday = append(w.Tuesday, detail)
	case Wednesday:
		w.Wednesday = append(w.Wednesday, detail)
	case Thursday:
		w.Thursday = append(w.Thursday, detail)
	case Friday:
		w.Friday = append(w.Friday, detail)
	case Saturday:
		w.Saturday = append(w.Saturday, detail)
	case Sunday:
		w.Sunday = append(w.Sunday, detail)
	}
}

// Day returns the bucket for the given weekday.
func (w *WeeklyTimetable) Day(day DayOfWeek) []EntryDetail {
	switch day {
	case Monday:
		return w.Monday
	case Tuesday:
		return w.Tuesday
	case Wednesday:
		return w.Wednesday
	case Thursday:
		return w.Thursday
	case Friday:
		return w.Friday
	case Saturday:
		return w.Saturday
	case Sunday:
		return w.Sunday
	default:
		return nil
	}
}

// ConflictDimension names the invariant a colliding entry violates.
type ConflictDimension string

const (
	ConflictRoom    ConflictDimension = "ROOM"
	ConflictTeacher ConflictDimension = "TEACHER"
	ConflictClass   ConflictDimension = "CLASS"
)

// EntryConflict describes one existing active entry blocking a proposal.
type EntryConflict struct {
	Dimension      ConflictDimension `json:"dimension"`
	EntryID        string            `json:"entry_id"`
	TimeSlotID     string            `json:"time_slot_id"`
	AcademicYearID string            `json:"academic_year_id"`
	ClassID        string            `json:"class_id"`
	RoomID         *string           `json:"room_id,omitempty"`
	TeacherID      *string           `json:"teacher_id,omitempty"`
}

// SchedulingConflictError carries the complete set of detected collisions so
// callers can surface every violation in a single round trip.
type SchedulingConflictError struct {
	Message   string          `json:"message"`
	Conflicts []EntryConflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *SchedulingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
