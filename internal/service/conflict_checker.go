package service

import "github.com/padma-edu/timetable-api/internal/models"

// EntryCandidate is a proposed assignment evaluated by CheckConflicts.
type EntryCandidate struct {
	TimeSlotID     string
	AcademicYearID string
	ClassID        string
	RoomID         *string
	TeacherID      *string
}

// CheckConflicts evaluates a candidate against the active entries currently
// occupying the same slot and year. It is a pure function: it never touches
// the store. All three dimension checks run and every violation is
// collected, so a conflict-resolution UI gets the complete picture in one
// round trip instead of fixing collisions one at a time.
//
// excludeEntryID skips the entry being updated so it does not collide with
// itself.
func CheckConflicts(candidate EntryCandidate, existing []models.Entry, excludeEntryID string) []models.EntryConflict {
	var conflicts []models.EntryConflict

	for _, entry := range existing {
		if excludeEntryID != "" && entry.ID == excludeEntryID {
			continue
		}
		if candidate.RoomID != nil && entry.RoomID != nil && *entry.RoomID == *candidate.RoomID {
			conflicts = append(conflicts, newConflict(models.ConflictRoom, entry))
		}
		if candidate.TeacherID != nil && entry.TeacherID != nil && *entry.TeacherID == *candidate.TeacherID {
			conflicts = append(conflicts, newConflict(models.ConflictTeacher, entry))
		}
		if entry.ClassID == candidate.ClassID {
			conflicts = append(conflicts, newConflict(models.ConflictClass, entry))
		}
	}

	return conflicts
}

func newConflict(dimension models.ConflictDimension, entry models.Entry) models.EntryConflict {
	return models.EntryConflict{
		Dimension:      dimension,
		EntryID:        entry.ID,
		TimeSlotID:     entry.TimeSlotID,
		AcademicYearID: entry.AcademicYearID,
		ClassID:        entry.ClassID,
		RoomID:         entry.RoomID,
		TeacherID:      entry.TeacherID,
	}
}
