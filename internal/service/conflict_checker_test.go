package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padma-edu/timetable-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestCheckConflictsEmptySlot(t *testing.T) {
	candidate := EntryCandidate{
		TimeSlotID:     "slot-1",
		AcademicYearID: "year-1",
		ClassID:        "class-a",
		RoomID:         strPtr("room-1"),
		TeacherID:      strPtr("teacher-1"),
	}
	assert.Empty(t, CheckConflicts(candidate, nil, ""))
}

func TestCheckConflictsClassAlwaysChecked(t *testing.T) {
	existing := []models.Entry{
		{ID: "e1", TimeSlotID: "slot-1", AcademicYearID: "year-1", ClassID: "class-a"},
	}
	candidate := EntryCandidate{
		TimeSlotID:     "slot-1",
		AcademicYearID: "year-1",
		ClassID:        "class-a",
	}

	conflicts := CheckConflicts(candidate, existing, "")
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictClass, conflicts[0].Dimension)
	assert.Equal(t, "e1", conflicts[0].EntryID)
}

func TestCheckConflictsNilDimensionsSkipped(t *testing.T) {
	existing := []models.Entry{
		{ID: "e1", ClassID: "class-b", RoomID: strPtr("room-1"), TeacherID: strPtr("teacher-1")},
	}
	// No room or teacher on the candidate: only the class check applies,
	// and the classes differ.
	candidate := EntryCandidate{TimeSlotID: "slot-1", AcademicYearID: "year-1", ClassID: "class-a"}
	assert.Empty(t, CheckConflicts(candidate, existing, ""))
}

func TestCheckConflictsCollectsEveryDimension(t *testing.T) {
	existing := []models.Entry{
		{
			ID:        "e1",
			ClassID:   "class-a",
			RoomID:    strPtr("room-1"),
			TeacherID: strPtr("teacher-1"),
		},
	}
	candidate := EntryCandidate{
		TimeSlotID:     "slot-1",
		AcademicYearID: "year-1",
		ClassID:        "class-a",
		RoomID:         strPtr("room-1"),
		TeacherID:      strPtr("teacher-1"),
	}

	conflicts := CheckConflicts(candidate, existing, "")
	require.Len(t, conflicts, 3)

	dims := make(map[models.ConflictDimension]bool, 3)
	for _, c := range conflicts {
		dims[c.Dimension] = true
	}
	assert.True(t, dims[models.ConflictRoom])
	assert.True(t, dims[models.ConflictTeacher])
	assert.True(t, dims[models.ConflictClass])
}

func TestCheckConflictsAcrossMultipleEntries(t *testing.T) {
	existing := []models.Entry{
		{ID: "e1", ClassID: "class-b", RoomID: strPtr("room-1")},
		{ID: "e2", ClassID: "class-c", TeacherID: strPtr("teacher-1")},
	}
	candidate := EntryCandidate{
		TimeSlotID:     "slot-1",
		AcademicYearID: "year-1",
		ClassID:        "class-a",
		RoomID:         strPtr("room-1"),
		TeacherID:      strPtr("teacher-1"),
	}

	conflicts := CheckConflicts(candidate, existing, "")
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.ConflictRoom, conflicts[0].Dimension)
	assert.Equal(t, "e1", conflicts[0].EntryID)
	assert.Equal(t, models.ConflictTeacher, conflicts[1].Dimension)
	assert.Equal(t, "e2", conflicts[1].EntryID)
}

func TestCheckConflictsExcludesSelfOnUpdate(t *testing.T) {
	existing := []models.Entry{
		{ID: "e1", ClassID: "class-a", RoomID: strPtr("room-1"), TeacherID: strPtr("teacher-1")},
	}
	candidate := EntryCandidate{
		TimeSlotID:     "slot-1",
		AcademicYearID: "year-1",
		ClassID:        "class-a",
		RoomID:         strPtr("room-1"),
		TeacherID:      strPtr("teacher-1"),
	}

	assert.Empty(t, CheckConflicts(candidate, existing, "e1"))
}

func TestCheckConflictsDifferentRoomsAndTeachers(t *testing.T) {
	existing := []models.Entry{
		{ID: "e1", ClassID: "class-b", RoomID: strPtr("room-2"), TeacherID: strPtr("teacher-2")},
	}
	candidate := EntryCandidate{
		TimeSlotID:     "slot-1",
		AcademicYearID: "year-1",
		ClassID:        "class-a",
		RoomID:         strPtr("room-1"),
		TeacherID:      strPtr("teacher-1"),
	}

	assert.Empty(t, CheckConflicts(candidate, existing, ""))
}
