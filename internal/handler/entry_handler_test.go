package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padma-edu/timetable-api/internal/middleware"
	"github.com/padma-edu/timetable-api/internal/models"
	"github.com/padma-edu/timetable-api/internal/service"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
)

type entryServiceMock struct {
	createResp    *models.Entry
	createErr     error
	updateResp    *models.Entry
	updateErr     error
	deleteErr     error
	bulkResp      *service.BulkImportResult
	bulkErr       error
	timetableResp *models.WeeklyTimetable
	timetableErr  error

	lastTenant string
	lastYear   string
	lastRefID  string
	bulkCalled bool
}

func (m *entryServiceMock) Create(ctx context.Context, tenantID string, req service.CreateEntryRequest) (*models.Entry, error) {
	m.lastTenant = tenantID
	return m.createResp, m.createErr
}

func (m *entryServiceMock) Update(ctx context.Context, tenantID, id string, req service.UpdateEntryRequest) (*models.Entry, error) {
	m.lastTenant = tenantID
	m.lastRefID = id
	return m.updateResp, m.updateErr
}

func (m *entryServiceMock) Delete(ctx context.Context, tenantID, id string) error {
	m.lastTenant = tenantID
	m.lastRefID = id
	return m.deleteErr
}

func (m *entryServiceMock) BulkImport(ctx context.Context, tenantID, academicYearID string, items []service.CreateEntryRequest) (*service.BulkImportResult, error) {
	m.bulkCalled = true
	m.lastTenant = tenantID
	m.lastYear = academicYearID
	return m.bulkResp, m.bulkErr
}

func (m *entryServiceMock) TimetableByClass(ctx context.Context, tenantID, classID, academicYearID string) (*models.WeeklyTimetable, error) {
	m.lastTenant = tenantID
	m.lastRefID = classID
	m.lastYear = academicYearID
	return m.timetableResp, m.timetableErr
}

func (m *entryServiceMock) TimetableByTeacher(ctx context.Context, tenantID, teacherID, academicYearID string) (*models.WeeklyTimetable, error) {
	m.lastRefID = teacherID
	return m.timetableResp, m.timetableErr
}

func (m *entryServiceMock) TimetableByRoom(ctx context.Context, tenantID, roomID, academicYearID string) (*models.WeeklyTimetable, error) {
	m.lastRefID = roomID
	return m.timetableResp, m.timetableErr
}

func testContext(t *testing.T, method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{TenantID: "tenant-1", UserID: "admin", Role: models.RoleAdmin})
	return c, w
}

func TestEntryHandlerCreate(t *testing.T) {
	mockSvc := &entryServiceMock{
		createResp: &models.Entry{ID: "entry-1", TenantID: "tenant-1", TimeSlotID: "slot-1", ClassID: "class-1", Version: 1, Active: true},
	}
	handler := NewEntryHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/entries",
		`{"time_slot_id":"slot-1","class_id":"class-1","academic_year_id":"year-1"}`)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tenant-1", mockSvc.lastTenant)

	var envelope struct {
		Data models.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "entry-1", envelope.Data.ID)
	assert.Equal(t, 1, envelope.Data.Version)
}

func TestEntryHandlerCreateInvalidBody(t *testing.T) {
	handler := NewEntryHandler(&entryServiceMock{})

	c, w := testContext(t, http.MethodPost, "/entries", `{"time_slot_id":"slot-1"`)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntryHandlerCreateMissingTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &entryServiceMock{}
	handler := NewEntryHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/entries", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mockSvc.lastTenant)
}

func TestEntryHandlerCreateConflict(t *testing.T) {
	conflictErr := appErrors.Clone(appErrors.ErrSchedulingConflict, "room double booked")
	conflictErr.Details = []models.EntryConflict{{Dimension: models.ConflictRoom, EntryID: "entry-9", TimeSlotID: "slot-1"}}
	handler := NewEntryHandler(&entryServiceMock{createErr: conflictErr})

	c, w := testContext(t, http.MethodPost, "/entries",
		`{"time_slot_id":"slot-1","class_id":"class-1","academic_year_id":"year-1"}`)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"SCHEDULING_CONFLICT"`)
	assert.Contains(t, w.Body.String(), `"entry-9"`)
}

func TestEntryHandlerUpdateStaleVersion(t *testing.T) {
	handler := NewEntryHandler(&entryServiceMock{updateErr: appErrors.ErrVersionMismatch})

	c, w := testContext(t, http.MethodPut, "/entries/entry-1", `{"version":1}`)
	c.Params = gin.Params{{Key: "id", Value: "entry-1"}}

	handler.Update(c)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Contains(t, w.Body.String(), `"VERSION_MISMATCH"`)
}

func TestEntryHandlerDelete(t *testing.T) {
	mockSvc := &entryServiceMock{}
	handler := NewEntryHandler(mockSvc)

	c, w := testContext(t, http.MethodDelete, "/entries/entry-1", "")
	c.Params = gin.Params{{Key: "id", Value: "entry-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "entry-1", mockSvc.lastRefID)
}

func TestEntryHandlerBulkImport(t *testing.T) {
	mockSvc := &entryServiceMock{
		bulkResp: &service.BulkImportResult{
			Success: []models.Entry{{ID: "entry-1"}},
			Errors:  []service.BulkImportError{{Index: 1, Message: "unknown time slot"}},
		},
	}
	handler := NewEntryHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/entries/bulk",
		`{"academic_year_id":"year-1","entries":[{"time_slot_id":"slot-1","class_id":"class-1","academic_year_id":"year-1"},{"time_slot_id":"nope","class_id":"class-2","academic_year_id":"year-1"}]}`)

	handler.BulkImport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.bulkCalled)
	assert.Equal(t, "year-1", mockSvc.lastYear)
	assert.Contains(t, w.Body.String(), `"unknown time slot"`)
}

func TestEntryHandlerBulkImportMissingYear(t *testing.T) {
	mockSvc := &entryServiceMock{}
	handler := NewEntryHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/entries/bulk", `{"entries":[]}`)

	handler.BulkImport(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.bulkCalled)
}

func TestEntryHandlerTimetableByClass(t *testing.T) {
	timetable := &models.WeeklyTimetable{}
	timetable.Add(models.EntryDetail{
		Entry:     models.Entry{ID: "entry-1"},
		Day:       models.Monday,
		StartTime: "08:00",
		EndTime:   "09:00",
	})
	mockSvc := &entryServiceMock{timetableResp: timetable}
	handler := NewEntryHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/classes/class-1/timetable?academicYearId=year-1", "")
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.TimetableByClass(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", mockSvc.lastRefID)
	assert.Equal(t, "year-1", mockSvc.lastYear)
	assert.Contains(t, w.Body.String(), `"MONDAY"`)
}

func TestEntryHandlerTimetableMissingYear(t *testing.T) {
	handler := NewEntryHandler(&entryServiceMock{})

	c, w := testContext(t, http.MethodGet, "/classes/class-1/timetable", "")
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.TimetableByClass(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
