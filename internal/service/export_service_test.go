package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/padma-edu/timetable-api/internal/models"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
	"github.com/padma-edu/timetable-api/pkg/storage"
)

type mockExportRepo struct {
	jobs   map[string]*models.TimetableExportJob
	nextID int
}

func newMockExportRepo() *mockExportRepo {
	return &mockExportRepo{jobs: make(map[string]*models.TimetableExportJob)}
}

func (m *mockExportRepo) Create(ctx context.Context, job *models.TimetableExportJob) error {
	m.nextID++
	job.ID = fmt.Sprintf("job-%d", m.nextID)
	job.Status = models.ExportStatusPending
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockExportRepo) FindByID(ctx context.Context, tenantID, id string) (*models.TimetableExportJob, error) {
	if job, ok := m.jobs[id]; ok && job.TenantID == tenantID {
		cp := *job
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExportRepo) UpdateStatus(ctx context.Context, tenantID, id string, status models.ExportStatus, filePath, errorMessage *string) error {
	job, ok := m.jobs[id]
	if !ok || job.TenantID != tenantID {
		return sql.ErrNoRows
	}
	job.Status = status
	job.FilePath = filePath
	job.ErrorMessage = errorMessage
	return nil
}

type fakeTimetableReader struct {
	timetable *models.WeeklyTimetable
	err       error
}

func (f *fakeTimetableReader) TimetableByClass(ctx context.Context, tenantID, classID, academicYearID string) (*models.WeeklyTimetable, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.timetable, nil
}

func newTestExportService(t *testing.T, repo *mockExportRepo, reader *fakeTimetableReader) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(repo, reader, store, signer, "/api/v1", validator.New(), zap.NewNop())
}

func sampleTimetable() *models.WeeklyTimetable {
	var w models.WeeklyTimetable
	w.Add(models.EntryDetail{Day: models.Monday, StartTime: "08:00", EndTime: "09:00", ClassName: "10A"})
	w.Add(models.EntryDetail{Day: models.Friday, StartTime: "10:00", EndTime: "11:00", ClassName: "10A"})
	return &w
}

func TestExportServiceInlineCSVLifecycle(t *testing.T) {
	repo := newMockExportRepo()
	svc := newTestExportService(t, repo, &fakeTimetableReader{timetable: sampleTimetable()})

	// No queue attached: Request renders synchronously.
	job, err := svc.Request(context.Background(), "tenant-1", RequestExportRequest{
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		Format:         "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, job.Format)

	status, err := svc.Get(context.Background(), "tenant-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusReady, status.Job.Status)
	require.NotNil(t, status.DownloadURL)
	assert.Contains(t, *status.DownloadURL, "/api/v1/timetable-exports/download?token=")

	token := (*status.DownloadURL)[strings.Index(*status.DownloadURL, "token=")+len("token="):]
	file, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Day,Start,End,Class,Subject,Teacher,Room")
	assert.Contains(t, string(content), "MONDAY,08:00,09:00,10A")
	assert.Contains(t, string(content), "FRIDAY,10:00,11:00,10A")
}

func TestExportServicePDF(t *testing.T) {
	repo := newMockExportRepo()
	svc := newTestExportService(t, repo, &fakeTimetableReader{timetable: sampleTimetable()})

	job, err := svc.Request(context.Background(), "tenant-1", RequestExportRequest{
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		Format:         "PDF",
	})
	require.NoError(t, err)

	status, err := svc.Get(context.Background(), "tenant-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusReady, status.Job.Status)
	require.NotNil(t, status.Job.FilePath)
	assert.True(t, strings.HasSuffix(*status.Job.FilePath, ".pdf"))
}

func TestExportServiceRenderFailureMarksJobFailed(t *testing.T) {
	repo := newMockExportRepo()
	svc := newTestExportService(t, repo, &fakeTimetableReader{err: fmt.Errorf("boom")})

	_, err := svc.Request(context.Background(), "tenant-1", RequestExportRequest{
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		Format:         "CSV",
	})
	require.Error(t, err)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
	}
}

func TestExportServiceInvalidFormat(t *testing.T) {
	repo := newMockExportRepo()
	svc := newTestExportService(t, repo, &fakeTimetableReader{timetable: sampleTimetable()})

	_, err := svc.Request(context.Background(), "tenant-1", RequestExportRequest{
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		Format:         "xlsx",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceGetScopedToTenant(t *testing.T) {
	repo := newMockExportRepo()
	svc := newTestExportService(t, repo, &fakeTimetableReader{timetable: sampleTimetable()})

	job, err := svc.Request(context.Background(), "tenant-1", RequestExportRequest{
		ClassID:        "class-a",
		AcademicYearID: "year-1",
		Format:         "CSV",
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "tenant-2", job.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceOpenRejectsGarbageToken(t *testing.T) {
	repo := newMockExportRepo()
	svc := newTestExportService(t, repo, &fakeTimetableReader{timetable: sampleTimetable()})

	_, err := svc.Open("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
