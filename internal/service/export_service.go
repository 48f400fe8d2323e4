package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/padma-edu/timetable-api/internal/models"
	appErrors "github.com/padma-edu/timetable-api/pkg/errors"
	"github.com/padma-edu/timetable-api/pkg/export"
	"github.com/padma-edu/timetable-api/pkg/jobs"
	"github.com/padma-edu/timetable-api/pkg/storage"
)

type exportRepository interface {
	Create(ctx context.Context, job *models.TimetableExportJob) error
	FindByID(ctx context.Context, tenantID, id string) (*models.TimetableExportJob, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status models.ExportStatus, filePath, errorMessage *string) error
}

type timetableReader interface {
	TimetableByClass(ctx context.Context, tenantID, classID, academicYearID string) (*models.WeeklyTimetable, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

type exportEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// RequestExportRequest asks for one class timetable rendered to a file.
type RequestExportRequest struct {
	ClassID        string `json:"class_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
	Format         string `json:"format" validate:"required,oneof=CSV PDF csv pdf"`
}

// ExportStatusResponse reports job progress plus a signed download URL once ready.
type ExportStatusResponse struct {
	Job         models.TimetableExportJob `json:"job"`
	DownloadURL *string                   `json:"download_url,omitempty"`
	ExpiresAt   *time.Time                `json:"expires_at,omitempty"`
}

// exportJobPayload travels on the queue; the job row holds everything else.
type exportJobPayload struct {
	TenantID string
	JobID    string
}

// ExportService renders class timetables to CSV or PDF on the background
// worker queue and serves them through signed download URLs.
type ExportService struct {
	repo      exportRepository
	entries   timetableReader
	storage   exportStorage
	signer    *storage.SignedURLSigner
	csv       csvRenderer
	pdf       pdfRenderer
	queue     exportEnqueuer
	apiPrefix string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. The queue is attached later
// because its handler is this service's Process method.
func NewExportService(repo exportRepository, entries timetableReader, store exportStorage, signer *storage.SignedURLSigner, apiPrefix string, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:      repo,
		entries:   entries,
		storage:   store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		apiPrefix: apiPrefix,
		validator: validate,
		logger:    logger,
	}
}

// SetQueue attaches the worker queue. Without one, Request processes the job
// inline, which keeps tests and single-binary setups simple.
func (s *ExportService) SetQueue(queue exportEnqueuer) {
	s.queue = queue
}

// Request records a pending export job and schedules its generation.
func (s *ExportService) Request(ctx context.Context, tenantID string, req RequestExportRequest) (*models.TimetableExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	job := models.TimetableExportJob{
		TenantID:       tenantID,
		ClassID:        req.ClassID,
		AcademicYearID: req.AcademicYearID,
		Format:         models.ExportFormat(strings.ToUpper(req.Format)),
	}
	if err := s.repo.Create(ctx, &job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	payload := exportJobPayload{TenantID: tenantID, JobID: job.ID}
	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "timetable_export", Payload: payload}); err != nil {
			s.logger.Error("failed to enqueue export job", zap.String("job_id", job.ID), zap.Error(err))
			message := "failed to schedule export"
			_ = s.repo.UpdateStatus(ctx, tenantID, job.ID, models.ExportStatusFailed, nil, &message)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
		}
	} else if err := s.Process(ctx, jobs.Job{ID: job.ID, Type: "timetable_export", Payload: payload}); err != nil {
		return nil, err
	}
	return &job, nil
}

// Process renders one export job. It runs on the worker queue.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportJobPayload)
	if !ok {
		return fmt.Errorf("unexpected export payload type %T", job.Payload)
	}

	record, err := s.repo.FindByID(ctx, payload.TenantID, payload.JobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", payload.JobID, err)
	}
	if err := s.repo.UpdateStatus(ctx, record.TenantID, record.ID, models.ExportStatusProcessing, nil, nil); err != nil {
		return err
	}

	data, renderErr := s.render(ctx, record)
	if renderErr != nil {
		message := renderErr.Error()
		_ = s.repo.UpdateStatus(ctx, record.TenantID, record.ID, models.ExportStatusFailed, nil, &message)
		return renderErr
	}

	filename := fmt.Sprintf("%s/%s.%s", record.TenantID, record.ID, strings.ToLower(string(record.Format)))
	relPath, err := s.storage.Save(filename, data)
	if err != nil {
		message := "failed to store export file"
		_ = s.repo.UpdateStatus(ctx, record.TenantID, record.ID, models.ExportStatusFailed, nil, &message)
		return fmt.Errorf("store export %s: %w", record.ID, err)
	}

	if err := s.repo.UpdateStatus(ctx, record.TenantID, record.ID, models.ExportStatusReady, &relPath, nil); err != nil {
		return err
	}
	s.logger.Info("timetable export ready",
		zap.String("job_id", record.ID),
		zap.String("tenant_id", record.TenantID),
		zap.String("format", string(record.Format)))
	return nil
}

// Get returns job status and, when ready, a signed download URL.
func (s *ExportService) Get(ctx context.Context, tenantID, jobID string) (*ExportStatusResponse, error) {
	job, err := s.repo.FindByID(ctx, tenantID, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}

	resp := &ExportStatusResponse{Job: *job}
	if job.Status == models.ExportStatusReady && job.FilePath != nil {
		token, expiresAt, serr := s.signer.Generate(job.ID, *job.FilePath)
		if serr != nil {
			return nil, appErrors.Wrap(serr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		url := fmt.Sprintf("%s/timetable-exports/download?token=%s", s.apiPrefix, token)
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Open verifies a download token and returns the rendered file.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, nil
}

func (s *ExportService) render(ctx context.Context, job *models.TimetableExportJob) ([]byte, error) {
	timetable, err := s.entries.TimetableByClass(ctx, job.TenantID, job.ClassID, job.AcademicYearID)
	if err != nil {
		return nil, fmt.Errorf("load timetable for export %s: %w", job.ID, err)
	}

	table := timetableTable(timetable)
	switch job.Format {
	case models.ExportFormatCSV:
		return s.csv.Render(table)
	case models.ExportFormatPDF:
		return s.pdf.Render(table, fmt.Sprintf("Weekly timetable %s", job.ClassID))
	default:
		return nil, fmt.Errorf("unsupported export format %q", job.Format)
	}
}

// timetableTable flattens a weekly timetable into rows ordered Monday
// through Sunday, each day's entries already sorted by start time.
func timetableTable(timetable *models.WeeklyTimetable) export.Table {
	table := export.Table{
		Columns: []string{"Day", "Start", "End", "Class", "Subject", "Teacher", "Room"},
	}
	for _, day := range models.DaysOfWeek() {
		for _, detail := range timetable.Day(day) {
			table.Rows = append(table.Rows, []string{
				day.String(),
				detail.StartTime,
				detail.EndTime,
				detail.ClassName,
				deref(detail.SubjectName),
				deref(detail.TeacherName),
				deref(detail.RoomName),
			})
		}
	}
	return table
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
