package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/padma-edu/timetable-api/internal/models"
)

// ExportRepository persists timetable export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a pending export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.TimetableExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.Status = models.ExportStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now

	const query = `INSERT INTO timetable_export_jobs (id, tenant_id, class_id, academic_year_id, format, status, created_at, updated_at)
		VALUES (:id, :tenant_id, :class_id, :academic_year_id, :format, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID loads an export job within the tenant.
func (r *ExportRepository) FindByID(ctx context.Context, tenantID, id string) (*models.TimetableExportJob, error) {
	const query = `SELECT id, tenant_id, class_id, academic_year_id, format, status, file_path, error_message, created_at, updated_at
		FROM timetable_export_jobs WHERE tenant_id = $1 AND id = $2`
	var job models.TimetableExportJob
	if err := r.db.GetContext(ctx, &job, query, tenantID, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus transitions the job and records the outcome fields.
func (r *ExportRepository) UpdateStatus(ctx context.Context, tenantID, id string, status models.ExportStatus, filePath, errorMessage *string) error {
	const query = `UPDATE timetable_export_jobs SET status = $1, file_path = $2, error_message = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6`
	if _, err := r.db.ExecContext(ctx, query, status, filePath, errorMessage, time.Now().UTC(), tenantID, id); err != nil {
		return fmt.Errorf("update export job status: %w", err)
	}
	return nil
}
