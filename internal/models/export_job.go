package models

import "time"

// ExportFormat selects the rendering backend for timetable exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "CSV"
	ExportFormatPDF ExportFormat = "PDF"
)

// ExportStatus tracks the lifecycle of an asynchronous export job.
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "PENDING"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusReady      ExportStatus = "READY"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// TimetableExportJob renders one class timetable to a downloadable file.
type TimetableExportJob struct {
	ID             string       `db:"id" json:"id"`
	TenantID       string       `db:"tenant_id" json:"tenant_id"`
	ClassID        string       `db:"class_id" json:"class_id"`
	AcademicYearID string       `db:"academic_year_id" json:"academic_year_id"`
	Format         ExportFormat `db:"format" json:"format"`
	Status         ExportStatus `db:"status" json:"status"`
	FilePath       *string      `db:"file_path" json:"-"`
	ErrorMessage   *string      `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}
