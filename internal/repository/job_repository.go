package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/snackpdf/pdf-api/internal/models"
)

// JobRepository persists pdf_jobs rows.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs the repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a job in its initial processing state.
func (r *JobRepository) Create(ctx context.Context, job *models.PDFJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobStatusProcessing
	}
	if job.JobType == "" {
		job.JobType = models.JobTypeSync
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pdf_jobs
	(id, user_id, platform, tool_name, job_type, status, input_files, processing_options, file_size_bytes, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :platform, :tool_name, :job_type, :status, :input_files, :processing_options, :file_size_bytes, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create pdf job: %w", err)
	}
	return nil
}

// Complete records the produced artifacts and closes the job.
func (r *JobRepository) Complete(ctx context.Context, id string, outputs models.OutputFileList, durationMs int64) error {
	const query = `UPDATE pdf_jobs
	SET status = $2, output_files = $3, completed_at = $4, processing_time_ms = $5
	WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.JobStatusCompleted, outputs, time.Now().UTC(), durationMs, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("complete pdf job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check job complete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Fail closes the job with an error message.
func (r *JobRepository) Fail(ctx context.Context, id, message string) error {
	const query = `UPDATE pdf_jobs
	SET status = $2, error_message = $3, completed_at = $4
	WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.JobStatusFailed, message, time.Now().UTC(), models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("fail pdf job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check job fail rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByIDAndOwner retrieves one job scoped to its owner. A job belonging to
// anyone else, guest jobs included, comes back as sql.ErrNoRows rather than
// a permission error so job ids do not leak existence.
func (r *JobRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.PDFJob, error) {
	const query = `SELECT id, user_id, platform, tool_name, job_type, status, input_files,
       processing_options, output_files, file_size_bytes, error_message, ip_address, user_agent,
       created_at, completed_at, processing_time_ms
	FROM pdf_jobs
	WHERE id = $1 AND user_id = $2`
	var job models.PDFJob
	if err := r.db.GetContext(ctx, &job, query, id, ownerID); err != nil {
		return nil, err
	}
	return &job, nil
}

// CountToolUsageByUser returns per-tool and per-platform counts since the
// given cutoff, for the 30-day breakdown.
func (r *JobRepository) CountToolUsageByUser(ctx context.Context, userID string, since time.Time) ([]models.ToolUsageRow, error) {
	const query = `SELECT tool_name, platform, created_at
	FROM pdf_jobs
	WHERE user_id = $1 AND created_at >= $2
	ORDER BY created_at DESC`
	var rows []models.ToolUsageRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return nil, fmt.Errorf("count tool usage: %w", err)
	}
	return rows, nil
}
