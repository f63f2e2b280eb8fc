package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/snackpdf/pdf-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestJobRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pdf_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.PDFJob{
		Platform: models.PlatformSnackPDF,
		ToolName: models.ToolMerge,
		InputFiles: models.FileDescriptorList{
			{Name: "a.pdf", Size: 100, Type: "application/pdf"},
			{Name: "b.pdf", Size: 200, Type: "application/pdf"},
		},
		FileSizeBytes: 300,
		IPAddress:     "203.0.113.9",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.JobStatusProcessing, job.Status)
	require.Equal(t, models.JobTypeSync, job.JobType)
	require.False(t, job.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	outputs := models.OutputFileList{{Name: "merged.pdf", Size: 512, Type: "application/pdf", URL: "https://cdn/merged.pdf"}}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pdf_jobs")).
		WithArgs("job-1", models.JobStatusCompleted, outputs, sqlmock.AnyArg(), int64(42), models.JobStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Complete(context.Background(), "job-1", outputs, 42))

	// A second completion attempt finds no processing row.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pdf_jobs")).
		WithArgs("job-1", models.JobStatusCompleted, outputs, sqlmock.AnyArg(), int64(42), models.JobStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Complete(context.Background(), "job-1", outputs, 42), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryFail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pdf_jobs")).
		WithArgs("job-2", models.JobStatusFailed, "failed to process file: broken.pdf", sqlmock.AnyArg(), models.JobStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Fail(context.Background(), "job-2", "failed to process file: broken.pdf"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func jobColumns() []string {
	return []string{
		"id", "user_id", "platform", "tool_name", "job_type", "status",
		"input_files", "processing_options", "output_files", "file_size_bytes",
		"error_message", "ip_address", "user_agent", "created_at", "completed_at",
		"processing_time_ms",
	}
}

func TestJobRepositoryGetByIDAndOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	rows := sqlmock.NewRows(jobColumns()).
		AddRow("job-1", "user-1", "snackpdf", "merge", "sync", "completed",
			[]byte(`[{"name":"a.pdf","size":100,"type":"application/pdf"}]`), []byte(`{}`),
			[]byte(`[{"name":"merged.pdf","size":512,"type":"application/pdf","url":"https://cdn/merged.pdf"}]`),
			int64(100), nil, "203.0.113.9", "curl/8.0", time.Now(), time.Now(), int64(42))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pdf_jobs")).
		WithArgs("job-1", "user-1").
		WillReturnRows(rows)

	job, err := repo.GetByIDAndOwner(context.Background(), "job-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, models.JobStatusCompleted, job.Status)
	require.Len(t, job.OutputFiles, 1)
	require.Equal(t, "merged.pdf", job.OutputFiles[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepositoryGetByIDAndOwnerMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewJobRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM pdf_jobs")).
		WithArgs("job-1", "user-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDAndOwner(context.Background(), "job-1", "user-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
