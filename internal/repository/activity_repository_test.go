package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/snackpdf/pdf-api/internal/models"
)

func TestActivityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewActivityRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ActivityLog{
		Platform:     models.PlatformRevisePDF,
		Action:       models.ActivityPDFSplit,
		ResourceType: "pdf_job",
		IPAddress:    "203.0.113.9",
		UserAgent:    "curl/8.0",
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryCountGuestSince(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewActivityRepository(db)
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"count"}).AddRow(2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM activity_log")).
		WithArgs("203.0.113.9", since).
		WillReturnRows(rows)

	count, err := repo.CountGuestSince(context.Background(), "203.0.113.9", since)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
