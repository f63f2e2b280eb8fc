package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/snackpdf/pdf-api/internal/models"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
)

type jobRepository interface {
	Create(ctx context.Context, job *models.PDFJob) error
	Complete(ctx context.Context, id string, outputs models.OutputFileList, durationMs int64) error
	Fail(ctx context.Context, id, message string) error
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.PDFJob, error)
}

// JobService is the durable ledger of processing requests. Every request
// gets a row before any processing starts, so abandoned work is visible.
type JobService struct {
	repo   jobRepository
	logger *zap.Logger
}

// NewJobService constructs the ledger.
func NewJobService(repo jobRepository, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{repo: repo, logger: logger}
}

// Create opens a job in the processing state. A write failure aborts the
// request: no processing happens without a ledger row.
func (s *JobService) Create(ctx context.Context, job *models.PDFJob) error {
	if err := s.repo.Create(ctx, job); err != nil {
		s.logger.Error("job ledger write failed", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrLedgerWrite.Code, appErrors.ErrLedgerWrite.Status, appErrors.ErrLedgerWrite.Message)
	}
	return nil
}

// Complete closes the job with its outputs. A missed update is logged but
// not surfaced: the caller already holds the results.
func (s *JobService) Complete(ctx context.Context, id string, outputs models.OutputFileList, durationMs int64) {
	if err := s.repo.Complete(ctx, id, outputs, durationMs); err != nil {
		s.logger.Warn("job completion update failed", zap.String("job_id", id), zap.Error(err))
	}
}

// Fail closes the job with an error message, best effort.
func (s *JobService) Fail(ctx context.Context, id, message string) {
	if err := s.repo.Fail(ctx, id, message); err != nil {
		s.logger.Warn("job failure update failed", zap.String("job_id", id), zap.Error(err))
	}
}

// Get retrieves a job honoring ownership: a job belonging to anyone else is
// reported as not found.
func (s *JobService) Get(ctx context.Context, id, ownerID string) (*models.PDFJob, error) {
	job, err := s.repo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	return job, nil
}
