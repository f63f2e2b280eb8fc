package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snackpdf/pdf-api/internal/dto"
	"github.com/snackpdf/pdf-api/internal/models"
	"github.com/snackpdf/pdf-api/internal/pdf"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
	"github.com/snackpdf/pdf-api/pkg/storage"
	"github.com/snackpdf/pdf-api/pkg/tasks"
)

type admissionGate interface {
	Admit(ctx context.Context, user *models.User, ip string) (*Admission, error)
}

type jobLedger interface {
	Create(ctx context.Context, job *models.PDFJob) error
	Complete(ctx context.Context, id string, outputs models.OutputFileList, durationMs int64)
	Fail(ctx context.Context, id, message string)
	Get(ctx context.Context, id, ownerID string) (*models.PDFJob, error)
}

type transformEngine interface {
	Merge(docs []pdf.Document) (*pdf.MergeOutput, error)
	Split(doc pdf.Document, req pdf.SplitRequest) (*pdf.SplitOutput, error)
}

type taskEnqueuer interface {
	Enqueue(task tasks.Task) error
}

type jobObserver interface {
	ObserveJob(tool, platform, status string, duration time.Duration, pages int)
}

// RequestMeta carries caller context for the ledger and the audit trail.
type RequestMeta struct {
	User      *models.User
	Platform  string
	IP        string
	UserAgent string
}

// MergeRequest is a validated merge submission.
type MergeRequest struct {
	Meta    RequestMeta
	Files   []pdf.Document `validate:"min=2"`
	Options models.JobOptions
}

// SplitRequest is a validated split submission.
type SplitRequest struct {
	Meta          RequestMeta
	File          pdf.Document `validate:"required"`
	SplitMode     string
	PageRanges    string
	IntervalPages int
}

// PDFService sequences one processing request: admission, ledger entry,
// transform, artifact upload, ledger close, then queued side effects. Once a
// job row exists every failure path closes it as failed before returning.
type PDFService struct {
	gate     admissionGate
	jobs     jobLedger
	engine   transformEngine
	store    storage.ObjectStore
	queue    taskEnqueuer
	metrics  jobObserver
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPDFService constructs the orchestrator.
func NewPDFService(gate admissionGate, jobs jobLedger, engine transformEngine, store storage.ObjectStore, queue taskEnqueuer, metrics jobObserver, validate *validator.Validate, logger *zap.Logger) *PDFService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFService{gate: gate, jobs: jobs, engine: engine, store: store, queue: queue, metrics: metrics, validate: validate, logger: logger}
}

// Merge concatenates the submitted documents in order into one artifact.
func (s *PDFService) Merge(ctx context.Context, req MergeRequest) (*dto.MergeResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "At least 2 PDF files are required for merging")
	}

	admission, err := s.gate.Admit(ctx, req.Meta.User, req.Meta.IP)
	if err != nil {
		return nil, err
	}

	job := s.newJob(req.Meta, models.ToolMerge, descriptors(req.Files), req.Options)
	if err := s.jobs.Create(ctx, job); err != nil {
		s.releaseReservation(admission, job.UserID)
		return nil, err
	}
	started := time.Now()

	out, err := s.engine.Merge(req.Files)
	if err != nil {
		return nil, s.failJob(ctx, job, admission, started, err, "failed to merge PDFs")
	}

	name := fmt.Sprintf("merged-%d.pdf", time.Now().UnixMilli())
	url, err := s.store.Upload(ctx, name, out.Data, "application/pdf")
	if err != nil {
		s.logger.Error("merged artifact upload failed", zap.String("job_id", job.ID), zap.Error(err))
		return nil, s.failJob(ctx, job, admission, started, fmt.Errorf("failed to save merged PDF: %w", err), "failed to merge PDFs")
	}

	outputs := models.OutputFileList{{
		Name: name,
		Size: int64(len(out.Data)),
		Type: "application/pdf",
		URL:  url,
	}}
	elapsed := time.Since(started)
	s.jobs.Complete(ctx, job.ID, outputs, elapsed.Milliseconds())
	s.finishJob(job, admission, models.ActivityPDFMerged, elapsed, out.PageCount, map[string]interface{}{
		"file_count":  len(req.Files),
		"output_size": len(out.Data),
	})

	return &dto.MergeResponse{
		Message: "PDFs merged successfully",
		JobID:   job.ID,
		Result: dto.MergeResult{
			Filename:    name,
			Size:        formatFileSize(int64(len(out.Data))),
			DownloadURL: url,
			PageCount:   out.PageCount,
		},
	}, nil
}

// Split cuts the submitted document into pieces according to the mode. A
// piece whose upload fails is dropped from the result rather than failing
// the job; only a source decode failure aborts.
func (s *PDFService) Split(ctx context.Context, req SplitRequest) (*dto.SplitResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "PDF file is required")
	}

	admission, err := s.gate.Admit(ctx, req.Meta.User, req.Meta.IP)
	if err != nil {
		return nil, err
	}

	options := models.JobOptions{"splitMode": req.SplitMode}
	if req.PageRanges != "" {
		options["pageRanges"] = req.PageRanges
	}
	if req.IntervalPages > 0 {
		options["intervalPages"] = req.IntervalPages
	}

	job := s.newJob(req.Meta, models.ToolSplit, descriptors([]pdf.Document{req.File}), options)
	if err := s.jobs.Create(ctx, job); err != nil {
		s.releaseReservation(admission, job.UserID)
		return nil, err
	}
	started := time.Now()

	out, err := s.engine.Split(req.File, pdf.SplitRequest{
		Mode:       req.SplitMode,
		PageRanges: req.PageRanges,
		Interval:   req.IntervalPages,
	})
	if err != nil {
		return nil, s.failJob(ctx, job, admission, started, err, "failed to split PDF")
	}

	outputs := make(models.OutputFileList, 0, len(out.Pieces))
	ts := time.Now().UnixMilli()
	for i, piece := range out.Pieces {
		name := pieceName(req.SplitMode, piece.Label, i+1, ts)
		url, err := s.store.Upload(ctx, name, piece.Data, "application/pdf")
		if err != nil {
			s.logger.Warn("split piece upload failed, dropping piece",
				zap.String("job_id", job.ID), zap.String("pages", piece.Label), zap.Error(err))
			continue
		}
		outputs = append(outputs, models.OutputFile{
			Name:  name,
			Size:  int64(len(piece.Data)),
			Type:  "application/pdf",
			URL:   url,
			Pages: piece.Label,
		})
	}

	elapsed := time.Since(started)
	s.jobs.Complete(ctx, job.ID, outputs, elapsed.Milliseconds())
	s.finishJob(job, admission, models.ActivityPDFSplit, elapsed, out.TotalPages, map[string]interface{}{
		"split_mode":   req.SplitMode,
		"output_count": len(outputs),
		"total_pages":  out.TotalPages,
	})

	return &dto.SplitResponse{
		Message: "PDF split successfully",
		JobID:   job.ID,
		Result: dto.SplitResult{
			Files:         outputs,
			TotalFiles:    len(outputs),
			OriginalPages: out.TotalPages,
		},
	}, nil
}

// GetJob returns the caller's job record.
func (s *PDFService) GetJob(ctx context.Context, jobID, ownerID string) (*dto.JobResponse, error) {
	job, err := s.jobs.Get(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	return &dto.JobResponse{Job: dto.NewJobView(job)}, nil
}

func (s *PDFService) newJob(meta RequestMeta, tool string, inputs models.FileDescriptorList, options models.JobOptions) *models.PDFJob {
	var userID *string
	if meta.User != nil {
		userID = &meta.User.ID
	}
	platform := meta.Platform
	if platform == "" {
		platform = models.PlatformSnackPDF
	}
	var total int64
	for _, f := range inputs {
		total += f.Size
	}
	return &models.PDFJob{
		UserID:            userID,
		Platform:          platform,
		ToolName:          tool,
		JobType:           models.JobTypeSync,
		Status:            models.JobStatusProcessing,
		InputFiles:        inputs,
		ProcessingOptions: options,
		FileSizeBytes:     total,
		IPAddress:         meta.IP,
		UserAgent:         meta.UserAgent,
	}
}

// failJob closes the ledger row, returns the reserved quota unit, records
// the attempt in the audit trail and shapes the caller-facing error.
func (s *PDFService) failJob(ctx context.Context, job *models.PDFJob, admission *Admission, started time.Time, cause error, public string) error {
	s.logger.Error("pdf processing failed",
		zap.String("job_id", job.ID), zap.String("tool", job.ToolName), zap.Error(cause))
	s.jobs.Fail(ctx, job.ID, cause.Error())
	s.releaseReservation(admission, job.UserID)
	// Failed attempts still occupy a guest's daily slot through the audit
	// trail, matching the admission counting.
	s.recordActivity(job, activityAction(job.ToolName), map[string]interface{}{
		"status": "failed",
		"error":  cause.Error(),
	})
	if s.metrics != nil {
		s.metrics.ObserveJob(job.ToolName, job.Platform, string(models.JobStatusFailed), time.Since(started), 0)
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrProcessing, public), map[string]interface{}{
		"details": cause.Error(),
	})
}

// releaseReservation returns a reserved quota unit. Called whenever an
// admitted attempt fails, whether or not a ledger row was written.
func (s *PDFService) releaseReservation(admission *Admission, userID *string) {
	if admission == nil || !admission.Reserved || userID == nil {
		return
	}
	s.enqueue(tasks.Task{
		ID:      uuid.NewString(),
		Type:    TaskReleaseQuota,
		Payload: ReleaseQuotaPayload{UserID: *userID},
	})
}

func (s *PDFService) finishJob(job *models.PDFJob, admission *Admission, action string, elapsed time.Duration, pages int, details map[string]interface{}) {
	s.recordActivity(job, action, details)
	// Reserved admissions already took their unit up front; everyone else
	// with an account gets a stats-only bump.
	if job.UserID != nil && !admission.Reserved {
		s.enqueue(tasks.Task{ID: uuid.NewString(), Type: TaskIncrementUsage, Payload: IncrementUsagePayload{UserID: *job.UserID}})
	}
	if s.metrics != nil {
		s.metrics.ObserveJob(job.ToolName, job.Platform, string(models.JobStatusCompleted), elapsed, pages)
	}
}

func (s *PDFService) recordActivity(job *models.PDFJob, action string, details map[string]interface{}) {
	payload := ActivityPayload{
		UserID:       job.UserID,
		Platform:     job.Platform,
		Action:       action,
		ResourceType: "pdf_job",
		ResourceID:   job.ID,
		IPAddress:    job.IPAddress,
		UserAgent:    job.UserAgent,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			payload.Details = raw
		}
	}
	s.enqueue(tasks.Task{ID: uuid.NewString(), Type: TaskRecordActivity, Payload: payload})
}

func (s *PDFService) enqueue(task tasks.Task) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(task); err != nil {
		s.logger.Warn("side effect enqueue failed", zap.String("type", task.Type), zap.Error(err))
	}
}

func activityAction(tool string) string {
	if tool == models.ToolSplit {
		return models.ActivityPDFSplit
	}
	return models.ActivityPDFMerged
}

func descriptors(docs []pdf.Document) models.FileDescriptorList {
	list := make(models.FileDescriptorList, 0, len(docs))
	for _, d := range docs {
		list = append(list, models.FileDescriptor{
			Name: d.Name,
			Size: int64(len(d.Data)),
			Type: "application/pdf",
		})
	}
	return list
}

func pieceName(mode, label string, index int, ts int64) string {
	switch mode {
	case dto.SplitModeInterval:
		return fmt.Sprintf("part-%d-%d.pdf", index, ts)
	case dto.SplitModeRange:
		return fmt.Sprintf("pages-%s-%d.pdf", label, ts)
	default:
		return fmt.Sprintf("page-%s-%d.pdf", label, ts)
	}
}

func formatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	size := float64(bytes)
	idx := 0
	for size >= 1024 && idx < len(units)-1 {
		size /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%d Bytes", bytes)
	}
	return fmt.Sprintf("%.2f %s", size, units[idx])
}
