package dto

import (
	"time"

	"github.com/snackpdf/pdf-api/internal/models"
)

// Split modes accepted by the split endpoint.
const (
	SplitModeAll      = "all"
	SplitModeRange    = "range"
	SplitModeInterval = "interval"
)

// MergeForm binds the non-file multipart fields of a merge request.
type MergeForm struct {
	Platform string `form:"platform"`
	Options  string `form:"options"`
}

// SplitForm binds the non-file multipart fields of a split request.
type SplitForm struct {
	Platform      string `form:"platform"`
	SplitMode     string `form:"splitMode"`
	PageRanges    string `form:"pageRanges"`
	IntervalPages string `form:"intervalPages"`
}

// MergeResult summarises the single merged artifact.
type MergeResult struct {
	Filename    string `json:"filename"`
	Size        string `json:"size"`
	DownloadURL string `json:"download_url"`
	PageCount   int    `json:"page_count"`
}

// MergeResponse is the 200 body of POST /pdf/merge.
type MergeResponse struct {
	Message string      `json:"message"`
	JobID   string      `json:"job_id"`
	Result  MergeResult `json:"result"`
}

// SplitResult lists the produced pieces.
type SplitResult struct {
	Files         []models.OutputFile `json:"files"`
	TotalFiles    int                 `json:"total_files"`
	OriginalPages int                 `json:"original_pages"`
}

// SplitResponse is the 200 body of POST /pdf/split.
type SplitResponse struct {
	Message string      `json:"message"`
	JobID   string      `json:"job_id"`
	Result  SplitResult `json:"result"`
}

// JobView is the owner-facing projection of a job record.
type JobView struct {
	ID               string                    `json:"id"`
	ToolName         string                    `json:"tool_name"`
	Status           models.JobStatus          `json:"status"`
	InputFiles       models.FileDescriptorList `json:"input_files"`
	OutputFiles      models.OutputFileList     `json:"output_files,omitempty"`
	ErrorMessage     *string                   `json:"error_message,omitempty"`
	ProcessingTimeMs *int64                    `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	CompletedAt      *time.Time                `json:"completed_at,omitempty"`
}

// JobResponse is the 200 body of GET /pdf/jobs/:jobId.
type JobResponse struct {
	Job JobView `json:"job"`
}

// NewJobView projects a stored job into its API shape.
func NewJobView(job *models.PDFJob) JobView {
	return JobView{
		ID:               job.ID,
		ToolName:         job.ToolName,
		Status:           job.Status,
		InputFiles:       job.InputFiles,
		OutputFiles:      job.OutputFiles,
		ErrorMessage:     job.ErrorMessage,
		ProcessingTimeMs: job.ProcessingTimeMs,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
}
