package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus tracks the lifecycle of one processing request. Transitions are
// monotonic: processing -> completed | failed, never reversed.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Tool names accepted by the processing endpoints.
const (
	ToolMerge = "merge"
	ToolSplit = "split"
)

// JobTypeSync is the only job type: processing happens within the request.
const JobTypeSync = "sync"

// Platform tags identifying the originating product.
const (
	PlatformSnackPDF  = "snackpdf"
	PlatformRevisePDF = "revisepdf"
)

// ValidPlatform reports whether the tag names a known product.
func ValidPlatform(p string) bool {
	return p == PlatformSnackPDF || p == PlatformRevisePDF
}

// FileDescriptor describes one uploaded input file.
type FileDescriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// OutputFile describes one produced artifact with its retrieval URL.
// Pages carries the 1-based page label for split outputs.
type OutputFile struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Type  string `json:"type"`
	URL   string `json:"url"`
	Pages string `json:"pages,omitempty"`
}

// FileDescriptorList stores input descriptors as a JSONB column.
type FileDescriptorList []FileDescriptor

func (l FileDescriptorList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]FileDescriptor{})
	}
	return json.Marshal(l)
}

func (l *FileDescriptorList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// OutputFileList stores output descriptors as a JSONB column.
type OutputFileList []OutputFile

func (l OutputFileList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]OutputFile{})
	}
	return json.Marshal(l)
}

func (l *OutputFileList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// JobOptions is the tool-specific option bag stored as a JSONB column.
type JobOptions map[string]interface{}

func (o JobOptions) Value() (driver.Value, error) {
	if o == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(o)
}

func (o *JobOptions) Scan(src interface{}) error {
	return scanJSON(src, o)
}

func scanJSON(src, dst interface{}) error {
	switch data := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

// PDFJob is the durable record of one processing request.
type PDFJob struct {
	ID                string             `db:"id" json:"id"`
	UserID            *string            `db:"user_id" json:"user_id,omitempty"`
	Platform          string             `db:"platform" json:"platform"`
	ToolName          string             `db:"tool_name" json:"tool_name"`
	JobType           string             `db:"job_type" json:"job_type"`
	Status            JobStatus          `db:"status" json:"status"`
	InputFiles        FileDescriptorList `db:"input_files" json:"input_files"`
	ProcessingOptions JobOptions         `db:"processing_options" json:"processing_options,omitempty"`
	OutputFiles       OutputFileList     `db:"output_files" json:"output_files,omitempty"`
	FileSizeBytes     int64              `db:"file_size_bytes" json:"file_size_bytes"`
	ErrorMessage      *string            `db:"error_message" json:"error_message,omitempty"`
	IPAddress         string             `db:"ip_address" json:"-"`
	UserAgent         string             `db:"user_agent" json:"-"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	CompletedAt       *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
	ProcessingTimeMs  *int64             `db:"processing_time_ms" json:"processing_time_ms,omitempty"`
}
