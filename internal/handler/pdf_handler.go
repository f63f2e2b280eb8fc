package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snackpdf/pdf-api/internal/dto"
	"github.com/snackpdf/pdf-api/internal/middleware"
	"github.com/snackpdf/pdf-api/internal/models"
	"github.com/snackpdf/pdf-api/internal/pdf"
	"github.com/snackpdf/pdf-api/internal/service"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
	"github.com/snackpdf/pdf-api/pkg/response"
)

type pdfService interface {
	Merge(ctx context.Context, req service.MergeRequest) (*dto.MergeResponse, error)
	Split(ctx context.Context, req service.SplitRequest) (*dto.SplitResponse, error)
	GetJob(ctx context.Context, jobID, ownerID string) (*dto.JobResponse, error)
}

type uploadObserver interface {
	ObserveUploadBytes(n int64)
}

// UploadLimits bounds multipart submissions.
type UploadLimits struct {
	MaxFileSizeBytes int64
	MaxFilesPerJob   int
}

// PDFHandler exposes the processing endpoints.
type PDFHandler struct {
	service pdfService
	limits  UploadLimits
	metrics uploadObserver
}

// NewPDFHandler constructs the handler.
func NewPDFHandler(service pdfService, limits UploadLimits, metrics uploadObserver) *PDFHandler {
	if limits.MaxFileSizeBytes <= 0 {
		limits.MaxFileSizeBytes = 50 * 1024 * 1024
	}
	if limits.MaxFilesPerJob <= 0 {
		limits.MaxFilesPerJob = 10
	}
	return &PDFHandler{service: service, limits: limits, metrics: metrics}
}

// Merge godoc
// @Summary Merge uploaded PDF files into one document
// @Tags PDF
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "PDF files, at least two"
// @Param platform formData string false "Originating platform tag"
// @Param options formData string false "Tool options as a JSON object"
// @Success 200 {object} dto.MergeResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /pdf/merge [post]
func (h *PDFHandler) Merge(c *gin.Context) {
	var form dto.MergeForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid merge payload"))
		return
	}
	if err := validatePlatform(form.Platform); err != nil {
		response.Error(c, err)
		return
	}

	multipartForm, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid multipart payload"))
		return
	}
	headers := multipartForm.File["files"]
	if len(headers) < 2 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "At least 2 PDF files are required for merging"))
		return
	}

	docs, err := h.readFiles(headers)
	if err != nil {
		response.Error(c, err)
		return
	}

	options := models.JobOptions{}
	if form.Options != "" {
		if err := json.Unmarshal([]byte(form.Options), &options); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "options must be a JSON object"))
			return
		}
	}

	resp, err := h.service.Merge(c.Request.Context(), service.MergeRequest{
		Meta:    h.meta(c, form.Platform),
		Files:   docs,
		Options: options,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Split godoc
// @Summary Split an uploaded PDF into multiple documents
// @Tags PDF
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Param platform formData string false "Originating platform tag"
// @Param splitMode formData string false "all, range or interval"
// @Param pageRanges formData string false "Page range expression, e.g. 1-3,5"
// @Param intervalPages formData string false "Pages per chunk for interval mode"
// @Success 200 {object} dto.SplitResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /pdf/split [post]
func (h *PDFHandler) Split(c *gin.Context) {
	var form dto.SplitForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid split payload"))
		return
	}
	if err := validatePlatform(form.Platform); err != nil {
		response.Error(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "PDF file is required"))
		return
	}
	docs, err := h.readFiles([]*multipart.FileHeader{header})
	if err != nil {
		response.Error(c, err)
		return
	}

	mode := form.SplitMode
	if mode == "" {
		mode = dto.SplitModeAll
	}
	// A non-numeric interval falls through to zero outputs rather than an
	// error, like a missing range expression.
	interval, _ := strconv.Atoi(strings.TrimSpace(form.IntervalPages))

	resp, err := h.service.Split(c.Request.Context(), service.SplitRequest{
		Meta:          h.meta(c, form.Platform),
		File:          docs[0],
		SplitMode:     mode,
		PageRanges:    form.PageRanges,
		IntervalPages: interval,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// GetJob godoc
// @Summary Fetch one of the caller's processing jobs
// @Tags PDF
// @Produce json
// @Param jobId path string true "Job identifier"
// @Success 200 {object} dto.JobResponse
// @Failure 404 {object} response.ErrorBody
// @Router /pdf/jobs/{jobId} [get]
func (h *PDFHandler) GetJob(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.service.GetJob(c.Request.Context(), c.Param("jobId"), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *PDFHandler) meta(c *gin.Context, platform string) service.RequestMeta {
	return service.RequestMeta{
		User:      middleware.CurrentUser(c),
		Platform:  platform,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (h *PDFHandler) readFiles(headers []*multipart.FileHeader) ([]pdf.Document, error) {
	if len(headers) > h.limits.MaxFilesPerJob {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "too many files"), map[string]interface{}{
			"max_files": h.limits.MaxFilesPerJob,
		})
	}

	docs := make([]pdf.Document, 0, len(headers))
	var total int64
	for _, header := range headers {
		if contentType := header.Header.Get("Content-Type"); contentType != "application/pdf" {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "Only PDF files are allowed"), map[string]interface{}{
				"file": header.Filename,
				"type": contentType,
			})
		}
		if header.Size > h.limits.MaxFileSizeBytes {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "file exceeds the size limit"), map[string]interface{}{
				"file":      header.Filename,
				"max_bytes": h.limits.MaxFileSizeBytes,
			})
		}

		src, err := header.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open uploaded file")
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file")
		}
		docs = append(docs, pdf.Document{Name: header.Filename, Data: data})
		total += int64(len(data))
	}
	if h.metrics != nil {
		h.metrics.ObserveUploadBytes(total)
	}
	return docs, nil
}

func validatePlatform(platform string) error {
	if platform == "" || models.ValidPlatform(platform) {
		return nil
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "unknown platform"), map[string]interface{}{
		"valid_values": []string{models.PlatformSnackPDF, models.PlatformRevisePDF},
	})
}
