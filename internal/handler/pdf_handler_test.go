package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snackpdf/pdf-api/internal/dto"
	"github.com/snackpdf/pdf-api/internal/middleware"
	"github.com/snackpdf/pdf-api/internal/models"
	"github.com/snackpdf/pdf-api/internal/service"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
	"github.com/snackpdf/pdf-api/pkg/response"
)

type pdfServiceMock struct {
	mergeResp *dto.MergeResponse
	mergeErr  error
	mergeReq  service.MergeRequest
	splitResp *dto.SplitResponse
	splitErr  error
	splitReq  service.SplitRequest
	jobResp   *dto.JobResponse
	jobErr    error
	jobID     string
	ownerID   string
}

func (m *pdfServiceMock) Merge(ctx context.Context, req service.MergeRequest) (*dto.MergeResponse, error) {
	m.mergeReq = req
	return m.mergeResp, m.mergeErr
}

func (m *pdfServiceMock) Split(ctx context.Context, req service.SplitRequest) (*dto.SplitResponse, error) {
	m.splitReq = req
	return m.splitResp, m.splitErr
}

func (m *pdfServiceMock) GetJob(ctx context.Context, jobID, ownerID string) (*dto.JobResponse, error) {
	m.jobID = jobID
	m.ownerID = ownerID
	return m.jobResp, m.jobErr
}

type filePart struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files []filePart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.name))
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func pdfParts(n int) []filePart {
	parts := make([]filePart, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, filePart{
			field:       "files",
			name:        fmt.Sprintf("doc-%d.pdf", i+1),
			contentType: "application/pdf",
			data:        []byte(fmt.Sprintf("pdf-%d", i+1)),
		})
	}
	return parts
}

func testContext(t *testing.T, method, target string, body *bytes.Buffer, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, target, body)
	} else {
		req, err = http.NewRequest(method, target, nil)
	}
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.Request = req
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPDFHandlerMergeRequiresTwoFiles(t *testing.T) {
	mockSvc := &pdfServiceMock{}
	h := NewPDFHandler(mockSvc, UploadLimits{}, nil)

	body, contentType := multipartBody(t, nil, pdfParts(1))
	c, w := testContext(t, http.MethodPost, "/pdf/merge", body, contentType)

	h.Merge(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least 2 PDF files are required for merging", decodeError(t, w).Error)
}

func TestPDFHandlerMergeRejectsNonPDF(t *testing.T) {
	h := NewPDFHandler(&pdfServiceMock{}, UploadLimits{}, nil)

	files := pdfParts(2)
	files[1].contentType = "image/png"
	body, contentType := multipartBody(t, nil, files)
	c, w := testContext(t, http.MethodPost, "/pdf/merge", body, contentType)

	h.Merge(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only PDF files are allowed", decodeError(t, w).Error)
}

func TestPDFHandlerMergeRejectsTooManyFiles(t *testing.T) {
	h := NewPDFHandler(&pdfServiceMock{}, UploadLimits{MaxFilesPerJob: 3}, nil)

	body, contentType := multipartBody(t, nil, pdfParts(4))
	c, w := testContext(t, http.MethodPost, "/pdf/merge", body, contentType)

	h.Merge(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPDFHandlerMergeHappyPath(t *testing.T) {
	mockSvc := &pdfServiceMock{mergeResp: &dto.MergeResponse{
		Message: "PDFs merged successfully",
		JobID:   "job-1",
		Result:  dto.MergeResult{Filename: "merged-1.pdf", PageCount: 4},
	}}
	h := NewPDFHandler(mockSvc, UploadLimits{}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"platform": models.PlatformRevisePDF,
		"options":  `{"addBookmarks":true}`,
	}, pdfParts(2))
	c, w := testContext(t, http.MethodPost, "/pdf/merge", body, contentType)
	user := &models.User{ID: "user-1"}
	c.Set(middleware.ContextUserKey, user)

	h.Merge(c)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.MergeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)

	require.Len(t, mockSvc.mergeReq.Files, 2)
	assert.Equal(t, "doc-1.pdf", mockSvc.mergeReq.Files[0].Name)
	assert.Equal(t, models.PlatformRevisePDF, mockSvc.mergeReq.Meta.Platform)
	assert.Equal(t, user, mockSvc.mergeReq.Meta.User)
	assert.Equal(t, true, mockSvc.mergeReq.Options["addBookmarks"])
}

func TestPDFHandlerMergeRejectsMalformedOptions(t *testing.T) {
	h := NewPDFHandler(&pdfServiceMock{}, UploadLimits{}, nil)

	body, contentType := multipartBody(t, map[string]string{"options": `{"addBookmarks":`}, pdfParts(2))
	c, w := testContext(t, http.MethodPost, "/pdf/merge", body, contentType)

	h.Merge(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPDFHandlerMergeRejectsUnknownPlatform(t *testing.T) {
	h := NewPDFHandler(&pdfServiceMock{}, UploadLimits{}, nil)

	body, contentType := multipartBody(t, map[string]string{"platform": "otherpdf"}, pdfParts(2))
	c, w := testContext(t, http.MethodPost, "/pdf/merge", body, contentType)

	h.Merge(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Details, "valid_values")
}

func TestPDFHandlerMergePassesQuotaDenial(t *testing.T) {
	mockSvc := &pdfServiceMock{mergeErr: appErrors.ErrDailyLimitExceeded}
	h := NewPDFHandler(mockSvc, UploadLimits{}, nil)

	body, contentType := multipartBody(t, nil, pdfParts(2))
	c, w := testContext(t, http.MethodPost, "/pdf/merge", body, contentType)

	h.Merge(c)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, appErrors.ErrDailyLimitExceeded.Code, decodeError(t, w).Code)
}

func TestPDFHandlerSplitRequiresFile(t *testing.T) {
	h := NewPDFHandler(&pdfServiceMock{}, UploadLimits{}, nil)

	body, contentType := multipartBody(t, map[string]string{"splitMode": "all"}, nil)
	c, w := testContext(t, http.MethodPost, "/pdf/split", body, contentType)

	h.Split(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PDF file is required", decodeError(t, w).Error)
}

func TestPDFHandlerSplitHappyPath(t *testing.T) {
	mockSvc := &pdfServiceMock{splitResp: &dto.SplitResponse{
		Message: "PDF split successfully",
		JobID:   "job-2",
		Result:  dto.SplitResult{TotalFiles: 3, OriginalPages: 5},
	}}
	h := NewPDFHandler(mockSvc, UploadLimits{}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"splitMode":     "interval",
		"intervalPages": "2",
	}, []filePart{{field: "file", name: "doc.pdf", contentType: "application/pdf", data: []byte("pdf")}})
	c, w := testContext(t, http.MethodPost, "/pdf/split", body, contentType)

	h.Split(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "interval", mockSvc.splitReq.SplitMode)
	assert.Equal(t, 2, mockSvc.splitReq.IntervalPages)
	assert.Equal(t, "doc.pdf", mockSvc.splitReq.File.Name)
}

func TestPDFHandlerSplitDefaultsAndBadInterval(t *testing.T) {
	mockSvc := &pdfServiceMock{splitResp: &dto.SplitResponse{}}
	h := NewPDFHandler(mockSvc, UploadLimits{}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"intervalPages": "not-a-number",
	}, []filePart{{field: "file", name: "doc.pdf", contentType: "application/pdf", data: []byte("pdf")}})
	c, w := testContext(t, http.MethodPost, "/pdf/split", body, contentType)

	h.Split(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.SplitModeAll, mockSvc.splitReq.SplitMode)
	assert.Zero(t, mockSvc.splitReq.IntervalPages)
}

func TestPDFHandlerGetJobRequiresUser(t *testing.T) {
	h := NewPDFHandler(&pdfServiceMock{}, UploadLimits{}, nil)
	c, w := testContext(t, http.MethodGet, "/pdf/jobs/job-1", nil, "")

	h.GetJob(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPDFHandlerGetJob(t *testing.T) {
	mockSvc := &pdfServiceMock{jobResp: &dto.JobResponse{Job: dto.JobView{ID: "job-1"}}}
	h := NewPDFHandler(mockSvc, UploadLimits{}, nil)

	c, w := testContext(t, http.MethodGet, "/pdf/jobs/job-1", nil, "")
	c.Params = gin.Params{{Key: "jobId", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: "user-1"})

	h.GetJob(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "job-1", mockSvc.jobID)
	assert.Equal(t, "user-1", mockSvc.ownerID)
}

func TestPDFHandlerGetJobNotFound(t *testing.T) {
	mockSvc := &pdfServiceMock{jobErr: appErrors.Clone(appErrors.ErrNotFound, "Job not found")}
	h := NewPDFHandler(mockSvc, UploadLimits{}, nil)

	c, w := testContext(t, http.MethodGet, "/pdf/jobs/job-9", nil, "")
	c.Params = gin.Params{{Key: "jobId", Value: "job-9"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: "user-1"})

	h.GetJob(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Job not found", decodeError(t, w).Error)
}
