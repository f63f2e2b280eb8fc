package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snackpdf/pdf-api/internal/models"
	"github.com/snackpdf/pdf-api/internal/pdf"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
	"github.com/snackpdf/pdf-api/pkg/tasks"
)

type gateStub struct {
	admission *Admission
	err       error
	calls     int
}

func (s *gateStub) Admit(ctx context.Context, user *models.User, ip string) (*Admission, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.admission != nil {
		return s.admission, nil
	}
	return &Admission{}, nil
}

type ledgerStub struct {
	createErr error
	created   []*models.PDFJob
	completed map[string]models.OutputFileList
	failed    map[string]string
	getJob    *models.PDFJob
	getErr    error
	nextID    int
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{
		completed: make(map[string]models.OutputFileList),
		failed:    make(map[string]string),
	}
}

func (s *ledgerStub) Create(ctx context.Context, job *models.PDFJob) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	job.ID = "job-" + string(rune('0'+s.nextID))
	s.created = append(s.created, job)
	return nil
}

func (s *ledgerStub) Complete(ctx context.Context, id string, outputs models.OutputFileList, durationMs int64) {
	s.completed[id] = outputs
}

func (s *ledgerStub) Fail(ctx context.Context, id, message string) {
	s.failed[id] = message
}

func (s *ledgerStub) Get(ctx context.Context, id, ownerID string) (*models.PDFJob, error) {
	return s.getJob, s.getErr
}

type engineStub struct {
	mergeOut *pdf.MergeOutput
	mergeErr error
	splitOut *pdf.SplitOutput
	splitErr error
}

func (s *engineStub) Merge(docs []pdf.Document) (*pdf.MergeOutput, error) {
	return s.mergeOut, s.mergeErr
}

func (s *engineStub) Split(doc pdf.Document, req pdf.SplitRequest) (*pdf.SplitOutput, error) {
	return s.splitOut, s.splitErr
}

type storeStub struct {
	failOn  string
	uploads []string
}

func (s *storeStub) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if s.failOn != "" && strings.Contains(name, s.failOn) {
		return "", errors.New("bucket unavailable")
	}
	s.uploads = append(s.uploads, name)
	return "https://cdn.example.com/" + name, nil
}

type queueStub struct {
	tasks []tasks.Task
	err   error
}

func (s *queueStub) Enqueue(task tasks.Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *queueStub) byType(taskType string) []tasks.Task {
	var out []tasks.Task
	for _, task := range s.tasks {
		if task.Type == taskType {
			out = append(out, task)
		}
	}
	return out
}

func mergeDocs() []pdf.Document {
	return []pdf.Document{
		{Name: "a.pdf", Data: []byte("aaaa")},
		{Name: "b.pdf", Data: []byte("bbbb")},
	}
}

func newOrchestrator(gate *gateStub, ledger *ledgerStub, engine *engineStub, store *storeStub, queue *queueStub) *PDFService {
	return NewPDFService(gate, ledger, engine, store, queue, nil, nil, zap.NewNop())
}

func TestPDFServiceMergeHappyPath(t *testing.T) {
	gate := &gateStub{}
	ledger := newLedgerStub()
	engine := &engineStub{mergeOut: &pdf.MergeOutput{Data: []byte("merged"), PageCount: 5}}
	store := &storeStub{}
	queue := &queueStub{}
	svc := newOrchestrator(gate, ledger, engine, store, queue)

	resp, err := svc.Merge(context.Background(), MergeRequest{
		Meta:  RequestMeta{IP: "203.0.113.9", UserAgent: "curl/8.0"},
		Files: mergeDocs(),
	})
	require.NoError(t, err)
	require.Equal(t, "PDFs merged successfully", resp.Message)
	require.NotEmpty(t, resp.JobID)
	require.Equal(t, 5, resp.Result.PageCount)
	require.Contains(t, resp.Result.Filename, "merged-")
	require.Contains(t, resp.Result.DownloadURL, "https://cdn.example.com/")

	require.Len(t, ledger.created, 1)
	job := ledger.created[0]
	require.Nil(t, job.UserID)
	require.Equal(t, models.ToolMerge, job.ToolName)
	require.Equal(t, models.PlatformSnackPDF, job.Platform)
	require.Equal(t, int64(8), job.FileSizeBytes)
	require.Len(t, ledger.completed[resp.JobID], 1)
	require.Empty(t, ledger.failed)

	activities := queue.byType(TaskRecordActivity)
	require.Len(t, activities, 1)
	payload := activities[0].Payload.(ActivityPayload)
	require.Equal(t, models.ActivityPDFMerged, payload.Action)
	require.Equal(t, resp.JobID, payload.ResourceID)
	require.Empty(t, queue.byType(TaskReleaseQuota))
	require.Empty(t, queue.byType(TaskIncrementUsage))
}

func TestPDFServiceMergeCountsUnreservedUse(t *testing.T) {
	user := &models.User{ID: "user-7", SubscriptionTier: models.TierPremium}
	engine := &engineStub{mergeOut: &pdf.MergeOutput{Data: []byte("merged"), PageCount: 2}}
	queue := &queueStub{}
	svc := newOrchestrator(&gateStub{}, newLedgerStub(), engine, &storeStub{}, queue)

	_, err := svc.Merge(context.Background(), MergeRequest{
		Meta:  RequestMeta{User: user},
		Files: mergeDocs(),
	})
	require.NoError(t, err)

	increments := queue.byType(TaskIncrementUsage)
	require.Len(t, increments, 1)
	require.Equal(t, "user-7", increments[0].Payload.(IncrementUsagePayload).UserID)
}

func TestPDFServiceMergeRequiresTwoFiles(t *testing.T) {
	gate := &gateStub{}
	ledger := newLedgerStub()
	svc := newOrchestrator(gate, ledger, &engineStub{}, &storeStub{}, &queueStub{})

	_, err := svc.Merge(context.Background(), MergeRequest{Files: mergeDocs()[:1]})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	require.Equal(t, http.StatusBadRequest, appErr.Status)
	require.Zero(t, gate.calls)
	require.Empty(t, ledger.created)
}

func TestPDFServiceMergeDeniedCreatesNoJob(t *testing.T) {
	gate := &gateStub{err: appErrors.Clone(appErrors.ErrUsageLimitExceeded, "")}
	ledger := newLedgerStub()
	svc := newOrchestrator(gate, ledger, &engineStub{}, &storeStub{}, &queueStub{})

	_, err := svc.Merge(context.Background(), MergeRequest{Files: mergeDocs()})
	require.Error(t, err)
	require.Equal(t, http.StatusTooManyRequests, appErrors.FromError(err).Status)
	require.Empty(t, ledger.created)
}

func TestPDFServiceMergeLedgerWriteAborts(t *testing.T) {
	ledger := newLedgerStub()
	ledger.createErr = appErrors.Clone(appErrors.ErrLedgerWrite, "")
	engine := &engineStub{mergeOut: &pdf.MergeOutput{Data: []byte("merged"), PageCount: 2}}
	store := &storeStub{}
	svc := newOrchestrator(&gateStub{}, ledger, engine, store, &queueStub{})

	_, err := svc.Merge(context.Background(), MergeRequest{Files: mergeDocs()})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrLedgerWrite.Code, appErrors.FromError(err).Code)
	require.Empty(t, store.uploads)
}

func TestPDFServiceMergeLedgerFailureReleasesReservation(t *testing.T) {
	user := &models.User{ID: "user-1", SubscriptionTier: models.TierFree, UsageLimit: 3}
	gate := &gateStub{admission: &Admission{Reserved: true}}
	ledger := newLedgerStub()
	ledger.createErr = appErrors.Clone(appErrors.ErrLedgerWrite, "")
	queue := &queueStub{}
	svc := newOrchestrator(gate, ledger, &engineStub{}, &storeStub{}, queue)

	_, err := svc.Merge(context.Background(), MergeRequest{
		Meta:  RequestMeta{User: user},
		Files: mergeDocs(),
	})
	require.Error(t, err)

	// The attempt never processed, so the reserved unit must come back.
	releases := queue.byType(TaskReleaseQuota)
	require.Len(t, releases, 1)
	require.Equal(t, "user-1", releases[0].Payload.(ReleaseQuotaPayload).UserID)
}

func TestPDFServiceSplitLedgerFailureReleasesReservation(t *testing.T) {
	user := &models.User{ID: "user-2", SubscriptionTier: models.TierFree, UsageLimit: 3}
	gate := &gateStub{admission: &Admission{Reserved: true}}
	ledger := newLedgerStub()
	ledger.createErr = appErrors.Clone(appErrors.ErrLedgerWrite, "")
	queue := &queueStub{}
	svc := newOrchestrator(gate, ledger, &engineStub{}, &storeStub{}, queue)

	_, err := svc.Split(context.Background(), SplitRequest{
		Meta:      RequestMeta{User: user},
		File:      pdf.Document{Name: "doc.pdf", Data: []byte("pdf")},
		SplitMode: "all",
	})
	require.Error(t, err)

	releases := queue.byType(TaskReleaseQuota)
	require.Len(t, releases, 1)
	require.Equal(t, "user-2", releases[0].Payload.(ReleaseQuotaPayload).UserID)
}

func TestPDFServiceMergeEngineFailureClosesJob(t *testing.T) {
	user := &models.User{ID: "user-1", SubscriptionTier: models.TierFree, UsageLimit: 3}
	gate := &gateStub{admission: &Admission{Reserved: true}}
	ledger := newLedgerStub()
	engine := &engineStub{mergeErr: &pdf.DecodeError{Name: "b.pdf", Err: errors.New("bad xref")}}
	queue := &queueStub{}
	svc := newOrchestrator(gate, ledger, engine, &storeStub{}, queue)

	_, err := svc.Merge(context.Background(), MergeRequest{
		Meta:  RequestMeta{User: user},
		Files: mergeDocs(),
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	require.Equal(t, http.StatusInternalServerError, appErr.Status)
	require.Equal(t, "failed to merge PDFs", appErr.Message)

	require.Len(t, ledger.created, 1)
	jobID := ledger.created[0].ID
	require.Contains(t, ledger.failed[jobID], "b.pdf")
	require.Empty(t, ledger.completed)

	// The reserved quota unit is returned and the attempt still audited.
	releases := queue.byType(TaskReleaseQuota)
	require.Len(t, releases, 1)
	require.Equal(t, "user-1", releases[0].Payload.(ReleaseQuotaPayload).UserID)
	require.Len(t, queue.byType(TaskRecordActivity), 1)
}

func TestPDFServiceMergeUploadFailureClosesJob(t *testing.T) {
	ledger := newLedgerStub()
	engine := &engineStub{mergeOut: &pdf.MergeOutput{Data: []byte("merged"), PageCount: 2}}
	store := &storeStub{failOn: "merged-"}
	svc := newOrchestrator(&gateStub{}, ledger, engine, store, &queueStub{})

	_, err := svc.Merge(context.Background(), MergeRequest{Files: mergeDocs()})
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)

	jobID := ledger.created[0].ID
	require.Contains(t, ledger.failed[jobID], "failed to save merged PDF")
}

func TestPDFServiceSplitHappyPath(t *testing.T) {
	ledger := newLedgerStub()
	engine := &engineStub{splitOut: &pdf.SplitOutput{
		TotalPages: 5,
		Pieces: []pdf.Piece{
			{Data: []byte("p1"), Label: "1-2"},
			{Data: []byte("p2"), Label: "3-4"},
			{Data: []byte("p3"), Label: "5-5"},
		},
	}}
	store := &storeStub{}
	queue := &queueStub{}
	svc := newOrchestrator(&gateStub{}, ledger, engine, store, queue)

	resp, err := svc.Split(context.Background(), SplitRequest{
		Meta:          RequestMeta{Platform: models.PlatformRevisePDF},
		File:          pdf.Document{Name: "doc.pdf", Data: []byte("doc")},
		SplitMode:     "interval",
		IntervalPages: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "PDF split successfully", resp.Message)
	require.Equal(t, 3, resp.Result.TotalFiles)
	require.Equal(t, 5, resp.Result.OriginalPages)
	require.Equal(t, "1-2", resp.Result.Files[0].Pages)
	require.Contains(t, resp.Result.Files[0].Name, "part-1-")
	require.Equal(t, models.PlatformRevisePDF, ledger.created[0].Platform)
	require.Len(t, ledger.completed[resp.JobID], 3)

	payload := queue.byType(TaskRecordActivity)[0].Payload.(ActivityPayload)
	require.Equal(t, models.ActivityPDFSplit, payload.Action)
}

func TestPDFServiceSplitDropsFailedPiece(t *testing.T) {
	ledger := newLedgerStub()
	engine := &engineStub{splitOut: &pdf.SplitOutput{
		TotalPages: 3,
		Pieces: []pdf.Piece{
			{Data: []byte("p1"), Label: "1"},
			{Data: []byte("p2"), Label: "2"},
			{Data: []byte("p3"), Label: "3"},
		},
	}}
	store := &storeStub{failOn: "page-2-"}
	svc := newOrchestrator(&gateStub{}, ledger, engine, store, &queueStub{})

	resp, err := svc.Split(context.Background(), SplitRequest{
		File:      pdf.Document{Name: "doc.pdf", Data: []byte("doc")},
		SplitMode: "all",
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Result.TotalFiles)
	require.Equal(t, "1", resp.Result.Files[0].Pages)
	require.Equal(t, "3", resp.Result.Files[1].Pages)

	// The job completes despite the dropped piece.
	require.Len(t, ledger.completed[resp.JobID], 2)
	require.Empty(t, ledger.failed)
}

func TestPDFServiceSplitSourceDecodeFailure(t *testing.T) {
	ledger := newLedgerStub()
	engine := &engineStub{splitErr: &pdf.DecodeError{Name: "doc.pdf", Err: errors.New("not a pdf")}}
	svc := newOrchestrator(&gateStub{}, ledger, engine, &storeStub{}, &queueStub{})

	_, err := svc.Split(context.Background(), SplitRequest{
		File:      pdf.Document{Name: "doc.pdf", Data: []byte("junk")},
		SplitMode: "all",
	})
	require.Error(t, err)
	require.Equal(t, "failed to split PDF", appErrors.FromError(err).Message)

	jobID := ledger.created[0].ID
	require.Contains(t, ledger.failed[jobID], "doc.pdf")
}

func TestPDFServiceSplitRequiresFile(t *testing.T) {
	ledger := newLedgerStub()
	svc := newOrchestrator(&gateStub{}, ledger, &engineStub{}, &storeStub{}, &queueStub{})

	_, err := svc.Split(context.Background(), SplitRequest{SplitMode: "all"})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	require.Empty(t, ledger.created)
}

func TestPDFServiceGetJob(t *testing.T) {
	ledger := newLedgerStub()
	ledger.getErr = appErrors.Clone(appErrors.ErrNotFound, "Job not found")
	svc := newOrchestrator(&gateStub{}, ledger, &engineStub{}, &storeStub{}, &queueStub{})

	_, err := svc.GetJob(context.Background(), "job-1", "user-2")
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	owner := "user-1"
	ledger.getErr = nil
	ledger.getJob = &models.PDFJob{ID: "job-1", UserID: &owner, ToolName: models.ToolMerge, Status: models.JobStatusCompleted}
	resp, err := svc.GetJob(context.Background(), "job-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, "job-1", resp.Job.ID)
	require.Equal(t, models.JobStatusCompleted, resp.Job.Status)
}
