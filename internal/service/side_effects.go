package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/snackpdf/pdf-api/internal/models"
	"github.com/snackpdf/pdf-api/pkg/tasks"
)

// Task types dispatched through the side-effect queue. Nothing on the
// response path waits for these.
const (
	TaskRecordActivity = "record_activity"
	TaskReleaseQuota   = "release_quota"
	TaskIncrementUsage = "increment_usage"
)

// ActivityPayload is the queued form of one audit trail entry.
type ActivityPayload struct {
	UserID       *string
	Platform     string
	Action       string
	ResourceType string
	ResourceID   string
	Details      []byte
	IPAddress    string
	UserAgent    string
}

// ReleaseQuotaPayload returns a reserved usage unit after a failed job.
type ReleaseQuotaPayload struct {
	UserID string
}

// IncrementUsagePayload bumps the stats counter for an unreserved admission.
type IncrementUsagePayload struct {
	UserID string
}

type activityWriter interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}

type usageQuotas interface {
	Release(ctx context.Context, userID string) error
	RecordUse(ctx context.Context, userID string) error
}

// SideEffectsService consumes queued tasks: audit trail writes and quota
// compensation. Errors bubble to the queue's retry loop.
type SideEffectsService struct {
	activities activityWriter
	quotas     usageQuotas
	logger     *zap.Logger
}

// NewSideEffectsService constructs the task consumer.
func NewSideEffectsService(activities activityWriter, quotas usageQuotas, logger *zap.Logger) *SideEffectsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SideEffectsService{activities: activities, quotas: quotas, logger: logger}
}

// Handle dispatches one queued task.
func (s *SideEffectsService) Handle(ctx context.Context, task tasks.Task) error {
	switch task.Type {
	case TaskRecordActivity:
		payload, ok := task.Payload.(ActivityPayload)
		if !ok {
			s.logger.Error("unexpected payload for activity task", zap.String("task_id", task.ID))
			return nil
		}
		resourceID := payload.ResourceID
		return s.activities.Create(ctx, &models.ActivityLog{
			UserID:       payload.UserID,
			Platform:     payload.Platform,
			Action:       payload.Action,
			ResourceType: payload.ResourceType,
			ResourceID:   &resourceID,
			Details:      payload.Details,
			IPAddress:    payload.IPAddress,
			UserAgent:    payload.UserAgent,
		})
	case TaskReleaseQuota:
		payload, ok := task.Payload.(ReleaseQuotaPayload)
		if !ok {
			s.logger.Error("unexpected payload for quota task", zap.String("task_id", task.ID))
			return nil
		}
		return s.quotas.Release(ctx, payload.UserID)
	case TaskIncrementUsage:
		payload, ok := task.Payload.(IncrementUsagePayload)
		if !ok {
			s.logger.Error("unexpected payload for usage task", zap.String("task_id", task.ID))
			return nil
		}
		return s.quotas.RecordUse(ctx, payload.UserID)
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}
