package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/snackpdf/pdf-api/internal/dto"
	"github.com/snackpdf/pdf-api/internal/models"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
)

const (
	usageStatsWindow    = 30 * 24 * time.Hour
	usageStatsRecentMax = 10
)

type statsUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type statsJobRepository interface {
	CountToolUsageByUser(ctx context.Context, userID string, since time.Time) ([]models.ToolUsageRow, error)
}

// UsageStatsService builds the quota dashboard: current counters plus a
// 30-day per-tool and per-platform breakdown, cached per user.
type UsageStatsService struct {
	users  statsUserRepository
	jobs   statsJobRepository
	cache  *CacheService
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewUsageStatsService constructs the stats service.
func NewUsageStatsService(users statsUserRepository, jobs statsJobRepository, cache *CacheService, logger *zap.Logger, ttl time.Duration) *UsageStatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UsageStatsService{users: users, jobs: jobs, cache: cache, logger: logger, ttl: ttl, now: time.Now}
}

// Stats returns the user's quota position and recent tool activity.
func (s *UsageStatsService) Stats(ctx context.Context, userID string) (*dto.UsageStats, error) {
	cacheKey := fmt.Sprintf("usage:stats:%s", userID)
	var cached dto.UsageStats
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	since := s.now().UTC().Add(-usageStatsWindow)
	rows, err := s.jobs.CountToolUsageByUser(ctx, userID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load usage breakdown")
	}

	byTool := make(map[string]int)
	byPlatform := make(map[string]int)
	for _, row := range rows {
		byTool[row.ToolName]++
		byPlatform[row.Platform]++
	}

	recent := rows
	if len(recent) > usageStatsRecentMax {
		recent = recent[:usageStatsRecentMax]
	}

	stats := &dto.UsageStats{
		CurrentUsage:     user.UsageCount,
		UsageLimit:       user.UsageLimit,
		SubscriptionTier: user.SubscriptionTier,
		UsagePercentage:  usagePercentage(user),
		UsageByTool:      byTool,
		UsageByPlatform:  byPlatform,
		RecentJobs:       recent,
	}

	if err := s.cache.Set(ctx, cacheKey, stats, s.ttl); err != nil {
		s.logger.Debug("usage stats cache write skipped", zap.String("user_id", userID), zap.Error(err))
	}
	return stats, nil
}

func usagePercentage(user *models.User) int {
	if user.Unlimited() || user.UsageLimit == 0 {
		return 0
	}
	pct := user.UsageCount * 100 / user.UsageLimit
	if pct > 100 {
		pct = 100
	}
	return pct
}
