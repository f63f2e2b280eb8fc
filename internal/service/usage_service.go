package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/snackpdf/pdf-api/internal/models"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
)

type quotaRepository interface {
	ReserveQuota(ctx context.Context, userID string) (bool, error)
	ReleaseQuota(ctx context.Context, userID string) error
	IncrementUsage(ctx context.Context, userID string) error
}

type guestLedger interface {
	CountGuestSince(ctx context.Context, ip string, since time.Time) (int, error)
}

// UsageConfig defines the gate limits.
type UsageConfig struct {
	GuestDailyLimit int
}

// Admission is the gate's verdict for one processing request.
type Admission struct {
	// Reserved is true when a quota unit was consumed and must be returned
	// if the job fails.
	Reserved bool
}

// UsageService admits or rejects processing requests against plan quotas.
// Guests are limited per IP per UTC day; free-tier users against their
// monthly allowance. Storage failures admit the request rather than block it.
type UsageService struct {
	quotas quotaRepository
	guests guestLedger
	logger *zap.Logger
	config UsageConfig
	now    func() time.Time
}

// NewUsageService constructs the gate.
func NewUsageService(quotas quotaRepository, guests guestLedger, logger *zap.Logger, config UsageConfig) *UsageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.GuestDailyLimit <= 0 {
		config.GuestDailyLimit = 3
	}
	return &UsageService{quotas: quotas, guests: guests, logger: logger, config: config, now: time.Now}
}

// Admit checks the caller against their limit. For free-tier users the check
// and the counter increment are a single atomic reservation, so concurrent
// requests cannot both take the last unit.
func (s *UsageService) Admit(ctx context.Context, user *models.User, ip string) (*Admission, error) {
	if user == nil {
		return s.admitGuest(ctx, ip)
	}

	if user.Unlimited() {
		return &Admission{}, nil
	}

	ok, err := s.quotas.ReserveQuota(ctx, user.ID)
	if err != nil {
		s.logger.Warn("quota reservation failed, admitting request",
			zap.String("user_id", user.ID), zap.Error(err))
		return &Admission{}, nil
	}
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrUsageLimitExceeded, map[string]interface{}{
			"limit":             user.UsageLimit,
			"current_usage":     user.UsageCount,
			"subscription_tier": string(user.SubscriptionTier),
		})
	}
	return &Admission{Reserved: true}, nil
}

func (s *UsageService) admitGuest(ctx context.Context, ip string) (*Admission, error) {
	dayStart := s.now().UTC().Truncate(24 * time.Hour)
	count, err := s.guests.CountGuestSince(ctx, ip, dayStart)
	if err != nil {
		s.logger.Warn("guest usage lookup failed, admitting request",
			zap.String("ip", ip), zap.Error(err))
		return &Admission{}, nil
	}
	if count >= s.config.GuestDailyLimit {
		resetAt := dayStart.Add(24 * time.Hour)
		return nil, appErrors.WithDetails(appErrors.ErrDailyLimitExceeded, map[string]interface{}{
			"limit":     s.config.GuestDailyLimit,
			"used":      count,
			"resets_at": resetAt.Format(time.RFC3339),
		})
	}
	return &Admission{}, nil
}

// Release returns a reserved unit after a failed job so the attempt does not
// count against the user.
func (s *UsageService) Release(ctx context.Context, userID string) error {
	if err := s.quotas.ReleaseQuota(ctx, userID); err != nil {
		s.logger.Warn("quota release failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// RecordUse bumps the usage counter for a caller admitted without a
// reservation. Unlimited plans are never gated, but their dashboards still
// track how much they process.
func (s *UsageService) RecordUse(ctx context.Context, userID string) error {
	if err := s.quotas.IncrementUsage(ctx, userID); err != nil {
		s.logger.Warn("usage increment failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}
