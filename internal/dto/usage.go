package dto

import "github.com/snackpdf/pdf-api/internal/models"

// UsageStats reports a user's quota position and recent tool activity.
type UsageStats struct {
	CurrentUsage     int                     `json:"current_usage"`
	UsageLimit       int                     `json:"usage_limit"`
	SubscriptionTier models.SubscriptionTier `json:"subscription_tier"`
	UsagePercentage  int                     `json:"usage_percentage"`
	UsageByTool      map[string]int          `json:"usage_by_tool"`
	UsageByPlatform  map[string]int          `json:"usage_by_platform"`
	RecentJobs       []models.ToolUsageRow   `json:"recent_jobs"`
}

// UsageResponse is the 200 body of GET /users/usage.
type UsageResponse struct {
	Usage UsageStats `json:"usage"`
}
