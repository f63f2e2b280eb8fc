package models

import "time"

// Activity actions recorded by the pipeline.
const (
	ActivityPDFMerged = "pdf_merged"
	ActivityPDFSplit  = "pdf_split"
)

// ActivityLog is one audit trail record. Rows with a NULL user_id double as
// the guest usage ledger: the gate counts them per IP per UTC day.
type ActivityLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Platform     string    `db:"platform" json:"platform"`
	Action       string    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details      []byte    `db:"details" json:"details,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ToolUsageRow is the projection used for the 30-day usage breakdown.
type ToolUsageRow struct {
	ToolName  string    `db:"tool_name" json:"tool_name"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
