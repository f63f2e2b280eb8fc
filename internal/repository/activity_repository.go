package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/snackpdf/pdf-api/internal/models"
)

// ActivityRepository persists activity_log rows. Guest usage is tracked in
// the same table: rows with a NULL user_id are counted per IP per UTC day.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends one activity record.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_log
	(id, user_id, platform, action, resource_type, resource_id, details, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :platform, :action, :resource_type, :resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create activity entry: %w", err)
	}
	return nil
}

// CountGuestSince counts anonymous tool uses from one IP at or after the
// given instant. The caller picks the window start, typically UTC midnight.
func (r *ActivityRepository) CountGuestSince(ctx context.Context, ip string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM activity_log
	WHERE user_id IS NULL AND ip_address = $1 AND created_at >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, ip, since); err != nil {
		return 0, fmt.Errorf("count guest activity: %w", err)
	}
	return count, nil
}
