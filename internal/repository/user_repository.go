package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/snackpdf/pdf-api/internal/models"
)

// UserRepository reads user accounts and maintains their quota counters.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves one user row.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, full_name, subscription_tier, subscription_status,
       usage_count, usage_limit, is_active, created_at, updated_at
	FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindSessionByToken retrieves the session row for a bearer token.
func (r *UserRepository) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	const query = `SELECT id, user_id, session_token, is_active, expires_at, created_at
	FROM user_sessions WHERE session_token = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, token); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeactivateSession marks a session row inactive, used when a token arrives
// for a session past its expiry.
func (r *UserRepository) DeactivateSession(ctx context.Context, id string) error {
	const query = `UPDATE user_sessions SET is_active = false WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// ReserveQuota atomically consumes one unit of the user's monthly allowance.
// The increment and the limit check happen in a single statement so two
// concurrent requests cannot both pass on the last remaining unit. Returns
// false when the user is at their limit.
func (r *UserRepository) ReserveQuota(ctx context.Context, userID string) (bool, error) {
	const query = `UPDATE users
	SET usage_count = usage_count + 1, updated_at = NOW()
	WHERE id = $1
	  AND (subscription_tier <> 'free' OR usage_limit < 0 OR usage_count < usage_limit)`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("reserve quota: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check quota rows: %w", err)
	}
	return affected > 0, nil
}

// IncrementUsage bumps the usage counter without a limit check. Used as a
// statistics counter for plans the gate never reserves against.
func (r *UserRepository) IncrementUsage(ctx context.Context, userID string) error {
	const query = `UPDATE users
	SET usage_count = usage_count + 1, updated_at = NOW()
	WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// ReleaseQuota returns a previously reserved unit after a failed job.
func (r *UserRepository) ReleaseQuota(ctx context.Context, userID string) error {
	const query = `UPDATE users
	SET usage_count = GREATEST(usage_count - 1, 0), updated_at = NOW()
	WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}
