// internal/billing/entitlements.go
// Narrow read-side of the subscription system. Plan purchase, webhooks and
// invoicing live in the external billing service; discovery only needs
// entitlement flags and plan allowances.

package billing

import (
    "context"
    "database/sql"

    "github.com/jmoiron/sqlx"
)

// EntitlementService answers premium entitlement questions for a user
type EntitlementService struct {
    db                      *sqlx.DB
    defaultSuperLikesPerDay int
}

func NewEntitlementService(db *sqlx.DB, defaultSuperLikesPerDay int) *EntitlementService {
    return &EntitlementService{
        db:                      db,
        defaultSuperLikesPerDay: defaultSuperLikesPerDay,
    }
}

// IsPremium reports whether the user has an active, unexpired subscription
func (s *EntitlementService) IsPremium(ctx context.Context, userID int64) (bool, error) {
    var premium bool
    query := `
        SELECT EXISTS(
            SELECT 1 FROM subscriptions
            WHERE user_id = $1
              AND status = 'active'
              AND (expires_at IS NULL OR expires_at > NOW())
        )
    `

    err := s.db.GetContext(ctx, &premium, query, userID)
    return premium, err
}

// SuperLikesPerDay returns the user's plan-defined super-like allowance,
// falling back to the configured baseline when the plan doesn't override it.
func (s *EntitlementService) SuperLikesPerDay(ctx context.Context, userID int64) (int, error) {
    var allowance sql.NullInt64
    query := `
        SELECT sp.super_likes_per_day
        FROM subscriptions s
        JOIN subscription_plans sp ON s.plan_id = sp.id
        WHERE s.user_id = $1
          AND s.status = 'active'
          AND (s.expires_at IS NULL OR s.expires_at > NOW())
        ORDER BY s.created_at DESC
        LIMIT 1
    `

    err := s.db.GetContext(ctx, &allowance, query, userID)
    if err == sql.ErrNoRows {
        return s.defaultSuperLikesPerDay, nil
    }
    if err != nil {
        return 0, err
    }
    if !allowance.Valid {
        return s.defaultSuperLikesPerDay, nil
    }

    return int(allowance.Int64), nil
}
