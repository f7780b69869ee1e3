// internal/notification/notifier.go
// Fire-and-forget notification dispatch. Delivery channels (push, email)
// belong to the external notification service; we only persist the in-app
// row and never let a failure reach the caller.

package notification

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/jmoiron/sqlx"
)

// Notifier is the narrow contract the discovery engine depends on
type Notifier interface {
    NotifyMatch(userID, matchID int64)
    NotifyLike(userID, fromUserID int64, isSuper bool)
}

// AsyncNotifier writes notification rows in the background
type AsyncNotifier struct {
    db      *sqlx.DB
    timeout time.Duration
}

func NewAsyncNotifier(db *sqlx.DB) *AsyncNotifier {
    return &AsyncNotifier{
        db:      db,
        timeout: 5 * time.Second,
    }
}

func (n *AsyncNotifier) NotifyMatch(userID, matchID int64) {
    n.dispatch(userID, "match", fmt.Sprintf(`{"match_id":%d}`, matchID))
}

func (n *AsyncNotifier) NotifyLike(userID, fromUserID int64, isSuper bool) {
    kind := "like"
    if isSuper {
        kind = "super_like"
    }
    n.dispatch(userID, kind, fmt.Sprintf(`{"from_user_id":%d}`, fromUserID))
}

func (n *AsyncNotifier) dispatch(userID int64, kind, payload string) {
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
        defer cancel()

        query := `
            INSERT INTO notifications (user_id, notification_type, payload)
            VALUES ($1, $2, $3)
        `
        if _, err := n.db.ExecContext(ctx, query, userID, kind, payload); err != nil {
            log.Printf("notification dispatch failed for user %d (%s): %v", userID, kind, err)
        }
    }()
}

// NopNotifier discards all notifications. Used in tests and when the
// notifications table isn't provisioned.
type NopNotifier struct{}

func (NopNotifier) NotifyMatch(userID, matchID int64)               {}
func (NopNotifier) NotifyLike(userID, fromUserID int64, isSuper bool) {}
