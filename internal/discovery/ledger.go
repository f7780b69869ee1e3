package discovery

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/jmoiron/sqlx"
    "github.com/lib/pq"
)

// ListOptions narrows and orders a ledger listing
type ListOptions struct {
    Types          []InteractionType
    IncludeRevoked bool
    OldestFirst    bool
    Limit          int
    Offset         int
}

// LedgerStats are per-type active/revoked counts for one actor
type LedgerStats struct {
    LikesActive       int
    LikesRevoked      int
    SuperLikesActive  int
    SuperLikesRevoked int
    DislikesActive    int
    DislikesRevoked   int
}

// LedgerRepository is the canonical interaction ledger. It owns the
// at-most-one-active-row-per-(actor,target,type) invariant and nothing
// else: quota accounting and notifications are the caller's concern.
type LedgerRepository interface {
    // Record is an idempotent upsert. An active row for the triple is
    // refreshed in place; a revoked row is reactivated under its original
    // id; otherwise a new row is inserted. wasCreated is true only for a
    // brand-new row. Safe under concurrent duplicate calls.
    Record(ctx context.Context, actorID, targetID int64, itype InteractionType) (*InteractionHistory, bool, error)

    // Revoke soft-cancels an entry. Revoking twice returns ErrAlreadyRevoked.
    Revoke(ctx context.Context, id int64) error

    GetByID(ctx context.Context, id int64) (*InteractionHistory, error)
    ListByActor(ctx context.Context, actorID int64, opts ListOptions) ([]*InteractionHistory, error)
    CountByActor(ctx context.Context, actorID int64, types []InteractionType, includeRevoked bool) (int, error)
    ActiveBetween(ctx context.Context, actorID, targetID int64) (*InteractionHistory, error)
    Stats(ctx context.Context, actorID int64) (*LedgerStats, error)

    // ActiveTargetIDs feeds the discovery exclusion set. When dislikeCutoff
    // is non-nil, active dislikes created before the cutoff are ignored
    // (configurable expiry policy); likes never expire.
    ActiveTargetIDs(ctx context.Context, actorID int64, dislikeCutoff *time.Time) ([]int64, error)

    // LatestActionable returns the actor's newest active entry created
    // strictly after since, for rewind.
    LatestActionable(ctx context.Context, actorID int64, since time.Time) (*InteractionHistory, error)

    // DeleteByID hard-deletes a row. Rewind only; revoke is the soft path.
    DeleteByID(ctx context.Context, id int64) error

    // Backfill support for the legacy migration adapter
    ExistsAt(ctx context.Context, actorID, targetID int64, itype InteractionType, createdAt time.Time) (bool, error)
    InsertBackfill(ctx context.Context, rec *InteractionHistory) error
}

type postgresLedger struct {
    db *sqlx.DB
}

func NewPostgresLedger(db *sqlx.DB) LedgerRepository {
    return &postgresLedger{db: db}
}

const ledgerColumns = `id, actor_id, target_id, interaction_type, is_revoked, created_at, revoked_at`

func (r *postgresLedger) Record(ctx context.Context, actorID, targetID int64, itype InteractionType) (*InteractionHistory, bool, error) {
    // Refresh an already-active row
    rec, err := r.refreshActive(ctx, actorID, targetID, itype)
    if err != nil {
        return nil, false, err
    }
    if rec != nil {
        return rec, false, nil
    }

    // Reactivate the newest revoked row, reusing its identity
    rec, err = r.reactivateRevoked(ctx, actorID, targetID, itype)
    if err != nil {
        if isUniqueViolation(err) {
            // A concurrent Record won the race to the active slot
            return r.recoverActive(ctx, actorID, targetID, itype)
        }
        return nil, false, err
    }
    if rec != nil {
        return rec, false, nil
    }

    // Fresh insert
    var created InteractionHistory
    query := `
        INSERT INTO interaction_history (actor_id, target_id, interaction_type)
        VALUES ($1, $2, $3)
        RETURNING ` + ledgerColumns
    err = r.db.GetContext(ctx, &created, query, actorID, targetID, itype)
    if err != nil {
        if isUniqueViolation(err) {
            return r.recoverActive(ctx, actorID, targetID, itype)
        }
        return nil, false, err
    }

    return &created, true, nil
}

func (r *postgresLedger) refreshActive(ctx context.Context, actorID, targetID int64, itype InteractionType) (*InteractionHistory, error) {
    var rec InteractionHistory
    query := `
        UPDATE interaction_history
        SET created_at = NOW()
        WHERE actor_id = $1 AND target_id = $2 AND interaction_type = $3 AND NOT is_revoked
        RETURNING ` + ledgerColumns
    err := r.db.GetContext(ctx, &rec, query, actorID, targetID, itype)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &rec, nil
}

func (r *postgresLedger) reactivateRevoked(ctx context.Context, actorID, targetID int64, itype InteractionType) (*InteractionHistory, error) {
    var rec InteractionHistory
    query := `
        UPDATE interaction_history
        SET is_revoked = FALSE, revoked_at = NULL, created_at = NOW()
        WHERE id = (
            SELECT id FROM interaction_history
            WHERE actor_id = $1 AND target_id = $2 AND interaction_type = $3 AND is_revoked
            ORDER BY created_at DESC
            LIMIT 1
        )
        RETURNING ` + ledgerColumns
    err := r.db.GetContext(ctx, &rec, query, actorID, targetID, itype)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &rec, nil
}

// recoverActive handles the lost side of a duplicate-call race: the other
// writer owns the active slot, so refreshing it is the idempotent outcome.
func (r *postgresLedger) recoverActive(ctx context.Context, actorID, targetID int64, itype InteractionType) (*InteractionHistory, bool, error) {
    rec, err := r.refreshActive(ctx, actorID, targetID, itype)
    if err != nil {
        return nil, false, err
    }
    if rec == nil {
        return nil, false, fmt.Errorf("ledger record race lost but no active row for (%d,%d,%s)", actorID, targetID, itype)
    }
    return rec, false, nil
}

func (r *postgresLedger) Revoke(ctx context.Context, id int64) error {
    query := `
        UPDATE interaction_history
        SET is_revoked = TRUE, revoked_at = NOW()
        WHERE id = $1 AND NOT is_revoked
    `
    res, err := r.db.ExecContext(ctx, query, id)
    if err != nil {
        return err
    }

    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        // Distinguish "gone" from "revoked twice"
        if _, err := r.GetByID(ctx, id); err != nil {
            return err
        }
        return ErrAlreadyRevoked
    }
    return nil
}

func (r *postgresLedger) GetByID(ctx context.Context, id int64) (*InteractionHistory, error) {
    var rec InteractionHistory
    query := `SELECT ` + ledgerColumns + ` FROM interaction_history WHERE id = $1`
    err := r.db.GetContext(ctx, &rec, query, id)
    if err == sql.ErrNoRows {
        return nil, ErrInteractionNotFound
    }
    if err != nil {
        return nil, err
    }
    return &rec, nil
}

func (r *postgresLedger) ListByActor(ctx context.Context, actorID int64, opts ListOptions) ([]*InteractionHistory, error) {
    query := `SELECT ` + ledgerColumns + ` FROM interaction_history WHERE actor_id = $1`
    args := []interface{}{actorID}

    if len(opts.Types) > 0 {
        query += fmt.Sprintf(" AND interaction_type = ANY($%d)", len(args)+1)
        args = append(args, pq.Array(typeStrings(opts.Types)))
    }
    if !opts.IncludeRevoked {
        query += " AND NOT is_revoked"
    }

    if opts.OldestFirst {
        query += " ORDER BY created_at ASC, id ASC"
    } else {
        query += " ORDER BY created_at DESC, id DESC"
    }

    if opts.Limit > 0 {
        query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
        args = append(args, opts.Limit, opts.Offset)
    }

    var recs []*InteractionHistory
    err := r.db.SelectContext(ctx, &recs, query, args...)
    return recs, err
}

func (r *postgresLedger) CountByActor(ctx context.Context, actorID int64, types []InteractionType, includeRevoked bool) (int, error) {
    query := `SELECT COUNT(*) FROM interaction_history WHERE actor_id = $1`
    args := []interface{}{actorID}

    if len(types) > 0 {
        query += fmt.Sprintf(" AND interaction_type = ANY($%d)", len(args)+1)
        args = append(args, pq.Array(typeStrings(types)))
    }
    if !includeRevoked {
        query += " AND NOT is_revoked"
    }

    var count int
    err := r.db.GetContext(ctx, &count, query, args...)
    return count, err
}

func (r *postgresLedger) ActiveBetween(ctx context.Context, actorID, targetID int64) (*InteractionHistory, error) {
    var rec InteractionHistory
    query := `
        SELECT ` + ledgerColumns + `
        FROM interaction_history
        WHERE actor_id = $1 AND target_id = $2 AND NOT is_revoked
        ORDER BY created_at DESC
        LIMIT 1
    `
    err := r.db.GetContext(ctx, &rec, query, actorID, targetID)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &rec, nil
}

func (r *postgresLedger) Stats(ctx context.Context, actorID int64) (*LedgerStats, error) {
    rows, err := r.db.QueryxContext(ctx, `
        SELECT interaction_type, is_revoked, COUNT(*)
        FROM interaction_history
        WHERE actor_id = $1
        GROUP BY interaction_type, is_revoked
    `, actorID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    stats := &LedgerStats{}
    for rows.Next() {
        var itype InteractionType
        var revoked bool
        var count int
        if err := rows.Scan(&itype, &revoked, &count); err != nil {
            return nil, err
        }

        switch {
        case itype == InteractionLike && !revoked:
            stats.LikesActive = count
        case itype == InteractionLike:
            stats.LikesRevoked = count
        case itype == InteractionSuperLike && !revoked:
            stats.SuperLikesActive = count
        case itype == InteractionSuperLike:
            stats.SuperLikesRevoked = count
        case itype == InteractionDislike && !revoked:
            stats.DislikesActive = count
        case itype == InteractionDislike:
            stats.DislikesRevoked = count
        }
    }

    return stats, rows.Err()
}

func (r *postgresLedger) ActiveTargetIDs(ctx context.Context, actorID int64, dislikeCutoff *time.Time) ([]int64, error) {
    var ids []int64
    query := `
        SELECT DISTINCT target_id
        FROM interaction_history
        WHERE actor_id = $1 AND NOT is_revoked
          AND (interaction_type <> 'dislike' OR $2::timestamptz IS NULL OR created_at >= $2)
    `
    err := r.db.SelectContext(ctx, &ids, query, actorID, dislikeCutoff)
    return ids, err
}

func (r *postgresLedger) LatestActionable(ctx context.Context, actorID int64, since time.Time) (*InteractionHistory, error) {
    var rec InteractionHistory
    query := `
        SELECT ` + ledgerColumns + `
        FROM interaction_history
        WHERE actor_id = $1 AND NOT is_revoked AND created_at > $2
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
    err := r.db.GetContext(ctx, &rec, query, actorID, since)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &rec, nil
}

func (r *postgresLedger) DeleteByID(ctx context.Context, id int64) error {
    _, err := r.db.ExecContext(ctx, `DELETE FROM interaction_history WHERE id = $1`, id)
    return err
}

func (r *postgresLedger) ExistsAt(ctx context.Context, actorID, targetID int64, itype InteractionType, createdAt time.Time) (bool, error) {
    var exists bool
    query := `
        SELECT EXISTS(
            SELECT 1 FROM interaction_history
            WHERE actor_id = $1 AND target_id = $2 AND interaction_type = $3 AND created_at = $4
        )
    `
    err := r.db.GetContext(ctx, &exists, query, actorID, targetID, itype, createdAt)
    return exists, err
}

func (r *postgresLedger) InsertBackfill(ctx context.Context, rec *InteractionHistory) error {
    query := `
        INSERT INTO interaction_history (actor_id, target_id, interaction_type, is_revoked, created_at, revoked_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
    return r.db.QueryRowxContext(
        ctx, query,
        rec.ActorID, rec.TargetID, rec.Type, rec.IsRevoked, rec.CreatedAt, rec.RevokedAt,
    ).Scan(&rec.ID)
}

func isUniqueViolation(err error) bool {
    if pqErr, ok := err.(*pq.Error); ok {
        return pqErr.Code == "23505"
    }
    return false
}

func typeStrings(types []InteractionType) []string {
    out := make([]string, len(types))
    for i, t := range types {
        out[i] = string(t)
    }
    return out
}
