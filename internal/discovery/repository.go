package discovery

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/jmoiron/sqlx"
)

// Repository covers the non-ledger storage the discovery engine needs:
// the candidate read model, matches, daily counters, boost attribution and
// the legacy write-through tables.
type Repository interface {
    GetCandidate(ctx context.Context, userID int64) (*Candidate, error)
    ListVisibleCandidates(ctx context.Context, excludeUserID int64) ([]*Candidate, error)
    BlockedUserIDs(ctx context.Context, userID int64) ([]int64, error)

    IncrementProfileViews(ctx context.Context, userID int64) error
    IncrementLikesReceived(ctx context.Context, userID int64) error
    IncrementBoostViews(ctx context.Context, userID int64, now time.Time) error
    IncrementBoostLikes(ctx context.Context, userID int64, now time.Time) error

    // GetOrCreateMatch returns the match for the pair, resurrecting a
    // previously deleted row. wasCreated distinguishes brand-new matches
    // so the caller notifies exactly once.
    GetOrCreateMatch(ctx context.Context, userA, userB int64) (*Match, bool, error)
    GetMatchByID(ctx context.Context, matchID int64) (*Match, error)
    ActiveMatchBetween(ctx context.Context, userA, userB int64) (*Match, error)
    SoftDeleteMatch(ctx context.Context, matchID, deletedBy int64) error
    HardDeleteMatchBetween(ctx context.Context, userA, userB int64) error
    CountActiveMatches(ctx context.Context, userID int64) (int, error)

    GetOrCreateDailyLimit(ctx context.Context, userID int64, day string) (*DailyLikeLimit, error)
    IncrementDailyCounter(ctx context.Context, userID int64, day string, counter string) error

    InsertLegacyLike(ctx context.Context, senderID, receiverID int64, isSuper bool) error
    InsertLegacyDislike(ctx context.Context, senderID, receiverID int64, expiresAt time.Time) error
    ListLegacyLikes(ctx context.Context, afterID int64, limit int) ([]*LegacyLike, error)
    ListLegacyDislikes(ctx context.Context, afterID int64, limit int) ([]*LegacyDislike, error)
}

type postgresRepository struct {
    db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
    return &postgresRepository{db: db}
}

const candidateColumns = `
    p.user_id, p.display_name, p.bio, p.birth_date, p.gender,
    p.genders_sought, p.age_min_preference, p.age_max_preference, p.relationship_types_sought,
    p.latitude, p.longitude, p.distance_max_km,
    p.is_hidden, p.allow_in_discovery, p.verified_only, p.online_only,
    u.is_active, u.email_verified, p.is_verified,
    p.main_photo_url, p.photo_count,
    p.last_active, b.boosted_until, p.created_at
`

const candidateJoins = `
    FROM profiles p
    JOIN users u ON u.id = p.user_id
    LEFT JOIN LATERAL (
        SELECT expires_at AS boosted_until
        FROM boosts
        WHERE user_id = p.user_id AND starts_at <= NOW() AND expires_at > NOW()
        ORDER BY expires_at DESC
        LIMIT 1
    ) b ON TRUE
`

func (r *postgresRepository) GetCandidate(ctx context.Context, userID int64) (*Candidate, error) {
    var c Candidate
    query := `SELECT ` + candidateColumns + candidateJoins + ` WHERE p.user_id = $1`
    err := r.db.GetContext(ctx, &c, query, userID)
    if err == sql.ErrNoRows {
        return nil, ErrProfileNotFound
    }
    if err != nil {
        return nil, err
    }
    normalizeCandidate(&c)
    return &c, nil
}

// ListVisibleCandidates prefilters on cheap account-level visibility in SQL;
// the mutual-preference stages run in the pipeline where they are testable.
func (r *postgresRepository) ListVisibleCandidates(ctx context.Context, excludeUserID int64) ([]*Candidate, error) {
    query := `
        SELECT ` + candidateColumns + candidateJoins + `
        WHERE p.user_id <> $1
          AND u.is_active
          AND u.email_verified
          AND NOT p.is_hidden
          AND p.allow_in_discovery
        ORDER BY p.user_id
    `

    var candidates []*Candidate
    if err := r.db.SelectContext(ctx, &candidates, query, excludeUserID); err != nil {
        return nil, err
    }
    for _, c := range candidates {
        normalizeCandidate(c)
    }
    return candidates, nil
}

func normalizeCandidate(c *Candidate) {
    if c.GendersSought == nil {
        c.GendersSought = []string{}
    }
    if c.RelationshipTypesSought == nil {
        c.RelationshipTypesSought = []string{}
    }
}

// BlockedUserIDs returns blocks in either direction; a block hides both users
// from each other.
func (r *postgresRepository) BlockedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
    var ids []int64
    query := `
        SELECT blocked_id FROM user_blocks WHERE blocker_id = $1
        UNION
        SELECT blocker_id FROM user_blocks WHERE blocked_id = $1
    `
    err := r.db.SelectContext(ctx, &ids, query, userID)
    return ids, err
}

func (r *postgresRepository) IncrementProfileViews(ctx context.Context, userID int64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE profiles SET profile_views = profile_views + 1 WHERE user_id = $1`, userID)
    return err
}

func (r *postgresRepository) IncrementLikesReceived(ctx context.Context, userID int64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE profiles SET likes_received = likes_received + 1 WHERE user_id = $1`, userID)
    return err
}

func (r *postgresRepository) IncrementBoostViews(ctx context.Context, userID int64, now time.Time) error {
    _, err := r.db.ExecContext(ctx, `
        UPDATE boosts SET views_gained = views_gained + 1
        WHERE user_id = $1 AND starts_at <= $2 AND expires_at > $2
    `, userID, now)
    return err
}

func (r *postgresRepository) IncrementBoostLikes(ctx context.Context, userID int64, now time.Time) error {
    _, err := r.db.ExecContext(ctx, `
        UPDATE boosts SET likes_gained = likes_gained + 1
        WHERE user_id = $1 AND starts_at <= $2 AND expires_at > $2
    `, userID, now)
    return err
}

func (r *postgresRepository) GetOrCreateMatch(ctx context.Context, userA, userB int64) (*Match, bool, error) {
    u1, u2 := NormalizePair(userA, userB)

    var result struct {
        Match
        WasCreated bool `db:"was_created"`
    }
    // xmax = 0 only for freshly inserted rows; the conflict branch also
    // resurrects matches a user previously deleted.
    query := `
        INSERT INTO matches (user1_id, user2_id, status)
        VALUES ($1, $2, 'active')
        ON CONFLICT (user1_id, user2_id)
        DO UPDATE SET status = 'active', deleted_by = NULL
        RETURNING id, user1_id, user2_id, status, user1_unread, user2_unread,
                  last_message_at, last_message_preview, deleted_by, matched_at,
                  (xmax = 0) AS was_created
    `
    if err := r.db.GetContext(ctx, &result, query, u1, u2); err != nil {
        return nil, false, err
    }

    return &result.Match, result.WasCreated, nil
}

func (r *postgresRepository) GetMatchByID(ctx context.Context, matchID int64) (*Match, error) {
    var m Match
    query := `
        SELECT id, user1_id, user2_id, status, user1_unread, user2_unread,
               last_message_at, last_message_preview, deleted_by, matched_at
        FROM matches
        WHERE id = $1
    `
    err := r.db.GetContext(ctx, &m, query, matchID)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &m, nil
}

// SoftDeleteMatch records who ended the match. The row survives so a later
// mutual re-like can resurrect it through GetOrCreateMatch.
func (r *postgresRepository) SoftDeleteMatch(ctx context.Context, matchID, deletedBy int64) error {
    _, err := r.db.ExecContext(ctx, `
        UPDATE matches SET status = 'deleted', deleted_by = $2
        WHERE id = $1 AND status = 'active'
    `, matchID, deletedBy)
    return err
}

func (r *postgresRepository) ActiveMatchBetween(ctx context.Context, userA, userB int64) (*Match, error) {
    u1, u2 := NormalizePair(userA, userB)

    var m Match
    query := `
        SELECT id, user1_id, user2_id, status, user1_unread, user2_unread,
               last_message_at, last_message_preview, deleted_by, matched_at
        FROM matches
        WHERE user1_id = $1 AND user2_id = $2 AND status = 'active'
    `
    err := r.db.GetContext(ctx, &m, query, u1, u2)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &m, nil
}

func (r *postgresRepository) HardDeleteMatchBetween(ctx context.Context, userA, userB int64) error {
    u1, u2 := NormalizePair(userA, userB)
    _, err := r.db.ExecContext(ctx,
        `DELETE FROM matches WHERE user1_id = $1 AND user2_id = $2`, u1, u2)
    return err
}

func (r *postgresRepository) CountActiveMatches(ctx context.Context, userID int64) (int, error) {
    var count int
    query := `
        SELECT COUNT(*) FROM matches
        WHERE (user1_id = $1 OR user2_id = $1) AND status = 'active'
    `
    err := r.db.GetContext(ctx, &count, query, userID)
    return count, err
}

func (r *postgresRepository) GetOrCreateDailyLimit(ctx context.Context, userID int64, day string) (*DailyLikeLimit, error) {
    var limit DailyLikeLimit
    // The no-op DO UPDATE makes RETURNING yield the existing row on conflict
    query := `
        INSERT INTO daily_like_limits (user_id, day)
        VALUES ($1, $2::date)
        ON CONFLICT (user_id, day) DO UPDATE SET user_id = EXCLUDED.user_id
        RETURNING id, user_id, day, likes_used, super_likes_used, rewinds_used
    `
    err := r.db.GetContext(ctx, &limit, query, userID, day)
    if err != nil {
        return nil, err
    }
    return &limit, nil
}

func (r *postgresRepository) IncrementDailyCounter(ctx context.Context, userID int64, day string, counter string) error {
    var column string
    switch counter {
    case "likes":
        column = "likes_used"
    case "super_likes":
        column = "super_likes_used"
    case "rewinds":
        column = "rewinds_used"
    default:
        return fmt.Errorf("unknown daily counter %q", counter)
    }

    query := fmt.Sprintf(`
        INSERT INTO daily_like_limits (user_id, day, %s)
        VALUES ($1, $2::date, 1)
        ON CONFLICT (user_id, day) DO UPDATE SET %s = daily_like_limits.%s + 1
    `, column, column, column)

    _, err := r.db.ExecContext(ctx, query, userID, day)
    return err
}

func (r *postgresRepository) InsertLegacyLike(ctx context.Context, senderID, receiverID int64, isSuper bool) error {
    _, err := r.db.ExecContext(ctx, `
        INSERT INTO likes (sender_id, receiver_id, is_super)
        VALUES ($1, $2, $3)
        ON CONFLICT (sender_id, receiver_id) DO UPDATE SET is_super = EXCLUDED.is_super
    `, senderID, receiverID, isSuper)
    return err
}

func (r *postgresRepository) InsertLegacyDislike(ctx context.Context, senderID, receiverID int64, expiresAt time.Time) error {
    _, err := r.db.ExecContext(ctx, `
        INSERT INTO dislikes (sender_id, receiver_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (sender_id, receiver_id) DO UPDATE SET expires_at = EXCLUDED.expires_at
    `, senderID, receiverID, expiresAt)
    return err
}

func (r *postgresRepository) ListLegacyLikes(ctx context.Context, afterID int64, limit int) ([]*LegacyLike, error) {
    var likes []*LegacyLike
    query := `
        SELECT id, sender_id, receiver_id, is_super, created_at
        FROM likes
        WHERE id > $1
        ORDER BY id
        LIMIT $2
    `
    err := r.db.SelectContext(ctx, &likes, query, afterID, limit)
    return likes, err
}

func (r *postgresRepository) ListLegacyDislikes(ctx context.Context, afterID int64, limit int) ([]*LegacyDislike, error) {
    var dislikes []*LegacyDislike
    query := `
        SELECT id, sender_id, receiver_id, created_at, expires_at
        FROM dislikes
        WHERE id > $1
        ORDER BY id
        LIMIT $2
    `
    err := r.db.SelectContext(ctx, &dislikes, query, afterID, limit)
    return dislikes, err
}
