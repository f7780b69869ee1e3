package profile

import (
    "context"
    "database/sql"
    "time"

    "github.com/jmoiron/sqlx"
    "github.com/lib/pq"
)

type Repository interface {
    GetByUserID(ctx context.Context, userID int64) (*Profile, error)
    Update(ctx context.Context, p *Profile) error
    TouchLastActive(ctx context.Context, userID int64) error

    // Blocks
    BlockUser(ctx context.Context, userID, targetID int64) error
    UnblockUser(ctx context.Context, userID, targetID int64) error
    BlockedUserIDs(ctx context.Context, userID int64) ([]int64, error)
}

type postgresRepository struct {
    db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
    return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID int64) (*Profile, error) {
    var p Profile
    query := `
        SELECT id, user_id, display_name, bio, birth_date, gender,
               genders_sought, age_min_preference, age_max_preference,
               relationship_types_sought, latitude, longitude, distance_max_km,
               is_hidden, allow_in_discovery, verified_only, online_only,
               profile_views, likes_received, main_photo_url, photo_count,
               last_active, created_at, updated_at
        FROM profiles
        WHERE user_id = $1
    `

    err := r.db.GetContext(ctx, &p, query, userID)
    if err == sql.ErrNoRows {
        return nil, ErrProfileNotFound
    }
    if err != nil {
        return nil, err
    }

    // Defensive: legacy rows written before the NOT NULL migration
    if p.GendersSought == nil {
        p.GendersSought = pq.StringArray{}
    }
    if p.RelationshipTypesSought == nil {
        p.RelationshipTypesSought = pq.StringArray{}
    }

    return &p, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Profile) error {
    query := `
        UPDATE profiles
        SET display_name = $2, bio = $3, birth_date = $4, gender = $5,
            genders_sought = $6, age_min_preference = $7, age_max_preference = $8,
            relationship_types_sought = $9, latitude = $10, longitude = $11,
            distance_max_km = $12, is_hidden = $13, allow_in_discovery = $14,
            verified_only = $15, online_only = $16, updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $1
        RETURNING updated_at
    `

    err := r.db.QueryRowxContext(
        ctx, query,
        p.UserID, p.DisplayName, p.Bio, p.BirthDate, p.Gender,
        p.GendersSought, p.AgeMinPreference, p.AgeMaxPreference,
        p.RelationshipTypesSought, p.Latitude, p.Longitude,
        p.DistanceMaxKm, p.IsHidden, p.AllowInDiscovery,
        p.VerifiedOnly, p.OnlineOnly,
    ).Scan(&p.UpdatedAt)

    if err == sql.ErrNoRows {
        return ErrProfileNotFound
    }
    return err
}

func (r *postgresRepository) TouchLastActive(ctx context.Context, userID int64) error {
    query := `UPDATE profiles SET last_active = $2 WHERE user_id = $1`
    _, err := r.db.ExecContext(ctx, query, userID, time.Now())
    return err
}

func (r *postgresRepository) BlockUser(ctx context.Context, userID, targetID int64) error {
    query := `
        INSERT INTO user_blocks (blocker_id, blocked_id)
        VALUES ($1, $2)
        ON CONFLICT (blocker_id, blocked_id) DO NOTHING
    `
    _, err := r.db.ExecContext(ctx, query, userID, targetID)
    return err
}

func (r *postgresRepository) UnblockUser(ctx context.Context, userID, targetID int64) error {
    query := `DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2`
    _, err := r.db.ExecContext(ctx, query, userID, targetID)
    return err
}

// BlockedUserIDs returns ids blocked by the user OR blocking the user.
// Discovery treats both directions as mutually invisible.
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
