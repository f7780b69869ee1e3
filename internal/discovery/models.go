package discovery

import (
    "time"

    "github.com/lib/pq"
)

// InteractionType classifies a ledger entry
type InteractionType string

const (
    InteractionLike      InteractionType = "like"
    InteractionSuperLike InteractionType = "super_like"
    InteractionDislike   InteractionType = "dislike"
)

// Positive reports whether the interaction can form a match
func (t InteractionType) Positive() bool {
    return t == InteractionLike || t == InteractionSuperLike
}

// InteractionHistory is the canonical ledger of swipe actions.
// At most one row per (actor, target, type) may have is_revoked = false;
// the store enforces this with a partial unique index.
type InteractionHistory struct {
    ID        int64           `json:"id" db:"id"`
    ActorID   int64           `json:"actor_id" db:"actor_id"`
    TargetID  int64           `json:"target_id" db:"target_id"`
    Type      InteractionType `json:"interaction_type" db:"interaction_type"`
    IsRevoked bool            `json:"is_revoked" db:"is_revoked"`
    CreatedAt time.Time       `json:"created_at" db:"created_at"`
    RevokedAt *time.Time      `json:"revoked_at,omitempty" db:"revoked_at"`
}

// Match statuses
const (
    MatchActive  = "active"
    MatchBlocked = "blocked"
    MatchDeleted = "deleted"
)

// Match is an unordered pair of mutually-liked users, stored lower id first
type Match struct {
    ID                 int64      `json:"id" db:"id"`
    User1ID            int64      `json:"user1_id" db:"user1_id"`
    User2ID            int64      `json:"user2_id" db:"user2_id"`
    Status             string     `json:"status" db:"status"`
    User1Unread        int        `json:"user1_unread" db:"user1_unread"`
    User2Unread        int        `json:"user2_unread" db:"user2_unread"`
    LastMessageAt      *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
    LastMessagePreview *string    `json:"last_message_preview,omitempty" db:"last_message_preview"`
    DeletedBy          *int64     `json:"deleted_by,omitempty" db:"deleted_by"`
    MatchedAt          time.Time  `json:"matched_at" db:"matched_at"`
}

// NormalizePair orders a user pair so the storage key is order-independent
func NormalizePair(a, b int64) (int64, int64) {
    if a > b {
        return b, a
    }
    return a, b
}

// DailyLikeLimit tracks per-day swipe allowances. Reset is structural:
// a new day key means a new row.
type DailyLikeLimit struct {
    ID             int64     `json:"id" db:"id"`
    UserID         int64     `json:"user_id" db:"user_id"`
    Day            time.Time `json:"day" db:"day"`
    LikesUsed      int       `json:"likes_used" db:"likes_used"`
    SuperLikesUsed int       `json:"super_likes_used" db:"super_likes_used"`
    RewindsUsed    int       `json:"rewinds_used" db:"rewinds_used"`
}

// DayKey returns the UTC calendar-day key for daily counters
func DayKey(t time.Time) string {
    return t.UTC().Format("2006-01-02")
}

// Boost is a timed discovery-ranking amplifier
type Boost struct {
    ID          int64     `json:"id" db:"id"`
    UserID      int64     `json:"user_id" db:"user_id"`
    StartsAt    time.Time `json:"starts_at" db:"starts_at"`
    ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
    ViewsGained int       `json:"views_gained" db:"views_gained"`
    LikesGained int       `json:"likes_gained" db:"likes_gained"`
}

// ActiveAt reports whether the boost is running at the given instant
func (b *Boost) ActiveAt(now time.Time) bool {
    return !b.StartsAt.After(now) && b.ExpiresAt.After(now)
}

// Legacy rows from the pre-ledger era. The request path never reads these;
// the write-through shim and the migration adapter keep them reconciled.

type LegacyLike struct {
    ID         int64     `db:"id"`
    SenderID   int64     `db:"sender_id"`
    ReceiverID int64     `db:"receiver_id"`
    IsSuper    bool      `db:"is_super"`
    CreatedAt  time.Time `db:"created_at"`
}

type LegacyDislike struct {
    ID         int64     `db:"id"`
    SenderID   int64     `db:"sender_id"`
    ReceiverID int64     `db:"receiver_id"`
    CreatedAt  time.Time `db:"created_at"`
    ExpiresAt  time.Time `db:"expires_at"`
}

// PreferenceSet is an explicit tagged representation of "any vs specific"
// preferences. An empty set means no restriction; there is deliberately no
// way to express "accepts nobody", which kills the historical
// empty-list-evaluated-as-falsy bug class.
type PreferenceSet struct {
    values []string
}

// NewPreferenceSet builds a set from stored values; nil is the empty set
func NewPreferenceSet(values []string) PreferenceSet {
    return PreferenceSet{values: values}
}

// Any reports whether the set imposes no restriction
func (s PreferenceSet) Any() bool {
    return len(s.values) == 0
}

// Accepts reports whether v satisfies the preference
func (s PreferenceSet) Accepts(v string) bool {
    if s.Any() {
        return true
    }
    for _, have := range s.values {
        if have == v {
            return true
        }
    }
    return false
}

// Intersects reports whether the two specific sets share a value.
// Callers must handle Any() on either side before asking.
func (s PreferenceSet) Intersects(other PreferenceSet) bool {
    for _, have := range s.values {
        for _, want := range other.values {
            if have == want {
                return true
            }
        }
    }
    return false
}

// Candidate is the discovery read model: profile preferences plus the
// account facts the filter pipeline needs, fetched in one query.
type Candidate struct {
    UserID      int64      `db:"user_id"`
    DisplayName string     `db:"display_name"`
    Bio         *string    `db:"bio"`
    BirthDate   *time.Time `db:"birth_date"`
    Gender      string     `db:"gender"`

    GendersSought           pq.StringArray `db:"genders_sought"`
    AgeMinPreference        int            `db:"age_min_preference"`
    AgeMaxPreference        int            `db:"age_max_preference"`
    RelationshipTypesSought pq.StringArray `db:"relationship_types_sought"`

    Latitude      *float64 `db:"latitude"`
    Longitude     *float64 `db:"longitude"`
    DistanceMaxKm int      `db:"distance_max_km"`

    IsHidden         bool `db:"is_hidden"`
    AllowInDiscovery bool `db:"allow_in_discovery"`
    VerifiedOnly     bool `db:"verified_only"`
    OnlineOnly       bool `db:"online_only"`

    AccountActive bool `db:"is_active"`
    EmailVerified bool `db:"email_verified"`
    IsVerified    bool `db:"is_verified"`

    MainPhotoURL *string `db:"main_photo_url"`
    PhotoCount   int     `db:"photo_count"`

    LastActive   time.Time  `db:"last_active"`
    BoostedUntil *time.Time `db:"boosted_until"`
    CreatedAt    time.Time  `db:"created_at"`
}

// Age returns the candidate's age in whole years, or false when unknown
func (c *Candidate) Age(now time.Time) (int, bool) {
    if c.BirthDate == nil {
        return 0, false
    }
    b := *c.BirthDate
    age := now.Year() - b.Year()
    if now.YearDay() < b.YearDay() {
        age--
    }
    return age, true
}

// SeekingGenders returns the tagged gender preference set
func (c *Candidate) SeekingGenders() PreferenceSet {
    return NewPreferenceSet(c.GendersSought)
}

// SeekingRelationships returns the tagged relationship-type preference set
func (c *Candidate) SeekingRelationships() PreferenceSet {
    return NewPreferenceSet(c.RelationshipTypesSought)
}

// BoostedAt reports whether the candidate has an active boost
func (c *Candidate) BoostedAt(now time.Time) bool {
    return c.BoostedUntil != nil && c.BoostedUntil.After(now)
}

// Complete reports whether the profile counts as complete for ranking:
// a bio plus at least one photo
func (c *Candidate) Complete() bool {
    return c.Bio != nil && *c.Bio != "" && c.PhotoCount > 0
}
