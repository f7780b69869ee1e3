package discovery

import "time"

// DTOs for API requests/responses

type SwipeRequestDTO struct {
    TargetUserID int64 `json:"target_user_id" validate:"required,gt=0"`
}

// ProfileSummaryDTO is the candidate card returned by discovery and rewind
type ProfileSummaryDTO struct {
    UserID       int64      `json:"user_id"`
    DisplayName  string     `json:"display_name"`
    Age          *int       `json:"age,omitempty"`
    Gender       string     `json:"gender"`
    Bio          *string    `json:"bio,omitempty"`
    MainPhotoURL *string    `json:"main_photo_url,omitempty"`
    PhotoCount   int        `json:"photo_count"`
    IsVerified   bool       `json:"is_verified"`
    IsBoosted    bool       `json:"is_boosted"`
    LastActive   time.Time  `json:"last_active"`
}

// DiscoveryPageDTO is the paginated discovery response. Count keeps its
// legacy meaning (size of this page); TotalCount is the true filtered total
// so clients can compute pages.
type DiscoveryPageDTO struct {
    Count      int                  `json:"count"`
    TotalCount int                  `json:"total_count"`
    Next       *int                 `json:"next"`
    Previous   *int                 `json:"previous"`
    Results    []*ProfileSummaryDTO `json:"results"`
}

type SwipeResultDTO struct {
    Status              string `json:"status"` // liked | matched | disliked
    InteractionID       int64  `json:"interaction_id"`
    MatchID             *int64 `json:"match_id,omitempty"`
    DailyLikesRemaining int    `json:"daily_likes_remaining"`
    SuperLikesRemaining int    `json:"super_likes_remaining"`
}

type RewindResultDTO struct {
    Status          string             `json:"status"` // rewound
    ActionType      InteractionType    `json:"action_type"`
    PreviousProfile *ProfileSummaryDTO `json:"previous_profile"`
}

type QuotaDTO struct {
    Used      int `json:"used"`
    Total     int `json:"total"`
    Remaining int `json:"remaining"`
}

type DailyLimitsDTO struct {
    Likes      QuotaDTO `json:"likes"`
    SuperLikes QuotaDTO `json:"super_likes"`
    Rewinds    QuotaDTO `json:"rewinds"`
}

type InteractionDTO struct {
    ID           int64           `json:"id"`
    TargetUserID int64           `json:"target_user_id"`
    Type         InteractionType `json:"interaction_type"`
    IsRevoked    bool            `json:"is_revoked"`
    CreatedAt    time.Time       `json:"created_at"`
    RevokedAt    *time.Time      `json:"revoked_at,omitempty"`
}

type InteractionPageDTO struct {
    Count      int               `json:"count"`
    TotalCount int               `json:"total_count"`
    Next       *int              `json:"next"`
    Previous   *int              `json:"previous"`
    Results    []*InteractionDTO `json:"results"`
}

// InteractionQuery selects a slice of the caller's ledger view
type InteractionQuery struct {
    Types          []InteractionType
    IncludeRevoked bool
    OldestFirst    bool
    Page           int
    PageSize       int
}

type StatsDTO struct {
    LikesGiven      int            `json:"likes_given"`
    SuperLikesGiven int            `json:"super_likes_given"`
    DislikesGiven   int            `json:"dislikes_given"`
    RevokedTotal    int            `json:"revoked_total"`
    ActiveMatches   int            `json:"active_matches"`
    Daily           DailyLimitsDTO `json:"daily"`
}
