package discovery

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/emberly-app/emberly-backend/internal/notification"
)

// Service-level errors
var (
    ErrProfileNotFound       = errors.New("profile not found")
    ErrTargetNotFound        = errors.New("target profile not found")
    ErrCannotActOnSelf       = errors.New("cannot act on your own profile")
    ErrAlreadyLiked          = errors.New("profile already liked")
    ErrAlreadyDisliked       = errors.New("profile already disliked")
    ErrAlreadyRevoked        = errors.New("interaction already revoked")
    ErrCannotRevokeMatch     = errors.New("cannot revoke an interaction backing an active match")
    ErrInteractionNotFound   = errors.New("interaction not found")
    ErrMatchNotFound         = errors.New("match not found")
    ErrDailyLimitReached     = errors.New("daily like limit reached")
    ErrSuperLikeLimitReached = errors.New("daily super like limit reached")
    ErrPremiumRequired       = errors.New("premium subscription required")
    ErrNothingToRewind       = errors.New("no recent action to rewind")
    ErrRewindLimitReached    = errors.New("daily rewind limit reached")
)

// legacyDislikeTTL mirrors what the pre-ledger dislikes table always stored
// in expires_at. The ledger's own expiry policy is Settings.DislikeExpiryDays.
const legacyDislikeTTL = 30 * 24 * time.Hour

// Entitlements is the slice of the billing system discovery depends on
type Entitlements interface {
    IsPremium(ctx context.Context, userID int64) (bool, error)
    SuperLikesPerDay(ctx context.Context, userID int64) (int, error)
}

// Settings are the tunables the engine needs, lifted out of config so tests
// can pin them.
type Settings struct {
    DefaultPageSize     int
    MaxPageSize         int
    OnlineWindow        time.Duration
    LikesPerDay         int
    LikesPerDayVerified int
    RewindsPerDay       int
    RewindWindow        time.Duration
    UnlimitedSentinel   int
    DislikeExpiryDays   int
}

type Service interface {
    DiscoverProfiles(ctx context.Context, userID int64, page, pageSize int) (*DiscoveryPageDTO, error)
    LikeProfile(ctx context.Context, userID, targetID int64, super bool) (*SwipeResultDTO, error)
    DislikeProfile(ctx context.Context, userID, targetID int64) (*SwipeResultDTO, error)
    RewindLastAction(ctx context.Context, userID int64) (*RewindResultDTO, error)
    RevokeInteraction(ctx context.Context, userID, interactionID int64) error
    Unmatch(ctx context.Context, userID, matchID int64) error
    ListInteractions(ctx context.Context, userID int64, q InteractionQuery) (*InteractionPageDTO, error)
    InteractionStats(ctx context.Context, userID int64) (*StatsDTO, error)
    DailyLikeStatus(ctx context.Context, userID int64) (*DailyLimitsDTO, error)
}

type service struct {
    ledger       LedgerRepository
    repo         Repository
    entitlements Entitlements
    notifier     notification.Notifier
    views        ViewTracker
    settings     Settings
    now          func() time.Time
}

func NewService(
    ledger LedgerRepository,
    repo Repository,
    entitlements Entitlements,
    notifier notification.Notifier,
    views ViewTracker,
    settings Settings,
) Service {
    return &service{
        ledger:       ledger,
        repo:         repo,
        entitlements: entitlements,
        notifier:     notifier,
        views:        views,
        settings:     settings,
        now:          time.Now,
    }
}

func (s *service) DiscoverProfiles(ctx context.Context, userID int64, page, pageSize int) (*DiscoveryPageDTO, error) {
    now := s.now()

    if page < 1 {
        page = 1
    }
    if pageSize <= 0 {
        pageSize = s.settings.DefaultPageSize
    }
    if pageSize > s.settings.MaxPageSize {
        pageSize = s.settings.MaxPageSize
    }

    actor, err := s.repo.GetCandidate(ctx, userID)
    if err == ErrProfileNotFound {
        // No profile yet: an empty feed, not a failure
        return emptyPage(), nil
    }
    if err != nil {
        return nil, err
    }

    exclusions, err := s.exclusionSet(ctx, userID, now)
    if err != nil {
        return nil, err
    }

    candidates, err := s.repo.ListVisibleCandidates(ctx, userID)
    if err != nil {
        return nil, err
    }

    in := FilterInput{
        Actor:        actor,
        Exclusions:   exclusions,
        Now:          now,
        OnlineWindow: s.settings.OnlineWindow,
    }
    kept := ApplyStages(in, candidates, Stages())
    Rank(kept, now)

    total := len(kept)
    offset := (page - 1) * pageSize
    pageItems := Paginate(kept, offset, pageSize)

    results := make([]*ProfileSummaryDTO, 0, len(pageItems))
    for _, c := range pageItems {
        results = append(results, toProfileSummary(c, now))
        s.countView(ctx, userID, c, now)
    }

    dto := &DiscoveryPageDTO{
        Count:      len(results),
        TotalCount: total,
        Results:    results,
    }
    if offset+len(results) < total {
        next := page + 1
        dto.Next = &next
    }
    if page > 1 {
        previous := page - 1
        dto.Previous = &previous
    }

    RecordDiscoveryRequest(len(results))
    return dto, nil
}

// countView bumps view counters at most once per dedup window. Counter
// failures never break the feed.
func (s *service) countView(ctx context.Context, viewerID int64, c *Candidate, now time.Time) {
    first, err := s.views.FirstView(ctx, viewerID, c.UserID)
    if err != nil {
        log.Printf("view dedup check failed for viewer %d viewed %d: %v", viewerID, c.UserID, err)
        return
    }
    if !first {
        return
    }

    if err := s.repo.IncrementProfileViews(ctx, c.UserID); err != nil {
        log.Printf("profile view increment failed for user %d: %v", c.UserID, err)
    }
    if c.BoostedAt(now) {
        if err := s.repo.IncrementBoostViews(ctx, c.UserID, now); err != nil {
            log.Printf("boost view increment failed for user %d: %v", c.UserID, err)
        }
    }
}

// exclusionSet gathers everyone the actor must not see: anyone with an
// active ledger entry from the actor, anyone blocked in either direction,
// and the actor themselves.
func (s *service) exclusionSet(ctx context.Context, userID int64, now time.Time) (map[int64]struct{}, error) {
    acted, err := s.ledger.ActiveTargetIDs(ctx, userID, s.dislikeCutoff(now))
    if err != nil {
        return nil, err
    }
    blocked, err := s.repo.BlockedUserIDs(ctx, userID)
    if err != nil {
        return nil, err
    }

    set := make(map[int64]struct{}, len(acted)+len(blocked)+1)
    set[userID] = struct{}{}
    for _, id := range acted {
        set[id] = struct{}{}
    }
    for _, id := range blocked {
        set[id] = struct{}{}
    }
    return set, nil
}

// dislikeCutoff returns the creation-time floor for dislikes to still count
// as exclusions, or nil when dislikes never expire.
func (s *service) dislikeCutoff(now time.Time) *time.Time {
    if s.settings.DislikeExpiryDays <= 0 {
        return nil
    }
    cutoff := now.AddDate(0, 0, -s.settings.DislikeExpiryDays)
    return &cutoff
}

// existingConflict decides whether an active ledger entry blocks a new
// swipe on the same target. A dislike past the expiry cutoff no longer
// blocks anything: the target is back in discovery, so acting on them again
// must work (Record then refreshes the stale active row in place).
func (s *service) existingConflict(existing *InteractionHistory, now time.Time) error {
    if existing == nil {
        return nil
    }
    if existing.Type.Positive() {
        return ErrAlreadyLiked
    }
    if cutoff := s.dislikeCutoff(now); cutoff != nil && existing.CreatedAt.Before(*cutoff) {
        return nil
    }
    return ErrAlreadyDisliked
}

func (s *service) LikeProfile(ctx context.Context, userID, targetID int64, super bool) (*SwipeResultDTO, error) {
    now := s.now()

    if userID == targetID {
        return nil, ErrCannotActOnSelf
    }

    actor, err := s.repo.GetCandidate(ctx, userID)
    if err != nil {
        return nil, err
    }

    target, err := s.repo.GetCandidate(ctx, targetID)
    if err == ErrProfileNotFound {
        return nil, ErrTargetNotFound
    }
    if err != nil {
        return nil, err
    }
    if !target.AccountActive {
        return nil, ErrTargetNotFound
    }

    existing, err := s.ledger.ActiveBetween(ctx, userID, targetID)
    if err != nil {
        return nil, err
    }
    if err := s.existingConflict(existing, now); err != nil {
        return nil, err
    }

    premium, err := s.entitlements.IsPremium(ctx, userID)
    if err != nil {
        return nil, err
    }

    day := DayKey(now)
    limit, err := s.repo.GetOrCreateDailyLimit(ctx, userID, day)
    if err != nil {
        return nil, err
    }

    superAllowance := 0
    if premium {
        superAllowance, err = s.entitlements.SuperLikesPerDay(ctx, userID)
        if err != nil {
            return nil, err
        }
    }

    if super {
        if !premium {
            return nil, ErrPremiumRequired
        }
        if limit.SuperLikesUsed >= superAllowance {
            RecordQuotaRejection("super_like_limit")
            return nil, ErrSuperLikeLimitReached
        }
    } else if !premium {
        if limit.LikesUsed >= s.likeAllowance(actor) {
            RecordQuotaRejection("daily_limit")
            return nil, ErrDailyLimitReached
        }
    }

    itype := InteractionLike
    if super {
        itype = InteractionSuperLike
    }

    rec, _, err := s.ledger.Record(ctx, userID, targetID, itype)
    if err != nil {
        return nil, err
    }

    // Write-through shim for readers still on the legacy tables
    if err := s.repo.InsertLegacyLike(ctx, userID, targetID, super); err != nil {
        log.Printf("legacy like write-through failed for %d->%d: %v", userID, targetID, err)
    }

    counter := "likes"
    if super {
        counter = "super_likes"
    }
    // The like is already in the ledger; a failed counter bump costs at most
    // one free swipe, not a failed request.
    if err := s.repo.IncrementDailyCounter(ctx, userID, day, counter); err != nil {
        log.Printf("daily %s counter increment failed for user %d: %v", counter, userID, err)
    }
    if super {
        limit.SuperLikesUsed++
    } else {
        limit.LikesUsed++
    }

    result := &SwipeResultDTO{
        Status:        "liked",
        InteractionID: rec.ID,
    }

    reverse, err := s.ledger.ActiveBetween(ctx, targetID, userID)
    if err != nil {
        return nil, err
    }
    if reverse != nil && reverse.Type.Positive() {
        match, wasCreated, err := s.repo.GetOrCreateMatch(ctx, userID, targetID)
        if err != nil {
            return nil, err
        }
        result.Status = "matched"
        result.MatchID = &match.ID
        if wasCreated {
            s.notifier.NotifyMatch(userID, match.ID)
            s.notifier.NotifyMatch(targetID, match.ID)
            RecordMatch()
        }
    } else {
        if err := s.repo.IncrementLikesReceived(ctx, targetID); err != nil {
            log.Printf("likes received increment failed for user %d: %v", targetID, err)
        }
        if target.BoostedAt(now) {
            if err := s.repo.IncrementBoostLikes(ctx, targetID, now); err != nil {
                log.Printf("boost like increment failed for user %d: %v", targetID, err)
            }
        }
        s.notifier.NotifyLike(targetID, userID, super)
    }

    likes, supers := s.quotas(actor, limit, premium, superAllowance)
    result.DailyLikesRemaining = likes.Remaining
    result.SuperLikesRemaining = supers.Remaining

    RecordSwipe(itype)
    return result, nil
}

func (s *service) DislikeProfile(ctx context.Context, userID, targetID int64) (*SwipeResultDTO, error) {
    now := s.now()

    if userID == targetID {
        return nil, ErrCannotActOnSelf
    }

    target, err := s.repo.GetCandidate(ctx, targetID)
    if err == ErrProfileNotFound {
        return nil, ErrTargetNotFound
    }
    if err != nil {
        return nil, err
    }
    if !target.AccountActive {
        return nil, ErrTargetNotFound
    }

    existing, err := s.ledger.ActiveBetween(ctx, userID, targetID)
    if err != nil {
        return nil, err
    }
    if err := s.existingConflict(existing, now); err != nil {
        return nil, err
    }

    rec, _, err := s.ledger.Record(ctx, userID, targetID, InteractionDislike)
    if err != nil {
        return nil, err
    }

    if err := s.repo.InsertLegacyDislike(ctx, userID, targetID, now.Add(legacyDislikeTTL)); err != nil {
        log.Printf("legacy dislike write-through failed for %d->%d: %v", userID, targetID, err)
    }

    RecordSwipe(InteractionDislike)
    return &SwipeResultDTO{
        Status:        "disliked",
        InteractionID: rec.ID,
    }, nil
}

func (s *service) RewindLastAction(ctx context.Context, userID int64) (*RewindResultDTO, error) {
    now := s.now()

    premium, err := s.entitlements.IsPremium(ctx, userID)
    if err != nil {
        return nil, err
    }
    if !premium {
        return nil, ErrPremiumRequired
    }

    day := DayKey(now)
    limit, err := s.repo.GetOrCreateDailyLimit(ctx, userID, day)
    if err != nil {
        return nil, err
    }
    if limit.RewindsUsed >= s.settings.RewindsPerDay {
        RecordQuotaRejection("rewind_limit")
        return nil, ErrRewindLimitReached
    }

    rec, err := s.ledger.LatestActionable(ctx, userID, now.Add(-s.settings.RewindWindow))
    if err != nil {
        return nil, err
    }
    if rec == nil {
        return nil, ErrNothingToRewind
    }

    // A rewound like must also unwind any match it formed. Hard deletes on
    // both: rewind means the action never happened, unlike revoke.
    if rec.Type.Positive() {
        if err := s.repo.HardDeleteMatchBetween(ctx, userID, rec.TargetID); err != nil {
            return nil, err
        }
    }
    if err := s.ledger.DeleteByID(ctx, rec.ID); err != nil {
        return nil, err
    }

    if err := s.repo.IncrementDailyCounter(ctx, userID, day, "rewinds"); err != nil {
        log.Printf("daily rewinds counter increment failed for user %d: %v", userID, err)
    }

    result := &RewindResultDTO{
        Status:     "rewound",
        ActionType: rec.Type,
    }
    if target, err := s.repo.GetCandidate(ctx, rec.TargetID); err == nil {
        result.PreviousProfile = toProfileSummary(target, now)
    }

    RecordRewind()
    return result, nil
}

func (s *service) RevokeInteraction(ctx context.Context, userID, interactionID int64) error {
    rec, err := s.ledger.GetByID(ctx, interactionID)
    if err != nil {
        return err
    }
    // Not the caller's row: indistinguishable from absent
    if rec.ActorID != userID {
        return ErrInteractionNotFound
    }
    if rec.IsRevoked {
        return ErrAlreadyRevoked
    }

    if rec.Type.Positive() {
        match, err := s.repo.ActiveMatchBetween(ctx, userID, rec.TargetID)
        if err != nil {
            return err
        }
        if match != nil {
            return ErrCannotRevokeMatch
        }
    }

    if err := s.ledger.Revoke(ctx, rec.ID); err != nil {
        return err
    }

    RecordRevocation()
    return nil
}

// Unmatch soft-deletes a match from either side. The underlying likes stay
// active in the ledger; a match only reforms if one side revokes and likes
// again, which resurrects the same match row.
func (s *service) Unmatch(ctx context.Context, userID, matchID int64) error {
    m, err := s.repo.GetMatchByID(ctx, matchID)
    if err != nil {
        return err
    }
    // Absent, already ended, or someone else's match all look the same
    if m == nil || m.Status != MatchActive || (m.User1ID != userID && m.User2ID != userID) {
        return ErrMatchNotFound
    }

    if err := s.repo.SoftDeleteMatch(ctx, matchID, userID); err != nil {
        return err
    }

    RecordUnmatch()
    return nil
}

func (s *service) ListInteractions(ctx context.Context, userID int64, q InteractionQuery) (*InteractionPageDTO, error) {
    if q.Page < 1 {
        q.Page = 1
    }
    if q.PageSize <= 0 {
        q.PageSize = s.settings.DefaultPageSize
    }
    if q.PageSize > s.settings.MaxPageSize {
        q.PageSize = s.settings.MaxPageSize
    }

    offset := (q.Page - 1) * q.PageSize
    recs, err := s.ledger.ListByActor(ctx, userID, ListOptions{
        Types:          q.Types,
        IncludeRevoked: q.IncludeRevoked,
        OldestFirst:    q.OldestFirst,
        Limit:          q.PageSize,
        Offset:         offset,
    })
    if err != nil {
        return nil, err
    }

    total, err := s.ledger.CountByActor(ctx, userID, q.Types, q.IncludeRevoked)
    if err != nil {
        return nil, err
    }

    results := make([]*InteractionDTO, 0, len(recs))
    for _, rec := range recs {
        results = append(results, &InteractionDTO{
            ID:           rec.ID,
            TargetUserID: rec.TargetID,
            Type:         rec.Type,
            IsRevoked:    rec.IsRevoked,
            CreatedAt:    rec.CreatedAt,
            RevokedAt:    rec.RevokedAt,
        })
    }

    dto := &InteractionPageDTO{
        Count:      len(results),
        TotalCount: total,
        Results:    results,
    }
    if offset+len(results) < total {
        next := q.Page + 1
        dto.Next = &next
    }
    if q.Page > 1 {
        previous := q.Page - 1
        dto.Previous = &previous
    }

    return dto, nil
}

func (s *service) InteractionStats(ctx context.Context, userID int64) (*StatsDTO, error) {
    stats, err := s.ledger.Stats(ctx, userID)
    if err != nil {
        return nil, err
    }

    matches, err := s.repo.CountActiveMatches(ctx, userID)
    if err != nil {
        return nil, err
    }

    daily, err := s.DailyLikeStatus(ctx, userID)
    if err != nil {
        return nil, err
    }

    return &StatsDTO{
        LikesGiven:      stats.LikesActive,
        SuperLikesGiven: stats.SuperLikesActive,
        DislikesGiven:   stats.DislikesActive,
        RevokedTotal:    stats.LikesRevoked + stats.SuperLikesRevoked + stats.DislikesRevoked,
        ActiveMatches:   matches,
        Daily:           *daily,
    }, nil
}

func (s *service) DailyLikeStatus(ctx context.Context, userID int64) (*DailyLimitsDTO, error) {
    now := s.now()

    actor, err := s.repo.GetCandidate(ctx, userID)
    if err != nil {
        return nil, err
    }

    premium, err := s.entitlements.IsPremium(ctx, userID)
    if err != nil {
        return nil, err
    }

    superAllowance := 0
    if premium {
        superAllowance, err = s.entitlements.SuperLikesPerDay(ctx, userID)
        if err != nil {
            return nil, err
        }
    }

    limit, err := s.repo.GetOrCreateDailyLimit(ctx, userID, DayKey(now))
    if err != nil {
        return nil, err
    }

    likes, supers := s.quotas(actor, limit, premium, superAllowance)
    rewinds := QuotaDTO{
        Used:      limit.RewindsUsed,
        Total:     s.settings.RewindsPerDay,
        Remaining: clampNonNegative(s.settings.RewindsPerDay - limit.RewindsUsed),
    }
    if !premium {
        // Rewind is premium-only; a free user has nothing to spend
        rewinds.Total = 0
        rewinds.Remaining = 0
    }

    return &DailyLimitsDTO{
        Likes:      likes,
        SuperLikes: supers,
        Rewinds:    rewinds,
    }, nil
}

func (s *service) likeAllowance(actor *Candidate) int {
    if actor.IsVerified {
        return s.settings.LikesPerDayVerified
    }
    return s.settings.LikesPerDay
}

func (s *service) quotas(actor *Candidate, limit *DailyLikeLimit, premium bool, superAllowance int) (likes, supers QuotaDTO) {
    if premium {
        likes = QuotaDTO{
            Used:      limit.LikesUsed,
            Total:     s.settings.UnlimitedSentinel,
            Remaining: s.settings.UnlimitedSentinel,
        }
        supers = QuotaDTO{
            Used:      limit.SuperLikesUsed,
            Total:     superAllowance,
            Remaining: clampNonNegative(superAllowance - limit.SuperLikesUsed),
        }
        return likes, supers
    }

    allowed := s.likeAllowance(actor)
    likes = QuotaDTO{
        Used:      limit.LikesUsed,
        Total:     allowed,
        Remaining: clampNonNegative(allowed - limit.LikesUsed),
    }
    supers = QuotaDTO{Used: limit.SuperLikesUsed}
    return likes, supers
}

func clampNonNegative(n int) int {
    if n < 0 {
        return 0
    }
    return n
}

func toProfileSummary(c *Candidate, now time.Time) *ProfileSummaryDTO {
    dto := &ProfileSummaryDTO{
        UserID:       c.UserID,
        DisplayName:  c.DisplayName,
        Gender:       c.Gender,
        Bio:          c.Bio,
        MainPhotoURL: c.MainPhotoURL,
        PhotoCount:   c.PhotoCount,
        IsVerified:   c.IsVerified,
        IsBoosted:    c.BoostedAt(now),
        LastActive:   c.LastActive,
    }
    if age, ok := c.Age(now); ok {
        dto.Age = &age
    }
    return dto
}

func emptyPage() *DiscoveryPageDTO {
    return &DiscoveryPageDTO{
        Count:      0,
        TotalCount: 0,
        Results:    []*ProfileSummaryDTO{},
    }
}
