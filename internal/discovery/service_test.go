package discovery

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "testing"
    "time"

    "github.com/lib/pq"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeClock lets tests move time forward mid-scenario
type fakeClock struct {
    t time.Time
}

func (c *fakeClock) Now() time.Time {
    return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
    c.t = c.t.Add(d)
}

// fakeLedger is an in-memory LedgerRepository with the same semantics as
// the Postgres implementation, including the one-active-row invariant.
type fakeLedger struct {
    records []*InteractionHistory
    nextID  int64
    now     func() time.Time
}

func newFakeLedger(now func() time.Time) *fakeLedger {
    return &fakeLedger{nextID: 1, now: now}
}

func (l *fakeLedger) findActive(actorID, targetID int64, itype InteractionType) *InteractionHistory {
    for _, r := range l.records {
        if r.ActorID == actorID && r.TargetID == targetID && r.Type == itype && !r.IsRevoked {
            return r
        }
    }
    return nil
}

func (l *fakeLedger) Record(ctx context.Context, actorID, targetID int64, itype InteractionType) (*InteractionHistory, bool, error) {
    if active := l.findActive(actorID, targetID, itype); active != nil {
        active.CreatedAt = l.now()
        return active, false, nil
    }

    var newest *InteractionHistory
    for _, r := range l.records {
        if r.ActorID == actorID && r.TargetID == targetID && r.Type == itype && r.IsRevoked {
            if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
                newest = r
            }
        }
    }
    if newest != nil {
        newest.IsRevoked = false
        newest.RevokedAt = nil
        newest.CreatedAt = l.now()
        return newest, false, nil
    }

    rec := &InteractionHistory{
        ID:        l.nextID,
        ActorID:   actorID,
        TargetID:  targetID,
        Type:      itype,
        CreatedAt: l.now(),
    }
    l.nextID++
    l.records = append(l.records, rec)
    return rec, true, nil
}

func (l *fakeLedger) Revoke(ctx context.Context, id int64) error {
    for _, r := range l.records {
        if r.ID == id {
            if r.IsRevoked {
                return ErrAlreadyRevoked
            }
            r.IsRevoked = true
            at := l.now()
            r.RevokedAt = &at
            return nil
        }
    }
    return ErrInteractionNotFound
}

func (l *fakeLedger) GetByID(ctx context.Context, id int64) (*InteractionHistory, error) {
    for _, r := range l.records {
        if r.ID == id {
            return r, nil
        }
    }
    return nil, ErrInteractionNotFound
}

func (l *fakeLedger) ListByActor(ctx context.Context, actorID int64, opts ListOptions) ([]*InteractionHistory, error) {
    var out []*InteractionHistory
    for _, r := range l.records {
        if r.ActorID != actorID {
            continue
        }
        if !opts.IncludeRevoked && r.IsRevoked {
            continue
        }
        if len(opts.Types) > 0 && !containsType(opts.Types, r.Type) {
            continue
        }
        out = append(out, r)
    }

    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            if opts.OldestFirst {
                return out[i].CreatedAt.Before(out[j].CreatedAt)
            }
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        if opts.OldestFirst {
            return out[i].ID < out[j].ID
        }
        return out[i].ID > out[j].ID
    })

    if opts.Limit > 0 {
        if opts.Offset >= len(out) {
            return nil, nil
        }
        end := opts.Offset + opts.Limit
        if end > len(out) {
            end = len(out)
        }
        out = out[opts.Offset:end]
    }
    return out, nil
}

func (l *fakeLedger) CountByActor(ctx context.Context, actorID int64, types []InteractionType, includeRevoked bool) (int, error) {
    count := 0
    for _, r := range l.records {
        if r.ActorID != actorID {
            continue
        }
        if !includeRevoked && r.IsRevoked {
            continue
        }
        if len(types) > 0 && !containsType(types, r.Type) {
            continue
        }
        count++
    }
    return count, nil
}

func (l *fakeLedger) ActiveBetween(ctx context.Context, actorID, targetID int64) (*InteractionHistory, error) {
    var newest *InteractionHistory
    for _, r := range l.records {
        if r.ActorID == actorID && r.TargetID == targetID && !r.IsRevoked {
            if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
                newest = r
            }
        }
    }
    return newest, nil
}

func (l *fakeLedger) Stats(ctx context.Context, actorID int64) (*LedgerStats, error) {
    stats := &LedgerStats{}
    for _, r := range l.records {
        if r.ActorID != actorID {
            continue
        }
        switch {
        case r.Type == InteractionLike && !r.IsRevoked:
            stats.LikesActive++
        case r.Type == InteractionLike:
            stats.LikesRevoked++
        case r.Type == InteractionSuperLike && !r.IsRevoked:
            stats.SuperLikesActive++
        case r.Type == InteractionSuperLike:
            stats.SuperLikesRevoked++
        case r.Type == InteractionDislike && !r.IsRevoked:
            stats.DislikesActive++
        case r.Type == InteractionDislike:
            stats.DislikesRevoked++
        }
    }
    return stats, nil
}

func (l *fakeLedger) ActiveTargetIDs(ctx context.Context, actorID int64, dislikeCutoff *time.Time) ([]int64, error) {
    seen := map[int64]struct{}{}
    var ids []int64
    for _, r := range l.records {
        if r.ActorID != actorID || r.IsRevoked {
            continue
        }
        if r.Type == InteractionDislike && dislikeCutoff != nil && r.CreatedAt.Before(*dislikeCutoff) {
            continue
        }
        if _, ok := seen[r.TargetID]; !ok {
            seen[r.TargetID] = struct{}{}
            ids = append(ids, r.TargetID)
        }
    }
    return ids, nil
}

func (l *fakeLedger) LatestActionable(ctx context.Context, actorID int64, since time.Time) (*InteractionHistory, error) {
    var newest *InteractionHistory
    for _, r := range l.records {
        if r.ActorID == actorID && !r.IsRevoked && r.CreatedAt.After(since) {
            if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
                newest = r
            }
        }
    }
    return newest, nil
}

func (l *fakeLedger) DeleteByID(ctx context.Context, id int64) error {
    for i, r := range l.records {
        if r.ID == id {
            l.records = append(l.records[:i], l.records[i+1:]...)
            return nil
        }
    }
    return nil
}

func (l *fakeLedger) ExistsAt(ctx context.Context, actorID, targetID int64, itype InteractionType, createdAt time.Time) (bool, error) {
    for _, r := range l.records {
        if r.ActorID == actorID && r.TargetID == targetID && r.Type == itype && r.CreatedAt.Equal(createdAt) {
            return true, nil
        }
    }
    return false, nil
}

func (l *fakeLedger) InsertBackfill(ctx context.Context, rec *InteractionHistory) error {
    if !rec.IsRevoked && l.findActive(rec.ActorID, rec.TargetID, rec.Type) != nil {
        return &pq.Error{Code: "23505"}
    }
    rec.ID = l.nextID
    l.nextID++
    l.records = append(l.records, rec)
    return nil
}

func containsType(types []InteractionType, t InteractionType) bool {
    for _, have := range types {
        if have == t {
            return true
        }
    }
    return false
}

// fakeRepo is an in-memory Repository
type fakeRepo struct {
    candidates     map[int64]*Candidate
    blocks         map[int64][]int64
    matches        []*Match
    nextMatchID    int64
    limits         map[string]*DailyLikeLimit
    nextLimitID    int64
    legacyLikes    []*LegacyLike
    legacyDislikes []*LegacyDislike
    nextLegacyID   int64
    profileViews   map[int64]int
    likesReceived  map[int64]int
    counterErr     error
}

func newFakeRepo() *fakeRepo {
    return &fakeRepo{
        candidates:    map[int64]*Candidate{},
        blocks:        map[int64][]int64{},
        nextMatchID:   1,
        limits:        map[string]*DailyLikeLimit{},
        nextLimitID:   1,
        nextLegacyID:  1,
        profileViews:  map[int64]int{},
        likesReceived: map[int64]int{},
    }
}

func (r *fakeRepo) GetCandidate(ctx context.Context, userID int64) (*Candidate, error) {
    c, ok := r.candidates[userID]
    if !ok {
        return nil, ErrProfileNotFound
    }
    return c, nil
}

func (r *fakeRepo) ListVisibleCandidates(ctx context.Context, excludeUserID int64) ([]*Candidate, error) {
    var out []*Candidate
    for _, c := range r.candidates {
        if c.UserID == excludeUserID {
            continue
        }
        out = append(out, c)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
    return out, nil
}

func (r *fakeRepo) BlockedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
    return r.blocks[userID], nil
}

func (r *fakeRepo) IncrementProfileViews(ctx context.Context, userID int64) error {
    r.profileViews[userID]++
    return nil
}

func (r *fakeRepo) IncrementLikesReceived(ctx context.Context, userID int64) error {
    r.likesReceived[userID]++
    return nil
}

func (r *fakeRepo) IncrementBoostViews(ctx context.Context, userID int64, now time.Time) error {
    return nil
}

func (r *fakeRepo) IncrementBoostLikes(ctx context.Context, userID int64, now time.Time) error {
    return nil
}

func (r *fakeRepo) GetOrCreateMatch(ctx context.Context, userA, userB int64) (*Match, bool, error) {
    u1, u2 := NormalizePair(userA, userB)
    for _, m := range r.matches {
        if m.User1ID == u1 && m.User2ID == u2 {
            created := false
            if m.Status != MatchActive {
                m.Status = MatchActive
                m.DeletedBy = nil
            }
            return m, created, nil
        }
    }
    m := &Match{ID: r.nextMatchID, User1ID: u1, User2ID: u2, Status: MatchActive, MatchedAt: testNow}
    r.nextMatchID++
    r.matches = append(r.matches, m)
    return m, true, nil
}

func (r *fakeRepo) GetMatchByID(ctx context.Context, matchID int64) (*Match, error) {
    for _, m := range r.matches {
        if m.ID == matchID {
            return m, nil
        }
    }
    return nil, nil
}

func (r *fakeRepo) SoftDeleteMatch(ctx context.Context, matchID, deletedBy int64) error {
    for _, m := range r.matches {
        if m.ID == matchID && m.Status == MatchActive {
            m.Status = MatchDeleted
            m.DeletedBy = &deletedBy
        }
    }
    return nil
}

func (r *fakeRepo) ActiveMatchBetween(ctx context.Context, userA, userB int64) (*Match, error) {
    u1, u2 := NormalizePair(userA, userB)
    for _, m := range r.matches {
        if m.User1ID == u1 && m.User2ID == u2 && m.Status == MatchActive {
            return m, nil
        }
    }
    return nil, nil
}

func (r *fakeRepo) HardDeleteMatchBetween(ctx context.Context, userA, userB int64) error {
    u1, u2 := NormalizePair(userA, userB)
    for i, m := range r.matches {
        if m.User1ID == u1 && m.User2ID == u2 {
            r.matches = append(r.matches[:i], r.matches[i+1:]...)
            return nil
        }
    }
    return nil
}

func (r *fakeRepo) CountActiveMatches(ctx context.Context, userID int64) (int, error) {
    count := 0
    for _, m := range r.matches {
        if (m.User1ID == userID || m.User2ID == userID) && m.Status == MatchActive {
            count++
        }
    }
    return count, nil
}

func (r *fakeRepo) getOrCreateDailyLimitRow(userID int64, day string) *DailyLikeLimit {
    key := fmt.Sprintf("%d:%s", userID, day)
    if limit, ok := r.limits[key]; ok {
        return limit
    }
    limit := &DailyLikeLimit{ID: r.nextLimitID, UserID: userID}
    r.nextLimitID++
    r.limits[key] = limit
    return limit
}

func (r *fakeRepo) GetOrCreateDailyLimit(ctx context.Context, userID int64, day string) (*DailyLikeLimit, error) {
    // Like the Postgres implementation, callers get a snapshot of the row,
    // not an alias of the stored state.
    limit := *r.getOrCreateDailyLimitRow(userID, day)
    return &limit, nil
}

func (r *fakeRepo) IncrementDailyCounter(ctx context.Context, userID int64, day string, counter string) error {
    if r.counterErr != nil {
        return r.counterErr
    }
    limit := r.getOrCreateDailyLimitRow(userID, day)
    switch counter {
    case "likes":
        limit.LikesUsed++
    case "super_likes":
        limit.SuperLikesUsed++
    case "rewinds":
        limit.RewindsUsed++
    default:
        return fmt.Errorf("unknown daily counter %q", counter)
    }
    return nil
}

func (r *fakeRepo) InsertLegacyLike(ctx context.Context, senderID, receiverID int64, isSuper bool) error {
    for _, like := range r.legacyLikes {
        if like.SenderID == senderID && like.ReceiverID == receiverID {
            like.IsSuper = isSuper
            return nil
        }
    }
    r.legacyLikes = append(r.legacyLikes, &LegacyLike{
        ID: r.nextLegacyID, SenderID: senderID, ReceiverID: receiverID, IsSuper: isSuper, CreatedAt: testNow,
    })
    r.nextLegacyID++
    return nil
}

func (r *fakeRepo) InsertLegacyDislike(ctx context.Context, senderID, receiverID int64, expiresAt time.Time) error {
    for _, dislike := range r.legacyDislikes {
        if dislike.SenderID == senderID && dislike.ReceiverID == receiverID {
            dislike.ExpiresAt = expiresAt
            return nil
        }
    }
    r.legacyDislikes = append(r.legacyDislikes, &LegacyDislike{
        ID: r.nextLegacyID, SenderID: senderID, ReceiverID: receiverID, CreatedAt: testNow, ExpiresAt: expiresAt,
    })
    r.nextLegacyID++
    return nil
}

func (r *fakeRepo) ListLegacyLikes(ctx context.Context, afterID int64, limit int) ([]*LegacyLike, error) {
    var out []*LegacyLike
    for _, like := range r.legacyLikes {
        if like.ID > afterID {
            out = append(out, like)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    if len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

func (r *fakeRepo) ListLegacyDislikes(ctx context.Context, afterID int64, limit int) ([]*LegacyDislike, error) {
    var out []*LegacyDislike
    for _, dislike := range r.legacyDislikes {
        if dislike.ID > afterID {
            out = append(out, dislike)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    if len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

// fakeEntitlements answers premium checks from a map
type fakeEntitlements struct {
    premium        map[int64]bool
    superAllowance int
}

func (e *fakeEntitlements) IsPremium(ctx context.Context, userID int64) (bool, error) {
    return e.premium[userID], nil
}

func (e *fakeEntitlements) SuperLikesPerDay(ctx context.Context, userID int64) (int, error) {
    return e.superAllowance, nil
}

// countingNotifier records what was dispatched
type countingNotifier struct {
    matchNotices []int64
    likeNotices  []int64
}

func (n *countingNotifier) NotifyMatch(userID, matchID int64) {
    n.matchNotices = append(n.matchNotices, userID)
}

func (n *countingNotifier) NotifyLike(userID, fromUserID int64, isSuper bool) {
    n.likeNotices = append(n.likeNotices, userID)
}

func testSettings() Settings {
    return Settings{
        DefaultPageSize:     20,
        MaxPageSize:         50,
        OnlineWindow:        5 * time.Minute,
        LikesPerDay:         20,
        LikesPerDayVerified: 30,
        RewindsPerDay:       3,
        RewindWindow:        5 * time.Minute,
        UnlimitedSentinel:   999,
        DislikeExpiryDays:   0,
    }
}

func testCandidate(userID int64) *Candidate {
    birth := testNow.AddDate(-25, 0, 0)
    return &Candidate{
        UserID:                  userID,
        DisplayName:             fmt.Sprintf("user-%d", userID),
        BirthDate:               &birth,
        Gender:                  "",
        GendersSought:           []string{},
        AgeMinPreference:        18,
        AgeMaxPreference:        99,
        RelationshipTypesSought: []string{},
        AllowInDiscovery:        true,
        AccountActive:           true,
        EmailVerified:           true,
        LastActive:              testNow,
        CreatedAt:               testNow.AddDate(-1, 0, 0),
    }
}

type testEnv struct {
    svc      *service
    ledger   *fakeLedger
    repo     *fakeRepo
    ents     *fakeEntitlements
    notifier *countingNotifier
    clock    *fakeClock
}

func newTestEnv(userIDs ...int64) *testEnv {
    clock := &fakeClock{t: testNow}
    ledger := newFakeLedger(clock.Now)
    repo := newFakeRepo()
    for _, id := range userIDs {
        repo.candidates[id] = testCandidate(id)
    }
    ents := &fakeEntitlements{premium: map[int64]bool{}, superAllowance: 3}
    notifier := &countingNotifier{}

    svc := NewService(ledger, repo, ents, notifier, NopViewTracker{}, testSettings()).(*service)
    svc.now = clock.Now

    return &testEnv{svc: svc, ledger: ledger, repo: repo, ents: ents, notifier: notifier, clock: clock}
}

func (e *testEnv) seedLimit(userID int64, likes, supers, rewinds int) {
    key := fmt.Sprintf("%d:%s", userID, DayKey(e.clock.Now()))
    e.repo.limits[key] = &DailyLikeLimit{ID: e.repo.nextLimitID, UserID: userID,
        LikesUsed: likes, SuperLikesUsed: supers, RewindsUsed: rewinds}
    e.repo.nextLimitID++
}

func feedUserIDs(t *testing.T, env *testEnv, userID int64) []int64 {
    t.Helper()
    page, err := env.svc.DiscoverProfiles(context.Background(), userID, 1, 50)
    require.NoError(t, err)
    ids := make([]int64, 0, len(page.Results))
    for _, r := range page.Results {
        ids = append(ids, r.UserID)
    }
    return ids
}

func TestLikeProfileRecordsInteraction(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)

    assert.Equal(t, "liked", result.Status)
    assert.Nil(t, result.MatchID)
    assert.Equal(t, 19, result.DailyLikesRemaining)

    rec, err := env.ledger.GetByID(ctx, result.InteractionID)
    require.NoError(t, err)
    assert.Equal(t, int64(1), rec.ActorID)
    assert.Equal(t, int64(2), rec.TargetID)
    assert.Equal(t, InteractionLike, rec.Type)
    assert.False(t, rec.IsRevoked)

    // Write-through keeps the legacy table in step
    require.Len(t, env.repo.legacyLikes, 1)
    assert.Equal(t, int64(1), env.repo.legacyLikes[0].SenderID)

    assert.Equal(t, 1, env.repo.likesReceived[2])
    assert.Equal(t, []int64{2}, env.notifier.likeNotices)
}

func TestLikeProfileDailyLimit(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    env.seedLimit(1, 20, 0, 0)

    _, err := env.svc.LikeProfile(ctx, 1, 2, false)
    assert.ErrorIs(t, err, ErrDailyLimitReached)

    // Verified profiles get the higher allowance
    env.repo.candidates[1].IsVerified = true
    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    assert.Equal(t, 30-21, result.DailyLikesRemaining)
}

func TestLikeProfilePremiumBypassesLimit(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    env.ents.premium[1] = true
    env.seedLimit(1, 500, 0, 0)

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    assert.Equal(t, 999, result.DailyLikesRemaining)
}

func TestLikeLimitReachedByConsecutiveSwipes(t *testing.T) {
    ids := make([]int64, 0, 22)
    for i := int64(1); i <= 22; i++ {
        ids = append(ids, i)
    }
    env := newTestEnv(ids...)
    ctx := context.Background()

    for i := int64(2); i <= 21; i++ {
        result, err := env.svc.LikeProfile(ctx, 1, i, false)
        require.NoError(t, err)
        assert.Equal(t, 20-int(i-1), result.DailyLikesRemaining)
    }

    _, err := env.svc.LikeProfile(ctx, 1, 22, false)
    assert.ErrorIs(t, err, ErrDailyLimitReached)
}

func TestLikeSurvivesCounterIncrementFailure(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()
    env.repo.counterErr = errors.New("deadlock detected")

    // The like is committed to the ledger before the counter bump; a
    // counter failure must not turn a recorded swipe into an error
    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    assert.Equal(t, "liked", result.Status)
    assert.Equal(t, 19, result.DailyLikesRemaining)

    rec, err := env.ledger.GetByID(ctx, result.InteractionID)
    require.NoError(t, err)
    assert.False(t, rec.IsRevoked)
}

func TestMutualLikeCreatesMatchOnce(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 2, 1, false)
    require.NoError(t, err)

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)

    assert.Equal(t, "matched", result.Status)
    require.NotNil(t, result.MatchID)
    require.Len(t, env.repo.matches, 1)
    assert.Equal(t, int64(1), env.repo.matches[0].User1ID)
    assert.Equal(t, int64(2), env.repo.matches[0].User2ID)

    // Both sides notified, exactly once each
    assert.ElementsMatch(t, []int64{1, 2}, env.notifier.matchNotices)

    // Repeating the like is rejected, not double-matched
    _, err = env.svc.LikeProfile(ctx, 1, 2, false)
    assert.ErrorIs(t, err, ErrAlreadyLiked)
    assert.Len(t, env.repo.matches, 1)
    assert.Len(t, env.notifier.matchNotices, 2)
}

func TestUnmatchEndsMatchForBothSides(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 2, 1, false)
    require.NoError(t, err)
    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    require.NotNil(t, result.MatchID)

    require.NoError(t, env.svc.Unmatch(ctx, 1, *result.MatchID))

    require.Len(t, env.repo.matches, 1)
    m := env.repo.matches[0]
    assert.Equal(t, MatchDeleted, m.Status)
    require.NotNil(t, m.DeletedBy)
    assert.Equal(t, int64(1), *m.DeletedBy)

    for _, userID := range []int64{1, 2} {
        count, err := env.repo.CountActiveMatches(ctx, userID)
        require.NoError(t, err)
        assert.Equal(t, 0, count)
    }

    // Ending it twice looks the same as it never existing
    assert.ErrorIs(t, env.svc.Unmatch(ctx, 1, *result.MatchID), ErrMatchNotFound)
}

func TestUnmatchForeignMatchLooksAbsent(t *testing.T) {
    env := newTestEnv(1, 2, 3)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 2, 1, false)
    require.NoError(t, err)
    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    require.NotNil(t, result.MatchID)

    assert.ErrorIs(t, env.svc.Unmatch(ctx, 3, *result.MatchID), ErrMatchNotFound)
    assert.Equal(t, MatchActive, env.repo.matches[0].Status)
}

func TestRelikeAfterUnmatchResurrectsMatch(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 2, 1, false)
    require.NoError(t, err)
    first, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    require.NotNil(t, first.MatchID)

    require.NoError(t, env.svc.Unmatch(ctx, 2, *first.MatchID))

    // With the match ended, the backing like is revocable again
    require.NoError(t, env.svc.RevokeInteraction(ctx, 1, first.InteractionID))

    again, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    assert.Equal(t, "matched", again.Status)
    require.NotNil(t, again.MatchID)
    assert.Equal(t, *first.MatchID, *again.MatchID)
    assert.Equal(t, MatchActive, env.repo.matches[0].Status)
    assert.Nil(t, env.repo.matches[0].DeletedBy)

    // Resurrection is not a fresh match; nobody gets re-notified
    assert.Len(t, env.notifier.matchNotices, 2)
}

func TestSuperLikeRequiresPremium(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 1, 2, true)
    assert.ErrorIs(t, err, ErrPremiumRequired)

    env.ents.premium[1] = true
    result, err := env.svc.LikeProfile(ctx, 1, 2, true)
    require.NoError(t, err)
    assert.Equal(t, 2, result.SuperLikesRemaining)
}

func TestSuperLikeQuota(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    env.ents.premium[1] = true
    env.seedLimit(1, 0, 3, 0)

    _, err := env.svc.LikeProfile(ctx, 1, 2, true)
    assert.ErrorIs(t, err, ErrSuperLikeLimitReached)
}

func TestDislikeExcludesFromDiscovery(t *testing.T) {
    env := newTestEnv(1, 2, 3)
    ctx := context.Background()

    assert.ElementsMatch(t, []int64{2, 3}, feedUserIDs(t, env, 1))

    result, err := env.svc.DislikeProfile(ctx, 1, 2)
    require.NoError(t, err)
    assert.Equal(t, "disliked", result.Status)

    assert.ElementsMatch(t, []int64{3}, feedUserIDs(t, env, 1))

    // Legacy table mirrors the dislike with its historical TTL
    require.Len(t, env.repo.legacyDislikes, 1)
    assert.Equal(t, testNow.Add(legacyDislikeTTL), env.repo.legacyDislikes[0].ExpiresAt)
}

func TestDislikeExpiryRestoresCandidate(t *testing.T) {
    env := newTestEnv(1, 2)
    env.svc.settings.DislikeExpiryDays = 7
    ctx := context.Background()

    _, err := env.svc.DislikeProfile(ctx, 1, 2)
    require.NoError(t, err)
    assert.Empty(t, feedUserIDs(t, env, 1))

    // Inside the window the exclusion holds; past it the target returns
    env.clock.Advance(6 * 24 * time.Hour)
    assert.Empty(t, feedUserIDs(t, env, 1))

    env.clock.Advance(2 * 24 * time.Hour)
    assert.ElementsMatch(t, []int64{2}, feedUserIDs(t, env, 1))

    // The ledger row stays active; only its discovery effect lapses
    rec, err := env.ledger.ActiveBetween(ctx, 1, 2)
    require.NoError(t, err)
    require.NotNil(t, rec)
    assert.False(t, rec.IsRevoked)
}

func TestLapsedDislikeCanBeDislikedAgain(t *testing.T) {
    env := newTestEnv(1, 2)
    env.svc.settings.DislikeExpiryDays = 7
    ctx := context.Background()

    first, err := env.svc.DislikeProfile(ctx, 1, 2)
    require.NoError(t, err)

    // Inside the window it is still a duplicate
    env.clock.Advance(24 * time.Hour)
    _, err = env.svc.DislikeProfile(ctx, 1, 2)
    assert.ErrorIs(t, err, ErrAlreadyDisliked)

    // Once lapsed, the target is back in the feed and passing again must
    // work rather than bounce off the stale active row
    env.clock.Advance(7 * 24 * time.Hour)
    assert.ElementsMatch(t, []int64{2}, feedUserIDs(t, env, 1))

    again, err := env.svc.DislikeProfile(ctx, 1, 2)
    require.NoError(t, err)
    assert.Equal(t, first.InteractionID, again.InteractionID)
    assert.Empty(t, feedUserIDs(t, env, 1))
}

func TestDiscoverExcludesBlockedUsers(t *testing.T) {
    env := newTestEnv(1, 2, 3)
    env.repo.blocks[1] = []int64{3}

    assert.ElementsMatch(t, []int64{2}, feedUserIDs(t, env, 1))
}

func TestDiscoverWithoutProfileReturnsEmptyPage(t *testing.T) {
    env := newTestEnv(2, 3)

    page, err := env.svc.DiscoverProfiles(context.Background(), 99, 1, 20)
    require.NoError(t, err)
    assert.Equal(t, 0, page.Count)
    assert.Equal(t, 0, page.TotalCount)
    assert.NotNil(t, page.Results)
}

func TestDiscoverPagination(t *testing.T) {
    ids := make([]int64, 0, 8)
    for i := int64(1); i <= 8; i++ {
        ids = append(ids, i)
    }
    env := newTestEnv(ids...)

    page1, err := env.svc.DiscoverProfiles(context.Background(), 1, 1, 3)
    require.NoError(t, err)
    assert.Equal(t, 3, page1.Count)
    assert.Equal(t, 7, page1.TotalCount)
    require.NotNil(t, page1.Next)
    assert.Equal(t, 2, *page1.Next)
    assert.Nil(t, page1.Previous)

    page3, err := env.svc.DiscoverProfiles(context.Background(), 1, 3, 3)
    require.NoError(t, err)
    assert.Equal(t, 1, page3.Count)
    assert.Nil(t, page3.Next)
    require.NotNil(t, page3.Previous)
    assert.Equal(t, 2, *page3.Previous)
}

func TestRevokeRestoresCandidate(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    assert.Empty(t, feedUserIDs(t, env, 1))

    require.NoError(t, env.svc.RevokeInteraction(ctx, 1, result.InteractionID))
    assert.ElementsMatch(t, []int64{2}, feedUserIDs(t, env, 1))

    // Liking again reactivates the original row under the same identity
    again, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    assert.Equal(t, result.InteractionID, again.InteractionID)
    assert.Empty(t, feedUserIDs(t, env, 1))
}

func TestRevokeTwiceFails(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)

    require.NoError(t, env.svc.RevokeInteraction(ctx, 1, result.InteractionID))
    assert.ErrorIs(t, env.svc.RevokeInteraction(ctx, 1, result.InteractionID), ErrAlreadyRevoked)
}

func TestRevokeForeignInteractionLooksAbsent(t *testing.T) {
    env := newTestEnv(1, 2, 3)
    ctx := context.Background()

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)

    err = env.svc.RevokeInteraction(ctx, 3, result.InteractionID)
    assert.ErrorIs(t, err, ErrInteractionNotFound)
}

func TestRevokeMatchBackingLikeFails(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 2, 1, false)
    require.NoError(t, err)
    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    require.Equal(t, "matched", result.Status)

    err = env.svc.RevokeInteraction(ctx, 1, result.InteractionID)
    assert.ErrorIs(t, err, ErrCannotRevokeMatch)
}

func TestRewindWithinWindow(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()
    env.ents.premium[1] = true

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)

    env.clock.Advance(4*time.Minute + 59*time.Second)

    rewind, err := env.svc.RewindLastAction(ctx, 1)
    require.NoError(t, err)
    assert.Equal(t, "rewound", rewind.Status)
    assert.Equal(t, InteractionLike, rewind.ActionType)
    require.NotNil(t, rewind.PreviousProfile)
    assert.Equal(t, int64(2), rewind.PreviousProfile.UserID)

    // The row is hard-deleted, not revoked
    _, err = env.ledger.GetByID(ctx, result.InteractionID)
    assert.ErrorIs(t, err, ErrInteractionNotFound)
    assert.ElementsMatch(t, []int64{2}, feedUserIDs(t, env, 1))
}

func TestRewindOutsideWindow(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()
    env.ents.premium[1] = true

    _, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)

    env.clock.Advance(5*time.Minute + 1*time.Second)

    _, err = env.svc.RewindLastAction(ctx, 1)
    assert.ErrorIs(t, err, ErrNothingToRewind)
}

func TestRewindUnwindsMatch(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()
    env.ents.premium[1] = true

    _, err := env.svc.LikeProfile(ctx, 2, 1, false)
    require.NoError(t, err)
    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    require.Equal(t, "matched", result.Status)

    _, err = env.svc.RewindLastAction(ctx, 1)
    require.NoError(t, err)

    assert.Empty(t, env.repo.matches)
}

func TestRewindRequiresPremium(t *testing.T) {
    env := newTestEnv(1, 2)

    _, err := env.svc.RewindLastAction(context.Background(), 1)
    assert.ErrorIs(t, err, ErrPremiumRequired)
}

func TestRewindDailyLimit(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()
    env.ents.premium[1] = true
    env.seedLimit(1, 0, 0, 3)

    _, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)

    _, err = env.svc.RewindLastAction(ctx, 1)
    assert.ErrorIs(t, err, ErrRewindLimitReached)
}

func TestCannotActOnSelf(t *testing.T) {
    env := newTestEnv(1)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 1, 1, false)
    assert.ErrorIs(t, err, ErrCannotActOnSelf)

    _, err = env.svc.DislikeProfile(ctx, 1, 1)
    assert.ErrorIs(t, err, ErrCannotActOnSelf)
}

func TestLikeMissingOrInactiveTarget(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 1, 99, false)
    assert.ErrorIs(t, err, ErrTargetNotFound)

    env.repo.candidates[2].AccountActive = false
    _, err = env.svc.LikeProfile(ctx, 1, 2, false)
    assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestListInteractionsFiltersByType(t *testing.T) {
    env := newTestEnv(1, 2, 3, 4)
    ctx := context.Background()
    env.ents.premium[1] = true

    _, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    _, err = env.svc.LikeProfile(ctx, 1, 3, true)
    require.NoError(t, err)
    _, err = env.svc.DislikeProfile(ctx, 1, 4)
    require.NoError(t, err)

    likes, err := env.svc.ListInteractions(ctx, 1, InteractionQuery{
        Types: []InteractionType{InteractionLike, InteractionSuperLike},
    })
    require.NoError(t, err)
    assert.Equal(t, 2, likes.TotalCount)

    passes, err := env.svc.ListInteractions(ctx, 1, InteractionQuery{
        Types: []InteractionType{InteractionDislike},
    })
    require.NoError(t, err)
    require.Equal(t, 1, passes.Count)
    assert.Equal(t, int64(4), passes.Results[0].TargetUserID)
}

func TestListInteractionsRevokedVisibility(t *testing.T) {
    env := newTestEnv(1, 2)
    ctx := context.Background()

    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    require.NoError(t, env.svc.RevokeInteraction(ctx, 1, result.InteractionID))

    hidden, err := env.svc.ListInteractions(ctx, 1, InteractionQuery{})
    require.NoError(t, err)
    assert.Equal(t, 0, hidden.TotalCount)

    shown, err := env.svc.ListInteractions(ctx, 1, InteractionQuery{IncludeRevoked: true})
    require.NoError(t, err)
    require.Equal(t, 1, shown.Count)
    assert.True(t, shown.Results[0].IsRevoked)
}

func TestInteractionStats(t *testing.T) {
    env := newTestEnv(1, 2, 3, 4)
    ctx := context.Background()

    _, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    _, err = env.svc.DislikeProfile(ctx, 1, 3)
    require.NoError(t, err)
    result, err := env.svc.LikeProfile(ctx, 1, 4, false)
    require.NoError(t, err)
    require.NoError(t, env.svc.RevokeInteraction(ctx, 1, result.InteractionID))

    stats, err := env.svc.InteractionStats(ctx, 1)
    require.NoError(t, err)
    assert.Equal(t, 1, stats.LikesGiven)
    assert.Equal(t, 1, stats.DislikesGiven)
    assert.Equal(t, 1, stats.RevokedTotal)
    assert.Equal(t, 2, stats.Daily.Likes.Used)
}

func TestDailyLikeStatus(t *testing.T) {
    env := newTestEnv(1)
    ctx := context.Background()
    env.seedLimit(1, 5, 0, 0)

    limits, err := env.svc.DailyLikeStatus(ctx, 1)
    require.NoError(t, err)
    assert.Equal(t, 5, limits.Likes.Used)
    assert.Equal(t, 20, limits.Likes.Total)
    assert.Equal(t, 15, limits.Likes.Remaining)
    assert.Equal(t, 0, limits.SuperLikes.Total)
    assert.Equal(t, 0, limits.Rewinds.Total)

    env.ents.premium[1] = true
    limits, err = env.svc.DailyLikeStatus(ctx, 1)
    require.NoError(t, err)
    assert.Equal(t, 999, limits.Likes.Total)
    assert.Equal(t, 3, limits.SuperLikes.Total)
    assert.Equal(t, 3, limits.Rewinds.Total)
}

func TestDailyCountersResetByDay(t *testing.T) {
    env := newTestEnv(1, 2, 3)
    ctx := context.Background()
    env.seedLimit(1, 20, 0, 0)

    _, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.ErrorIs(t, err, ErrDailyLimitReached)

    // A new UTC day means a fresh counter row
    env.clock.Advance(24 * time.Hour)
    result, err := env.svc.LikeProfile(ctx, 1, 2, false)
    require.NoError(t, err)
    assert.Equal(t, 19, result.DailyLikesRemaining)
}
