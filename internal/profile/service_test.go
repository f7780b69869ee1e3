package profile

import (
    "context"
    "testing"
    "time"

    "github.com/lib/pq"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
    profiles map[int64]*Profile
    blocks   map[int64][]int64
}

func newFakeRepo() *fakeRepo {
    return &fakeRepo{profiles: map[int64]*Profile{}, blocks: map[int64][]int64{}}
}

func (r *fakeRepo) GetByUserID(ctx context.Context, userID int64) (*Profile, error) {
    p, ok := r.profiles[userID]
    if !ok {
        return nil, ErrProfileNotFound
    }
    copied := *p
    return &copied, nil
}

func (r *fakeRepo) Update(ctx context.Context, p *Profile) error {
    r.profiles[p.UserID] = p
    return nil
}

func (r *fakeRepo) TouchLastActive(ctx context.Context, userID int64) error {
    if p, ok := r.profiles[userID]; ok {
        p.LastActive = testNow
    }
    return nil
}

func (r *fakeRepo) BlockUser(ctx context.Context, userID, targetID int64) error {
    r.blocks[userID] = append(r.blocks[userID], targetID)
    return nil
}

func (r *fakeRepo) UnblockUser(ctx context.Context, userID, targetID int64) error {
    ids := r.blocks[userID]
    for i, id := range ids {
        if id == targetID {
            r.blocks[userID] = append(ids[:i], ids[i+1:]...)
            break
        }
    }
    return nil
}

func (r *fakeRepo) BlockedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
    return r.blocks[userID], nil
}

func newTestService(repo *fakeRepo) *service {
    svc := NewService(repo).(*service)
    svc.now = func() time.Time { return testNow }
    return svc
}

func seedProfile(repo *fakeRepo, userID int64) {
    repo.profiles[userID] = &Profile{
        ID:                      userID,
        UserID:                  userID,
        DisplayName:             "someone",
        GendersSought:           pq.StringArray{},
        AgeMinPreference:        18,
        AgeMaxPreference:        99,
        RelationshipTypesSought: pq.StringArray{},
        AllowInDiscovery:        true,
    }
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestUpdatePreferencesRejectsBadAgeRange(t *testing.T) {
    repo := newFakeRepo()
    seedProfile(repo, 1)
    svc := newTestService(repo)
    ctx := context.Background()

    tests := []struct {
        name string
        dto  UpdatePreferencesDTO
    }{
        {"min above max", UpdatePreferencesDTO{AgeMinPreference: intPtr(40), AgeMaxPreference: intPtr(30)}},
        {"min below 18", UpdatePreferencesDTO{AgeMinPreference: intPtr(16)}},
        {"max above 99", UpdatePreferencesDTO{AgeMaxPreference: intPtr(120)}},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            _, err := svc.UpdatePreferences(ctx, 1, &tt.dto)
            assert.ErrorIs(t, err, ErrInvalidAgeRange)
        })
    }
}

func TestUpdatePreferencesStoresEmptySetNotNull(t *testing.T) {
    repo := newFakeRepo()
    seedProfile(repo, 1)
    repo.profiles[1].GendersSought = nil
    repo.profiles[1].RelationshipTypesSought = nil
    svc := newTestService(repo)

    p, err := svc.UpdatePreferences(context.Background(), 1, &UpdatePreferencesDTO{
        AgeMinPreference: intPtr(21),
    })
    require.NoError(t, err)

    assert.NotNil(t, p.GendersSought)
    assert.NotNil(t, p.RelationshipTypesSought)
    assert.Empty(t, p.GendersSought)
    assert.Equal(t, 21, p.AgeMinPreference)
}

func TestUpdatePreferencesClearsRestriction(t *testing.T) {
    repo := newFakeRepo()
    seedProfile(repo, 1)
    repo.profiles[1].GendersSought = pq.StringArray{"female"}
    svc := newTestService(repo)

    // An explicit empty slice clears the restriction; nil leaves it alone
    p, err := svc.UpdatePreferences(context.Background(), 1, &UpdatePreferencesDTO{
        GendersSought: []string{},
    })
    require.NoError(t, err)
    assert.Empty(t, p.GendersSought)

    p, err = svc.UpdatePreferences(context.Background(), 1, &UpdatePreferencesDTO{
        RelationshipTypesSought: []string{"long_term"},
    })
    require.NoError(t, err)
    assert.Empty(t, p.GendersSought)
    assert.Equal(t, pq.StringArray{"long_term"}, p.RelationshipTypesSought)
}

func TestUpdateProfileRejectsUnderage(t *testing.T) {
    repo := newFakeRepo()
    seedProfile(repo, 1)
    svc := newTestService(repo)

    young := testNow.AddDate(-17, 0, 0).Format("2006-01-02")
    _, err := svc.UpdateProfile(context.Background(), 1, &UpdateProfileDTO{BirthDate: strPtr(young)})
    assert.ErrorIs(t, err, ErrInvalidBirthDate)

    _, err = svc.UpdateProfile(context.Background(), 1, &UpdateProfileDTO{BirthDate: strPtr("not-a-date")})
    assert.ErrorIs(t, err, ErrInvalidBirthDate)

    adult := testNow.AddDate(-30, 0, 0).Format("2006-01-02")
    p, err := svc.UpdateProfile(context.Background(), 1, &UpdateProfileDTO{BirthDate: strPtr(adult)})
    require.NoError(t, err)
    age, ok := p.Age(testNow)
    require.True(t, ok)
    assert.Equal(t, 30, age)
}

func TestBlockSelfRejected(t *testing.T) {
    repo := newFakeRepo()
    svc := newTestService(repo)

    err := svc.BlockUser(context.Background(), 1, 1)
    assert.ErrorIs(t, err, ErrCannotBlockSelf)
}

func TestBlockAndUnblock(t *testing.T) {
    repo := newFakeRepo()
    svc := newTestService(repo)
    ctx := context.Background()

    require.NoError(t, svc.BlockUser(ctx, 1, 2))
    ids, err := svc.BlockedUserIDs(ctx, 1)
    require.NoError(t, err)
    assert.Equal(t, []int64{2}, ids)

    require.NoError(t, svc.UnblockUser(ctx, 1, 2))
    ids, err = svc.BlockedUserIDs(ctx, 1)
    require.NoError(t, err)
    assert.Empty(t, ids)
}
