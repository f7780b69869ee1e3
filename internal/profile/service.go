package profile

import (
    "context"
    "errors"
    "time"

    "github.com/lib/pq"
)

var (
    ErrProfileNotFound  = errors.New("profile not found")
    ErrInvalidAgeRange  = errors.New("age preference minimum cannot exceed maximum")
    ErrInvalidBirthDate = errors.New("birth date is invalid or under 18")
    ErrCannotBlockSelf  = errors.New("cannot block yourself")
)

const (
    minPreferenceAge = 18
    maxPreferenceAge = 99
)

type Service interface {
    GetProfile(ctx context.Context, userID int64) (*Profile, error)
    UpdateProfile(ctx context.Context, userID int64, dto *UpdateProfileDTO) (*Profile, error)
    UpdatePreferences(ctx context.Context, userID int64, dto *UpdatePreferencesDTO) (*Profile, error)
    TouchLastActive(ctx context.Context, userID int64) error
    BlockUser(ctx context.Context, userID, targetID int64) error
    UnblockUser(ctx context.Context, userID, targetID int64) error
    BlockedUserIDs(ctx context.Context, userID int64) ([]int64, error)
}

type service struct {
    repo Repository
    now  func() time.Time
}

func NewService(repo Repository) Service {
    return &service{
        repo: repo,
        now:  time.Now,
    }
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
    return s.repo.GetByUserID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, dto *UpdateProfileDTO) (*Profile, error) {
    p, err := s.repo.GetByUserID(ctx, userID)
    if err != nil {
        return nil, err
    }

    if dto.DisplayName != nil {
        p.DisplayName = *dto.DisplayName
    }
    if dto.Bio != nil {
        p.Bio = dto.Bio
    }
    if dto.Gender != nil {
        p.Gender = *dto.Gender
    }
    if dto.BirthDate != nil {
        birth, err := time.Parse("2006-01-02", *dto.BirthDate)
        if err != nil {
            return nil, ErrInvalidBirthDate
        }
        if ageAt(birth, s.now()) < minPreferenceAge {
            return nil, ErrInvalidBirthDate
        }
        p.BirthDate = &birth
    }
    if dto.Latitude != nil {
        p.Latitude = dto.Latitude
    }
    if dto.Longitude != nil {
        p.Longitude = dto.Longitude
    }

    normalizeSets(p)

    if err := s.repo.Update(ctx, p); err != nil {
        return nil, err
    }
    return p, nil
}

// UpdatePreferences validates and persists discovery preferences.
// Malformed ranges are rejected here so the discovery read path never has
// to deal with them.
func (s *service) UpdatePreferences(ctx context.Context, userID int64, dto *UpdatePreferencesDTO) (*Profile, error) {
    p, err := s.repo.GetByUserID(ctx, userID)
    if err != nil {
        return nil, err
    }

    if dto.GendersSought != nil {
        p.GendersSought = pq.StringArray(dto.GendersSought)
    }
    if dto.RelationshipTypesSought != nil {
        p.RelationshipTypesSought = pq.StringArray(dto.RelationshipTypesSought)
    }
    if dto.AgeMinPreference != nil {
        p.AgeMinPreference = *dto.AgeMinPreference
    }
    if dto.AgeMaxPreference != nil {
        p.AgeMaxPreference = *dto.AgeMaxPreference
    }
    if dto.DistanceMaxKm != nil {
        p.DistanceMaxKm = *dto.DistanceMaxKm
    }
    if dto.IsHidden != nil {
        p.IsHidden = *dto.IsHidden
    }
    if dto.AllowInDiscovery != nil {
        p.AllowInDiscovery = *dto.AllowInDiscovery
    }
    if dto.VerifiedOnly != nil {
        p.VerifiedOnly = *dto.VerifiedOnly
    }
    if dto.OnlineOnly != nil {
        p.OnlineOnly = *dto.OnlineOnly
    }

    if p.AgeMinPreference < minPreferenceAge || p.AgeMaxPreference > maxPreferenceAge ||
        p.AgeMinPreference > p.AgeMaxPreference {
        return nil, ErrInvalidAgeRange
    }

    normalizeSets(p)

    if err := s.repo.Update(ctx, p); err != nil {
        return nil, err
    }
    return p, nil
}

func (s *service) TouchLastActive(ctx context.Context, userID int64) error {
    return s.repo.TouchLastActive(ctx, userID)
}

func (s *service) BlockUser(ctx context.Context, userID, targetID int64) error {
    if userID == targetID {
        return ErrCannotBlockSelf
    }
    return s.repo.BlockUser(ctx, userID, targetID)
}

func (s *service) UnblockUser(ctx context.Context, userID, targetID int64) error {
    return s.repo.UnblockUser(ctx, userID, targetID)
}

func (s *service) BlockedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
    return s.repo.BlockedUserIDs(ctx, userID)
}

// normalizeSets guarantees the never-null invariant on preference sets.
// An absent preference is an empty set, not a NULL sentinel.
func normalizeSets(p *Profile) {
    if p.GendersSought == nil {
        p.GendersSought = pq.StringArray{}
    }
    if p.RelationshipTypesSought == nil {
        p.RelationshipTypesSought = pq.StringArray{}
    }
}

func ageAt(birth, now time.Time) int {
    age := now.Year() - birth.Year()
    if now.YearDay() < birth.YearDay() {
        age--
    }
    return age
}
