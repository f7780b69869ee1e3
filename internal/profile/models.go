package profile

import (
    "time"

    "github.com/lib/pq"
)

// Gender values. PreferNotToSay is stored but never used to filter the
// other side of a mutual gender check.
const (
    GenderMale           = "male"
    GenderFemale         = "female"
    GenderNonBinary      = "nonbinary"
    GenderPreferNotToSay = "prefer_not_to_say"
)

// Relationship types a profile can seek
const (
    RelationshipCasual     = "casual"
    RelationshipLongTerm   = "long_term"
    RelationshipFriendship = "friendship"
    RelationshipMarriage   = "marriage"
)

// Profile represents a user's dating profile.
// GendersSought and RelationshipTypesSought are always non-nil sets; an
// empty set means "no restriction". NULL is never stored for either column.
type Profile struct {
    ID          int64      `json:"id" db:"id"`
    UserID      int64      `json:"user_id" db:"user_id"`
    DisplayName string     `json:"display_name" db:"display_name"`
    Bio         *string    `json:"bio,omitempty" db:"bio"`
    BirthDate   *time.Time `json:"birth_date,omitempty" db:"birth_date"`
    Gender      string     `json:"gender" db:"gender"`

    // Discovery preferences
    GendersSought           pq.StringArray `json:"genders_sought" db:"genders_sought"`
    AgeMinPreference        int            `json:"age_min_preference" db:"age_min_preference"`
    AgeMaxPreference        int            `json:"age_max_preference" db:"age_max_preference"`
    RelationshipTypesSought pq.StringArray `json:"relationship_types_sought" db:"relationship_types_sought"`

    // Location (optional)
    Latitude      *float64 `json:"latitude,omitempty" db:"latitude"`
    Longitude     *float64 `json:"longitude,omitempty" db:"longitude"`
    DistanceMaxKm int      `json:"distance_max_km" db:"distance_max_km"`

    // Visibility flags
    IsHidden         bool `json:"is_hidden" db:"is_hidden"`
    AllowInDiscovery bool `json:"allow_in_discovery" db:"allow_in_discovery"`
    VerifiedOnly     bool `json:"verified_only" db:"verified_only"`
    OnlineOnly       bool `json:"online_only" db:"online_only"`

    // Counters
    ProfileViews  int `json:"profile_views" db:"profile_views"`
    LikesReceived int `json:"likes_received" db:"likes_received"`

    // Photo facts maintained by the media subsystem
    MainPhotoURL *string `json:"main_photo_url,omitempty" db:"main_photo_url"`
    PhotoCount   int     `json:"photo_count" db:"photo_count"`

    LastActive time.Time `json:"last_active" db:"last_active"`
    CreatedAt  time.Time `json:"created_at" db:"created_at"`
    UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Age returns the profile's age in whole years at the given instant,
// or false when no birth date is on file.
func (p *Profile) Age(now time.Time) (int, bool) {
    if p.BirthDate == nil {
        return 0, false
    }
    b := *p.BirthDate
    age := now.Year() - b.Year()
    if now.YearDay() < b.YearDay() {
        age--
    }
    return age, true
}

// UpdateProfileDTO is a partial profile update
type UpdateProfileDTO struct {
    DisplayName *string  `json:"display_name" validate:"omitempty,min=2,max=100"`
    Bio         *string  `json:"bio" validate:"omitempty,max=500"`
    BirthDate   *string  `json:"birth_date" validate:"omitempty"`
    Gender      *string  `json:"gender" validate:"omitempty,oneof=male female nonbinary prefer_not_to_say"`
    Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
    Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// UpdatePreferencesDTO updates discovery preferences. Slice fields replace
// the stored set wholesale; nil means "leave unchanged", an empty slice
// means "clear the restriction".
type UpdatePreferencesDTO struct {
    GendersSought           []string `json:"genders_sought" validate:"omitempty,dive,oneof=male female nonbinary"`
    AgeMinPreference        *int     `json:"age_min_preference" validate:"omitempty,min=18,max=99"`
    AgeMaxPreference        *int     `json:"age_max_preference" validate:"omitempty,min=18,max=99"`
    RelationshipTypesSought []string `json:"relationship_types_sought" validate:"omitempty,dive,oneof=casual long_term friendship marriage"`
    DistanceMaxKm           *int     `json:"distance_max_km" validate:"omitempty,min=1,max=500"`
    IsHidden                *bool    `json:"is_hidden"`
    AllowInDiscovery        *bool    `json:"allow_in_discovery"`
    VerifiedOnly            *bool    `json:"verified_only"`
    OnlineOnly              *bool    `json:"online_only"`
}
