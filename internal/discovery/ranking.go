package discovery

import (
    "sort"
    "time"
)

// Rank orders candidates deterministically: active boosts first, then
// recent activity, then verification, then profile completeness, with the
// user id as the final tiebreak so equal inputs always produce equal pages.
func Rank(candidates []*Candidate, now time.Time) {
    sort.SliceStable(candidates, func(i, j int) bool {
        a, b := candidates[i], candidates[j]

        if ab, bb := a.BoostedAt(now), b.BoostedAt(now); ab != bb {
            return ab
        }
        if !a.LastActive.Equal(b.LastActive) {
            return a.LastActive.After(b.LastActive)
        }
        if a.IsVerified != b.IsVerified {
            return a.IsVerified
        }
        if ac, bc := a.Complete(), b.Complete(); ac != bc {
            return ac
        }
        return a.UserID < b.UserID
    })
}

// Paginate slices a ranked list. Out-of-range offsets yield an empty page,
// never an error.
func Paginate(candidates []*Candidate, offset, limit int) []*Candidate {
    if offset < 0 {
        offset = 0
    }
    if offset >= len(candidates) {
        return []*Candidate{}
    }

    end := offset + limit
    if limit <= 0 || end > len(candidates) {
        end = len(candidates)
    }
    return candidates[offset:end]
}
