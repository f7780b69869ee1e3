package discovery

import (
    "math"
    "time"
)

// FilterInput is everything a stage may consult besides the candidate itself
type FilterInput struct {
    Actor        *Candidate
    Exclusions   map[int64]struct{}
    Now          time.Time
    OnlineWindow time.Duration
}

// FilterStage is a pure predicate over one candidate. Stages never touch
// storage; everything they need is in FilterInput.
type FilterStage struct {
    Name string
    Keep func(in FilterInput, c *Candidate) bool
}

// Stages returns the filter chain in evaluation order. Order matters only
// for cost (cheap account checks first); the result is the conjunction.
func Stages() []FilterStage {
    return []FilterStage{
        {Name: "visibility", Keep: keepVisible},
        {Name: "exclusions", Keep: keepNotExcluded},
        {Name: "age", Keep: keepMutualAge},
        {Name: "gender", Keep: keepMutualGender},
        {Name: "relationship", Keep: keepRelationship},
        {Name: "distance", Keep: keepWithinDistance},
        {Name: "toggles", Keep: keepActorToggles},
    }
}

// ApplyStages runs every candidate through the chain and keeps survivors
func ApplyStages(in FilterInput, candidates []*Candidate, stages []FilterStage) []*Candidate {
    kept := make([]*Candidate, 0, len(candidates))
outer:
    for _, c := range candidates {
        for _, stage := range stages {
            if !stage.Keep(in, c) {
                continue outer
            }
        }
        kept = append(kept, c)
    }
    return kept
}

func keepVisible(in FilterInput, c *Candidate) bool {
    if c.UserID == in.Actor.UserID {
        return false
    }
    return c.AccountActive && c.EmailVerified && !c.IsHidden && c.AllowInDiscovery
}

func keepNotExcluded(in FilterInput, c *Candidate) bool {
    _, excluded := in.Exclusions[c.UserID]
    return !excluded
}

// keepMutualAge checks both directions. A side with an unknown birth date
// cannot be range-checked and is let through rather than silently hidden.
func keepMutualAge(in FilterInput, c *Candidate) bool {
    if age, ok := c.Age(in.Now); ok {
        if age < in.Actor.AgeMinPreference || age > in.Actor.AgeMaxPreference {
            return false
        }
    }
    if age, ok := in.Actor.Age(in.Now); ok {
        if age < c.AgeMinPreference || age > c.AgeMaxPreference {
            return false
        }
    }
    return true
}

// keepMutualGender checks both directions with empty-set-means-any
// semantics. The actor's stated preference always applies, so a candidate
// with no stated gender only surfaces for actors open to anyone. The
// reverse check is skipped when the actor's own gender is unstated, since
// there is nothing to hold against the candidate's preference.
func keepMutualGender(in FilterInput, c *Candidate) bool {
    if !in.Actor.SeekingGenders().Accepts(c.Gender) {
        return false
    }
    if !genderUnstated(in.Actor.Gender) && !c.SeekingGenders().Accepts(in.Actor.Gender) {
        return false
    }
    return true
}

func genderUnstated(g string) bool {
    return g == "" || g == "prefer_not_to_say"
}

// keepRelationship passes when the actor seeks anything, or when the two
// specific intents overlap. A candidate open to anything always overlaps.
func keepRelationship(in FilterInput, c *Candidate) bool {
    actorSeeks := in.Actor.SeekingRelationships()
    if actorSeeks.Any() {
        return true
    }
    candidateSeeks := c.SeekingRelationships()
    if candidateSeeks.Any() {
        return true
    }
    return actorSeeks.Intersects(candidateSeeks)
}

// keepWithinDistance applies the actor's radius as a bounding box. An actor
// without coordinates imposes no distance filter; a candidate without
// coordinates can't be placed inside one and is dropped.
func keepWithinDistance(in FilterInput, c *Candidate) bool {
    if in.Actor.Latitude == nil || in.Actor.Longitude == nil || in.Actor.DistanceMaxKm <= 0 {
        return true
    }
    if c.Latitude == nil || c.Longitude == nil {
        return false
    }

    minLat, maxLat, minLon, maxLon := boundingBox(
        *in.Actor.Latitude, *in.Actor.Longitude, float64(in.Actor.DistanceMaxKm))

    return *c.Latitude >= minLat && *c.Latitude <= maxLat &&
        *c.Longitude >= minLon && *c.Longitude <= maxLon
}

// boundingBox approximates a radius in km as a lat/lon rectangle.
// 1 degree of latitude is ~111km; longitude degrees shrink with cos(lat).
func boundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
    latDelta := radiusKm / 111.0

    cosLat := math.Cos(lat * math.Pi / 180.0)
    if cosLat < 0.01 {
        cosLat = 0.01
    }
    lonDelta := radiusKm / (111.0 * cosLat)

    return lat - latDelta, lat + latDelta, lon - lonDelta, lon + lonDelta
}

func keepActorToggles(in FilterInput, c *Candidate) bool {
    if in.Actor.VerifiedOnly && !c.IsVerified {
        return false
    }
    if in.Actor.OnlineOnly && in.Now.Sub(c.LastActive) > in.OnlineWindow {
        return false
    }
    return true
}
