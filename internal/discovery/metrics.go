package discovery

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    discoveryRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
        Name: "discovery_requests_total",
        Help: "Total number of discovery feed requests",
    })

    discoveryCandidatesReturned = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "discovery_candidates_returned",
        Help:    "Number of candidates returned per discovery page",
        Buckets: []float64{0, 1, 5, 10, 20, 50},
    })

    swipesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "discovery_swipes_total",
        Help: "Total number of recorded swipe actions by type",
    }, []string{"type"})

    matchesTotal = promauto.NewCounter(prometheus.CounterOpts{
        Name: "discovery_matches_total",
        Help: "Total number of new matches created",
    })

    unmatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
        Name: "discovery_unmatches_total",
        Help: "Total number of matches ended by a participant",
    })

    rewindsTotal = promauto.NewCounter(prometheus.CounterOpts{
        Name: "discovery_rewinds_total",
        Help: "Total number of successful rewinds",
    })

    revocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
        Name: "discovery_revocations_total",
        Help: "Total number of revoked interactions",
    })

    quotaRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "discovery_quota_rejections_total",
        Help: "Swipe attempts rejected by daily quotas",
    }, []string{"reason"})
)

func RecordDiscoveryRequest(returned int) {
    discoveryRequestsTotal.Inc()
    discoveryCandidatesReturned.Observe(float64(returned))
}

func RecordSwipe(itype InteractionType) {
    swipesTotal.WithLabelValues(string(itype)).Inc()
}

func RecordMatch() {
    matchesTotal.Inc()
}

func RecordUnmatch() {
    unmatchesTotal.Inc()
}

func RecordRewind() {
    rewindsTotal.Inc()
}

func RecordRevocation() {
    revocationsTotal.Inc()
}

func RecordQuotaRejection(reason string) {
    quotaRejectionsTotal.WithLabelValues(reason).Inc()
}
