package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	voteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspire_vote_requests_total",
		Help: "Vote submissions received, by outcome",
	}, []string{"status"})

	voteProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspire_vote_processed_total",
		Help: "Votes drained from the queue by the worker",
	})

	voteProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspire_vote_processing_duration_seconds",
		Help:    "Time to process one queued vote in the worker",
		Buckets: prometheus.DefBuckets,
	})

	assistRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspire_assist_requests_total",
		Help: "Assist relay calls, by action and outcome",
	}, []string{"action", "outcome"})

	leaderboardRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspire_leaderboard_refresh_total",
		Help: "Leaderboard refreshes, by outcome",
	}, []string{"outcome"})

	shareCardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspire_share_cards_total",
		Help: "Share cards rendered, by avatar outcome",
	}, []string{"avatar"})
)

func ObserveVoteRequest(status string) {
	voteRequestsTotal.WithLabelValues(status).Inc()
}

func IncVoteProcessed() {
	voteProcessedTotal.Inc()
}

func ObserveProcessingDuration(seconds float64) {
	voteProcessingDuration.Observe(seconds)
}

func ObserveAssistRequest(action, outcome string) {
	assistRequestsTotal.WithLabelValues(action, outcome).Inc()
}

func ObserveLeaderboardRefresh(outcome string) {
	leaderboardRefreshTotal.WithLabelValues(outcome).Inc()
}

func ObserveShareCard(avatarOutcome string) {
	shareCardsTotal.WithLabelValues(avatarOutcome).Inc()
}
