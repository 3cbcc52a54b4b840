package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts signature exchanges by outcome
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_ledger_auth_attempts_total",
			Help: "Total number of wallet signature exchanges",
		},
		[]string{"outcome"},
	)

	// TokenRefreshes counts refresh token rotations by outcome
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_ledger_token_refreshes_total",
			Help: "Total number of refresh token rotations",
		},
		[]string{"outcome"},
	)

	// RateLimitRejections counts requests refused by the rate limiter
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_ledger_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// ClaimsSubmitted counts accepted claims
	ClaimsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_ledger_claims_submitted_total",
			Help: "Total number of submitted claims",
		},
		[]string{"signed"},
	)

	// DuplicateClaims counts claims submitted for a content hash that was already claimed
	DuplicateClaims = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "creator_ledger_duplicate_claims_total",
			Help: "Total number of claims sharing a content hash with an earlier claim",
		},
	)

	// ClaimReviews counts admin status changes
	ClaimReviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_ledger_claim_reviews_total",
			Help: "Total number of claim reviews by resulting status",
		},
		[]string{"status"},
	)

	// Endorsements counts votes cast on claims
	Endorsements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_ledger_endorsements_total",
			Help: "Total number of endorsements and disputes",
		},
		[]string{"vote"},
	)

	// HTTPRequestDuration tracks request latency per route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creator_ledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
