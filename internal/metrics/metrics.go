package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores operativos del motor de identidad y votacion. El contador de
// fallback del tally existe para que la ruta degradada read-modify-write
// sea una senal observable y no un cambio silencioso.
var (
	VoteSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanvote_vote_submissions_total",
			Help: "Vote submissions by outcome",
		},
		[]string{"outcome"}, // "accepted", "already_voted", "rejected", "error"
	)

	TallyUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanvote_tally_updates_total",
			Help: "Tally increments by path",
		},
		[]string{"path"}, // "atomic", "fallback"
	)

	TallyUpdateFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanvote_tally_update_failures_total",
			Help: "Tally increments that failed after a durable vote insert",
		},
	)

	AllocatorCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanvote_member_id_collisions_total",
			Help: "member_id unique violations that forced a re-allocation",
		},
	)

	AllocatorFallbackIDs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanvote_member_id_fallback_total",
			Help: "member_ids built from the timestamp fallback after a read failure",
		},
	)

	OTPIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanvote_otp_issues_total",
			Help: "Phone OTP issuance attempts by outcome",
		},
		[]string{"outcome"}, // "sent", "rate_limited", "outstanding", "error"
	)

	SessionProbeTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanvote_session_probe_timeouts_total",
			Help: "Post-sign-in probes that timed out and forced sign-out",
		},
	)
)
