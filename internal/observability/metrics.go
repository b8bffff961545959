// Package observability provides logging, metrics, and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ListensRecorded counts listen events that actually incremented a
	// post counter (duplicates from the same actor are not counted).
	ListensRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicenet_listens_recorded_total",
		Help: "Total number of first-time listens recorded",
	})

	// DeleteVotesRecorded counts newly recorded delete-votes.
	DeleteVotesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicenet_delete_votes_recorded_total",
		Help: "Total number of first-time delete-votes recorded",
	})

	// CascadeDeletions counts posts removed by the moderation threshold.
	CascadeDeletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicenet_cascade_deletions_total",
		Help: "Total number of posts removed by community delete-voting",
	})

	// ThumbsDownToggles counts thumbs-down toggles by resulting state.
	ThumbsDownToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenet_thumbs_down_toggles_total",
		Help: "Total number of comment thumbs-down toggles by resulting state",
	}, []string{"state"})

	// ReportsFiled counts post reports.
	ReportsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicenet_reports_filed_total",
		Help: "Total number of post reports filed",
	})

	// BlobDeleteFailures counts best-effort blob deletions that failed
	// during a cascade or profile-audio replacement.
	BlobDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicenet_blob_delete_failures_total",
		Help: "Total number of failed best-effort audio blob deletions",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicenet_redis_error_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
