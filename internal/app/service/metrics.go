package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	votesCast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vote_zone_votes_cast_total",
		Help: "Votes successfully cast",
	})

	votesRetracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vote_zone_votes_retracted_total",
		Help: "Votes successfully retracted",
	})

	// voteConflicts counts casts rejected because the user had already voted
	voteConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vote_zone_vote_conflicts_total",
		Help: "Vote casts rejected as duplicates",
	})

	fileCleanupEnqueueFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vote_zone_file_cleanup_enqueue_failures_total",
		Help: "Object keys that could not be handed to the cleanup queue",
	})
)
