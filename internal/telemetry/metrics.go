package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	membershipTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "membership",
		Name:      "transitions_total",
		Help:      "Membership lifecycle operations that were committed, by transition.",
	}, []string{"transition"})

	identityLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "identity",
		Name:      "lookups_total",
		Help:      "Identity lookups against the member registry, by outcome.",
	}, []string{"outcome"})

	identityRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "identity",
		Name:      "retries_total",
		Help:      "Identity lookup attempts that were retried after an upstream failure.",
	})

	workoutWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Subsystem: "fitness",
		Name:      "workout_writes_total",
		Help:      "Committed workout mutations, by operation.",
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(membershipTransitions, identityLookups, identityRetries, workoutWrites)
}

// RecordMembershipTransition counts a committed lifecycle operation.
func RecordMembershipTransition(transition string) {
	membershipTransitions.WithLabelValues(transition).Inc()
}

// RecordIdentityLookup counts a finished lookup. outcome is ok, not_found, unavailable or error.
func RecordIdentityLookup(outcome string) {
	identityLookups.WithLabelValues(outcome).Inc()
}

// RecordIdentityRetry counts one retried lookup attempt.
func RecordIdentityRetry() {
	identityRetries.Inc()
}

// RecordWorkoutWrite counts a committed workout mutation.
func RecordWorkoutWrite(operation string) {
	workoutWrites.WithLabelValues(operation).Inc()
}
