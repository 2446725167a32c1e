package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "ingest",
		Name:      "workouts_total",
		Help:      "Total number of workout records persisted by the ingestion pipeline.",
	})
	submissionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutlog",
		Subsystem: "ingest",
		Name:      "submissions_rejected_total",
		Help:      "Workout submissions rejected, by reason.",
	}, []string{"reason"})
	workoutPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "workoutlog",
		Subsystem: "persistence",
		Name:      "last_workout_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout persisted to the record store.",
	})
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workoutlog",
		Subsystem: "analytics",
		Name:      "query_duration_seconds",
		Help:      "Latency of analytics queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})
)

func init() {
	prometheus.MustRegister(workoutsIngested, submissionsRejected, workoutPersistGauge, queryDuration)
}

// RecordWorkoutsIngested adds n persisted records to the ingest counter.
func RecordWorkoutsIngested(n int) {
	if n <= 0 {
		return
	}
	workoutsIngested.Add(float64(n))
}

// RecordSubmissionRejected counts a rejected submission.
func RecordSubmissionRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordWorkoutPersisted updates the persistence watermark gauge.
func RecordWorkoutPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	workoutPersistGauge.Set(float64(ts.Unix()))
}

// ObserveQuery records the elapsed time since start for the named query.
func ObserveQuery(query string, start time.Time) {
	queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
