package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accommodation_jobs_total",
		Help: "Finished analysis jobs by final status.",
	}, []string{"status"})

	jobAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accommodation_job_attempts_total",
		Help: "Analysis attempts by outcome.",
	}, []string{"status"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "accommodation_job_duration_seconds",
		Help:    "Wall-clock time of a job including retries.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	jobsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accommodation_jobs_queued",
		Help: "Submitted jobs that have not finished.",
	})

	jobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accommodation_jobs_running",
		Help: "Jobs currently holding a worker slot.",
	})
)
