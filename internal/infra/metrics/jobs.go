package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobSubmissionsTotal, jobPollsTotal, jobCancellationsTotal, jobsFinishedTotal, staleJobsReapedTotal, providerCallSeconds)
}

var jobSubmissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_job_submissions_total",
		Help: "Generation job submissions, labeled by provider and outcome.",
	},
	[]string{"provider", "outcome"}, // 'accepted', 'rejected', 'invalid', 'no_credential'
)

var jobPollsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_job_polls_total",
		Help: "Status polls issued to providers, labeled by provider and outcome.",
	},
	[]string{"provider", "outcome"}, // 'ok', 'transient', 'auth', 'error'
)

var jobCancellationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_job_cancellations_total",
		Help: "Cancellation requests, labeled by provider and whether the provider acknowledged.",
	},
	[]string{"provider", "acknowledged"},
)

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "generation_jobs_finished_total",
		Help: "Jobs observed reaching a terminal status, labeled by provider and status.",
	},
	[]string{"provider", "status"},
)

var staleJobsReapedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "generation_jobs_stale_reaped_total",
		Help: "Records force-failed by the stale job reaper.",
	},
)

var providerCallSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "provider_call_duration_seconds",
		Help:    "Latency of outbound provider HTTP calls.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider", "op"}, // 'submit', 'poll', 'cancel'
)

func IncSubmission(provider, outcome string) {
	jobSubmissionsTotal.WithLabelValues(provider, outcome).Inc()
}

func IncPoll(provider, outcome string) {
	jobPollsTotal.WithLabelValues(provider, outcome).Inc()
}

func IncCancellation(provider string, acknowledged bool) {
	v := "false"
	if acknowledged {
		v = "true"
	}
	jobCancellationsTotal.WithLabelValues(provider, v).Inc()
}

func IncJobFinished(provider, status string) {
	jobsFinishedTotal.WithLabelValues(provider, status).Inc()
}

func AddStaleReaped(n int64) {
	staleJobsReapedTotal.Add(float64(n))
}

func ObserveProviderCall(provider, op string, d time.Duration) {
	providerCallSeconds.WithLabelValues(provider, op).Observe(d.Seconds())
}
