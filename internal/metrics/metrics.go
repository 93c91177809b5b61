package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	CloneRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchid_clone_requests_total",
			Help: "Total number of /clone requests by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchid_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	SimplifyBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchid_simplify_bytes_total",
			Help: "HTML bytes entering and leaving the simplifier",
		},
		[]string{"direction"},
	)

	ExtractPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchid_extract_polls_total",
			Help: "Extraction status polls by observed state",
		},
		[]string{"state"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchid_upstream_requests_total",
			Help: "Calls to third-party APIs by service and outcome",
		},
		[]string{"service", "outcome"},
	)
)

// ObserveStage records how long a named stage took since start.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordSimplify tracks the size reduction of one simplification pass.
func RecordSimplify(in, out int) {
	SimplifyBytesTotal.WithLabelValues("in").Add(float64(in))
	SimplifyBytesTotal.WithLabelValues("out").Add(float64(out))
}

// RecordUpstream counts one call to service, labelled by whether err is nil.
func RecordUpstream(service string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	UpstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
