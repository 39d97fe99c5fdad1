package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool metrics
	ContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "faas_containers_total",
			Help: "Number of pooled containers by function and status",
		},
		[]string{"function", "status"},
	)

	ContainerCreationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faas_container_creations_total",
			Help: "Container creation attempts by function and outcome",
		},
		[]string{"function", "outcome"},
	)

	ContainerEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faas_container_evictions_total",
			Help: "Idle containers evicted by the cleaner, per function",
		},
		[]string{"function"},
	)

	// Dispatch metrics
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faas_dispatches_total",
			Help: "Dispatches by function and status",
		},
		[]string{"function", "status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faas_dispatch_duration_seconds",
			Help:    "End-to-end dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	SamplerFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faas_sampler_failures_total",
			Help: "Perf sampler launches or teardowns that failed",
		},
	)

	// Workflow metrics
	WorkflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faas_workflows_total",
			Help: "Workflow runs by workflow and status",
		},
		[]string{"workflow", "status"},
	)

	WorkflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faas_workflow_duration_seconds",
			Help:    "Workflow run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"workflow"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faas_api_requests_total",
			Help: "API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(ContainersTotal)
	prometheus.MustRegister(ContainerCreationsTotal)
	prometheus.MustRegister(ContainerEvictionsTotal)
	prometheus.MustRegister(DispatchesTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(SamplerFailuresTotal)
	prometheus.MustRegister(WorkflowsTotal)
	prometheus.MustRegister(WorkflowDuration)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
