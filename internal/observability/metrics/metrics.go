package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of sign-in factor verifications.",
		},
		[]string{"service", "flow", "result"},
	)

	videoTaskTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_task_transitions_total",
			Help: "Total number of video task status changes.",
		},
		[]string{"service", "from", "to"},
	)

	collaboratorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Total number of calls to third-party media collaborators.",
		},
		[]string{"service", "collaborator", "result"},
	)

	collaboratorDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_duration_seconds",
			Help:    "Duration of third-party media collaborator calls.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "collaborator"},
	)
)

// Curried views with the service label bound. Until MustRegister runs they
// record under service="unregistered" and are not exported.
var (
	HTTPRequestsTotal           *prometheus.CounterVec
	HTTPRequestDurationSeconds  *prometheus.HistogramVec
	// AuthAttemptsTotal is labelled by flow: otp, totp, backup_code, google, challenge.
	AuthAttemptsTotal           *prometheus.CounterVec
	VideoTaskTransitionsTotal   *prometheus.CounterVec
	CollaboratorCallsTotal      *prometheus.CounterVec
	CollaboratorDurationSeconds *prometheus.HistogramVec
)

func init() { curry("unregistered") }

func curry(serviceName string) {
	labels := prometheus.Labels{"service": serviceName}
	HTTPRequestsTotal = httpRequestsTotal.MustCurryWith(labels)
	HTTPRequestDurationSeconds = httpRequestDurationSeconds.MustCurryWith(labels).(*prometheus.HistogramVec)
	AuthAttemptsTotal = authAttemptsTotal.MustCurryWith(labels)
	VideoTaskTransitionsTotal = videoTaskTransitionsTotal.MustCurryWith(labels)
	CollaboratorCallsTotal = collaboratorCallsTotal.MustCurryWith(labels)
	CollaboratorDurationSeconds = collaboratorDurationSeconds.MustCurryWith(labels).(*prometheus.HistogramVec)
}

var once sync.Once

// MustRegister binds the service label and registers every collector with the
// default registry. Calls after the first are no-ops.
func MustRegister(serviceName string) {
	once.Do(func() {
		curry(serviceName)
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDurationSeconds,
			authAttemptsTotal,
			videoTaskTransitionsTotal,
			collaboratorCallsTotal,
			collaboratorDurationSeconds,
		)
	})
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
