package metrics

import (
	"net/http"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Executor metrics

	ExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campsite",
		Name:      "execution_duration_seconds",
		Help:      "Duration of one executor run, including the admission wait.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
	}, []string{"kind"})

	ExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campsite",
		Name:      "executions_total",
		Help:      "Total executor runs, by job kind, trigger and outcome.",
	}, []string{"kind", "trigger", "status"})

	ExecutionsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "campsite",
		Name:      "executions_in_flight",
		Help:      "Number of executor runs currently in progress.",
	})

	FiringsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campsite",
		Name:      "firings_skipped_total",
		Help:      "Scheduled firings skipped because the previous run for the same key was still in progress.",
	}, []string{"kind"})

	// Scheduler metrics

	LiveTimers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "campsite",
		Name:      "scheduler_live_timers",
		Help:      "Registered timers, by job kind.",
	}, []string{"kind"})

	MaintenanceRemovedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campsite",
		Name:      "maintenance_removed_total",
		Help:      "Rows removed or deactivated by the daily maintenance job.",
	}, []string{"target"})

	// Admission metrics

	AdmissionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campsite",
		Name:      "admission_requests_total",
		Help:      "Requests to the upstream admission endpoint, by outcome.",
	}, []string{"outcome"})

	AdmissionActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "campsite",
		Name:      "admission_session_active",
		Help:      "1 when the admission session is active, 0 otherwise.",
	})

	AdmissionQueuePosition = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "campsite",
		Name:      "admission_queue_position",
		Help:      "Last reported position in the upstream admission queue.",
	})

	AdmissionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campsite",
		Name:      "admission_events_total",
		Help:      "Admission session events, by kind.",
	}, []string{"kind"})

	// Notification metrics

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campsite",
		Name:      "notifications_total",
		Help:      "Notifications fanned out, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campsite",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campsite",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		ExecutionDuration,
		ExecutionsTotal,
		ExecutionsInFlight,
		FiringsSkippedTotal,
		LiveTimers,
		MaintenanceRemovedTotal,
		AdmissionRequestsTotal,
		AdmissionActive,
		AdmissionQueuePosition,
		AdmissionEventsTotal,
		NotificationsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// ObserveSessionEvent keeps the admission gauges in step with the client.
// Pass it to admission.Client.Subscribe.
func ObserveSessionEvent(ev domain.SessionEvent) {
	AdmissionEventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	if ev.Kind == domain.SessionEventError {
		return
	}
	s := ev.Session
	if s == nil || ev.Kind == domain.SessionEventExpired {
		AdmissionActive.Set(0)
		return
	}
	if s.Status == domain.SessionActive && s.ExpiresAt != nil && s.ExpiresAt.After(ev.At) {
		AdmissionActive.Set(1)
	} else {
		AdmissionActive.Set(0)
	}
	if s.QueuePosition != nil {
		AdmissionQueuePosition.Set(float64(*s.QueuePosition))
	} else {
		AdmissionQueuePosition.Set(0)
	}
}

// NewServer serves /metrics plus any extra handlers (health checks).
func NewServer(addr string, extra map[string]http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for path, h := range extra {
		mux.Handle(path, h)
	}
	return &http.Server{Addr: addr, Handler: mux}
}
