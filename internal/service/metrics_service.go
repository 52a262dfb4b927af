package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the formation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	formationRuns      prometheus.Counter
	teamsFormed        prometheus.Counter
	candidatesUnplaced prometheus.Counter
	promotions         *prometheus.CounterVec
	dispatchAttempts   *prometheus.CounterVec
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	formationRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formation_runs_total",
		Help: "Total completed team formation runs",
	})

	teamsFormed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formation_teams_total",
		Help: "Total teams produced by formation runs",
	})

	candidatesUnplaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formation_unplaced_total",
		Help: "Total candidates left unplaced by formation runs",
	})

	promotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_promotions_total",
		Help: "Vacancy promotion attempts by outcome",
	}, []string{"outcome"})

	dispatchAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_dispatch_attempts_total",
		Help: "Result notification dispatch attempts by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, formationRuns, teamsFormed,
		candidatesUnplaced, promotions, dispatchAttempts, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		formationRuns:      formationRuns,
		teamsFormed:        teamsFormed,
		candidatesUnplaced: candidatesUnplaced,
		promotions:         promotions,
		dispatchAttempts:   dispatchAttempts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveFormationRun records the outcome of a completed formation run.
func (m *MetricsService) ObserveFormationRun(teams, unplaced int) {
	if m == nil {
		return
	}
	m.formationRuns.Inc()
	m.teamsFormed.Add(float64(teams))
	m.candidatesUnplaced.Add(float64(unplaced))
}

// ObservePromotion records a vacancy promotion attempt.
func (m *MetricsService) ObservePromotion(promoted bool) {
	if m == nil {
		return
	}
	outcome := "open"
	if promoted {
		outcome = "promoted"
	}
	m.promotions.WithLabelValues(outcome).Inc()
}

// ObserveDispatch records a result dispatch attempt.
func (m *MetricsService) ObserveDispatch(dispatched bool) {
	if m == nil {
		return
	}
	outcome := "duplicate"
	if dispatched {
		outcome = "dispatched"
	}
	m.dispatchAttempts.WithLabelValues(outcome).Inc()
}
