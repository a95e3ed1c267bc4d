package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the booking
// engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	slotComputeDuration  prometheus.Histogram
	bookingsCreated      *prometheus.CounterVec
	calendarFetchFailure prometheus.Counter
	calendarSyncFailure  prometheus.Counter
}

// NewMetricsService registers the engine's Prometheus collectors.
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

	slotComputeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_computation_duration_seconds",
		Help:    "Time spent computing bookable slots for one date",
		Buckets: prometheus.DefBuckets,
	})

	bookingsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Bookings committed, labelled by initial status",
	}, []string{"status"})

	calendarFetchFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "external_calendar_fetch_failures_total",
		Help: "Busy-interval fetches that failed or timed out and were degraded",
	})

	calendarSyncFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "external_calendar_sync_failures_total",
		Help: "Failed attempts to mirror a booking into the external calendar",
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		slotComputeDuration,
		bookingsCreated,
		calendarFetchFailure,
		calendarSyncFailure,
	)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		slotComputeDuration:  slotComputeDuration,
		bookingsCreated:      bookingsCreated,
		calendarFetchFailure: calendarFetchFailure,
		calendarSyncFailure:  calendarSyncFailure,
	}
}

// Handler exposes the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": httpStatusLabel(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObserveSlotComputation records one slot generation pass.
func (m *MetricsService) ObserveSlotComputation(duration time.Duration) {
	m.slotComputeDuration.Observe(duration.Seconds())
}

// IncBookingCreated counts a committed booking.
func (m *MetricsService) IncBookingCreated(status string) {
	m.bookingsCreated.WithLabelValues(status).Inc()
}

// IncCalendarFetchFailure counts a degraded busy-interval fetch.
func (m *MetricsService) IncCalendarFetchFailure() {
	m.calendarFetchFailure.Inc()
}

// IncCalendarSyncFailure counts a failed booking mirror attempt.
func (m *MetricsService) IncCalendarSyncFailure() {
	m.calendarSyncFailure.Inc()
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
