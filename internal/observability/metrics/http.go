package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	turnsTotal          *prometheus.CounterVec
	turnDuration        *prometheus.HistogramVec
	followUpReuseTotal  *prometheus.CounterVec
	retrievalHitTotal   *prometheus.CounterVec
	retrievalMissTotal  *prometheus.CounterVec
	rankedProducts      *prometheus.HistogramVec
	sessionClearsTotal  *prometheus.CounterVec
	activeSessionsGauge prometheus.GaugeFunc
}

func NewHTTPServerMetrics(service string, activeSessions func() int) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "commerce",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "commerce",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "agent",
			Name:      "turns_total",
			Help:      "Total processed conversational turns by intent.",
		},
		[]string{"service", "intent"},
	)
	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "commerce",
			Subsystem: "agent",
			Name:      "turn_duration_seconds",
			Help:      "Turn processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "intent"},
	)
	followUpReuseTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "agent",
			Name:      "follow_up_reuse_total",
			Help:      "Total turns answered from previously shown products.",
		},
		[]string{"service"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total search turns with at least one matching product.",
		},
		[]string{"service"},
	)
	retrievalMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "retrieval",
			Name:      "no_match_total",
			Help:      "Total search turns with no product above the score floor.",
		},
		[]string{"service"},
	)
	rankedProducts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "commerce",
			Subsystem: "retrieval",
			Name:      "ranked_products",
			Help:      "Distribution of products returned per search turn.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	sessionClearsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "session",
			Name:      "clears_total",
			Help:      "Total explicit session resets.",
		},
		[]string{"service"},
	)
	activeSessionsGauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "commerce",
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of tracked sessions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		func() float64 {
			if activeSessions == nil {
				return 0
			}
			return float64(activeSessions())
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		turnsTotal,
		turnDuration,
		followUpReuseTotal,
		retrievalHitTotal,
		retrievalMissTotal,
		rankedProducts,
		sessionClearsTotal,
		activeSessionsGauge,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		turnsTotal:          turnsTotal,
		turnDuration:        turnDuration,
		followUpReuseTotal:  followUpReuseTotal,
		retrievalHitTotal:   retrievalHitTotal,
		retrievalMissTotal:  retrievalMissTotal,
		rankedProducts:      rankedProducts,
		sessionClearsTotal:  sessionClearsTotal,
		activeSessionsGauge: activeSessionsGauge,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/sessions/"):
		return "/api/sessions/{session_id}"
	default:
		return path
	}
}

// RecordTurn tracks one completed turn. Search and image-search turns also
// feed the retrieval hit/miss counters and the product count distribution.
func (m *HTTPServerMetrics) RecordTurn(service, intent string, productCount int, duration time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	m.turnsTotal.WithLabelValues(service, intent).Inc()
	m.turnDuration.WithLabelValues(service, intent).Observe(duration.Seconds())

	if intent == "CHAT" {
		return
	}
	m.rankedProducts.WithLabelValues(service).Observe(float64(productCount))
	if productCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.retrievalMissTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordFollowUpReuse(service string) {
	m.followUpReuseTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordSessionClear(service string) {
	m.sessionClearsTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
