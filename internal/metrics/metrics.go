package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors exposed on /metrics.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "birthday_mate",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthday_mate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "birthday_mate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "birthday_mate",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open room websocket connections.",
		},
	)

	roomMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthday_mate",
			Subsystem: "rooms",
			Name:      "messages_total",
			Help:      "Chat messages posted, by route (tribe or room).",
		},
		[]string{"route"},
	)

	wallUploads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "birthday_mate",
			Subsystem: "walls",
			Name:      "photo_uploads_total",
			Help:      "Photos uploaded to birthday walls.",
		},
	)

	giftActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthday_mate",
			Subsystem: "gifts",
			Name:      "activations_total",
			Help:      "Gifts activated, by resulting action.",
		},
		[]string{"action"},
	)

	paymentEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthday_mate",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries, by outcome.",
		},
		[]string{"outcome"},
	)

	giftMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "birthday_mate",
			Subsystem: "ai",
			Name:      "gift_messages_total",
			Help:      "Generated gift messages, by source.",
		},
		[]string{"source"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		wsConnections,
		roomMessages,
		wallUploads,
		giftActivations,
		paymentEvents,
		giftMessages,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled with their chi route pattern so path parameters do
// not explode label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// WSConnected tracks an opened websocket and returns the func to call on close.
func WSConnected() func() {
	wsConnections.Inc()
	return wsConnections.Dec
}

func RecordRoomMessage(route string) {
	roomMessages.WithLabelValues(route).Inc()
}

func RecordWallUpload() {
	wallUploads.Inc()
}

func RecordGiftActivation(action string) {
	giftActivations.WithLabelValues(action).Inc()
}

// RecordPaymentEvent counts webhook deliveries. Outcome is one of
// "processed", "ignored", "rejected" or "failed".
func RecordPaymentEvent(outcome string) {
	paymentEvents.WithLabelValues(outcome).Inc()
}

func RecordGiftMessage(source string) {
	giftMessages.WithLabelValues(source).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
