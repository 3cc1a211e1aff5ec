// Package metrics holds the ledger's Prometheus collectors.
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

var (
	// Registry holds the ledger's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kitty_ledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kitty_ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kitty_ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kitty_ledger",
			Name:      "ops_total",
			Help:      "Ledger operations by result (ok, an error code, or error).",
		},
		[]string{"op", "result"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kitty_ledger",
			Name:      "op_duration_seconds",
			Help:      "Duration of ledger operations including commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100us to ~1.6s
		},
		[]string{"op"},
	)

	kitties = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kitty_ledger",
			Name:      "kitties",
			Help:      "Number of kitties in the ledger.",
		},
	)

	blockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kitty_ledger",
			Name:      "block_height",
			Help:      "Height the ledger uses as its sequence number.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		opsTotal,
		opDuration,
		kitties,
		blockHeight,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Ledger records ledger outcomes into the package collectors.
type Ledger struct{}

// ObserveOperation counts op under result and records its duration.
func (Ledger) ObserveOperation(op, result string, elapsed time.Duration) {
	RecordOperation(op, result, elapsed)
}

// SetKittyCount sets the kitties gauge.
func (Ledger) SetKittyCount(n uint64) {
	kitties.Set(float64(n))
}

// RecordOperation records one ledger operation.
func RecordOperation(op, result string, elapsed time.Duration) {
	if result == "" {
		result = "error"
	}
	opsTotal.WithLabelValues(op, result).Inc()
	opDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetBlockHeight sets the block height gauge.
func SetBlockHeight(h uint64) {
	blockHeight.Set(float64(h))
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
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

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
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

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// canonicalPath collapses ids and accounts so labels stay bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "kitties":
		if len(parts) == 1 {
			return "/kitties"
		}
		if parts[1] == "breed" {
			return "/kitties/breed"
		}
		if len(parts) == 2 {
			return "/kitties/:id"
		}
		return "/kitties/:id/" + parts[2]
	case "accounts":
		if len(parts) <= 2 {
			return "/accounts/:account"
		}
		return "/accounts/:account/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
