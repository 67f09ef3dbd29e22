// Package metrics exposes store and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus is the Prometheus implementation of folio.Metrics. It owns its
// registry so several instances can coexist in tests.
type Prometheus struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	uploadsTotal      *prometheus.CounterVec
	uploadBytes       prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewPrometheus registers the folio collectors plus the Go and process
// collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Prometheus{
		registry: reg,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_store_operations_total",
				Help: "Total number of content store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "folio_store_operation_duration_milliseconds",
				Help: "Duration of content store operations in milliseconds",
				Buckets: []float64{
					1,    // single-row reads
					5,    //
					10,   //
					50,   // small batches
					100,  //
					500,  // uploads
					1000, //
					5000, // large uploads
				},
			},
			[]string{"operation"},
		),
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_uploads_total",
				Help: "Total number of asset uploads by status",
			},
			[]string{"status"},
		),
		uploadBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "folio_upload_bytes",
				Help:    "Size of uploaded assets in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB .. 16MiB
			},
		),
		httpRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveOperation records one store operation.
func (p *Prometheus) ObserveOperation(op string, duration time.Duration, err error) {
	p.operationsTotal.WithLabelValues(op, status(err)).Inc()
	p.operationDuration.WithLabelValues(op).Observe(float64(duration.Milliseconds()))
}

// ObserveUpload records one asset upload.
func (p *Prometheus) ObserveUpload(bytes int64, err error) {
	p.uploadsTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		p.uploadBytes.Observe(float64(bytes))
	}
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (p *Prometheus) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		p.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		p.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
