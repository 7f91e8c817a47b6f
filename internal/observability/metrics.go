package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	invoicesGenerated *prometheus.CounterVec
	invoiceTaxTotal   *prometheus.CounterVec
	paymentsRecorded  prometheus.Counter
}

// NewMetrics initializes the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crestline_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crestline_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crestline_invoices_generated_total",
		Help: "Invoices generated, labeled by tax regime.",
	}, []string{"regime"})
	taxTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crestline_invoice_tax_inr_total",
		Help: "Cumulative tax charged in INR, labeled by tax regime.",
	}, []string{"regime"})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crestline_payments_recorded_total",
		Help: "Payment updates applied to invoices.",
	})
	registry.MustRegister(requests, duration, invoices, taxTotal, payments)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		invoicesGenerated: invoices,
		invoiceTaxTotal:   taxTotal,
		paymentsRecorded:  payments,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// InvoiceGenerated counts one generated invoice and its tax charge.
func (m *Metrics) InvoiceGenerated(regime string, taxINR float64) {
	if m == nil {
		return
	}
	m.invoicesGenerated.WithLabelValues(regime).Inc()
	m.invoiceTaxTotal.WithLabelValues(regime).Add(taxINR)
}

// PaymentRecorded counts one applied payment update.
func (m *Metrics) PaymentRecorded() {
	if m == nil {
		return
	}
	m.paymentsRecorded.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
