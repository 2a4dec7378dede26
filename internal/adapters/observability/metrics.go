package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "thyrd"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func latency(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Help: help,
		Buckets: prometheus.DefBuckets,
	}, labels)
}

var (
	HTTPRequests = counter("http_requests_total", "API requests by route and status.", "route", "method", "status")
	HTTPLatency  = latency("http_request_duration_seconds", "API request duration.", "route", "method")

	// Calls to the upstream directory, one sample per attempt. status 0 is
	// a transport failure.
	DirectoryRequests = counter("directory_requests_total", "Upstream directory attempts.", "backend", "endpoint", "status")
	DirectoryLatency  = latency("directory_request_duration_seconds", "Upstream directory attempt duration.", "backend", "endpoint")

	StoreEvents      = counter("store_events_total", "Redis cache and annotation store operations.", "store", "event") // hit|miss|set|del
	CatalogRefreshes = counter("catalog_refreshes_total", "Catalog snapshot refreshes by outcome.", "result")      // committed|superseded|error
	EventsPublished  = counter("events_published_total", "Domain events published.", "subject", "result")
)

// Serve exposes reg on a separate listener. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		DirectoryRequests, DirectoryLatency,
		StoreEvents, CatalogRefreshes, EventsPublished,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveDirectory(backend, endpoint string, status int, dur time.Duration) {
	DirectoryRequests.WithLabelValues(backend, endpoint, strconv.Itoa(status)).Inc()
	DirectoryLatency.WithLabelValues(backend, endpoint).Observe(dur.Seconds())
}

func ObserveStore(store, event string) { StoreEvents.WithLabelValues(store, event).Inc() }

func ObserveCatalog(result string) { CatalogRefreshes.WithLabelValues(result).Inc() }

func ObserveEvent(subject string, err error) {
	EventsPublished.WithLabelValues(subject, LabelErr(err)).Inc()
}

// LabelErr buckets an error into a low-cardinality label value.
func LabelErr(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
