// Package metrics exposes Prometheus collectors for the loader.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Loader holds the loader collectors. A nil *Loader records nothing.
type Loader struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	deduplicated *prometheus.CounterVec
	stale        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewLoader registers the loader collectors on a fresh registry.
func NewLoader() *Loader {
	m := &Loader{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cityguide",
				Subsystem: "loader",
				Name:      "requests_total",
				Help:      "Total number of query executions by outcome.",
			},
			[]string{"query", "outcome"},
		),
		deduplicated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cityguide",
				Subsystem: "loader",
				Name:      "deduplicated_total",
				Help:      "Load calls that joined a request already in flight.",
			},
			[]string{"query"},
		),
		stale: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cityguide",
				Subsystem: "loader",
				Name:      "stale_completions_total",
				Help:      "Completions dropped because their entry was cleared or reloaded.",
			},
			[]string{"query"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cityguide",
				Subsystem: "loader",
				Name:      "request_duration_seconds",
				Help:      "Duration of query executions.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
			},
			[]string{"query"},
		),
	}
	m.registry.MustRegister(m.requests, m.deduplicated, m.stale, m.duration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Loader) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records a finished query execution.
func (m *Loader) ObserveRequest(query, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(query, outcome).Inc()
	m.duration.WithLabelValues(query).Observe(elapsed.Seconds())
}

// Deduplicated records a call that joined an in-flight request.
func (m *Loader) Deduplicated(query string) {
	if m == nil {
		return
	}
	m.deduplicated.WithLabelValues(query).Inc()
}

// StaleCompletion records a dropped completion.
func (m *Loader) StaleCompletion(query string) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(query).Inc()
}

// Handler returns the /metrics handler for the registry.
func (m *Loader) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, m *Loader) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
