package metrics

import (
	"errors"
	"net/http"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SourceFetchTotal     *prometheus.CounterVec
	SourceFetchDuration  *prometheus.HistogramVec
	CacheLookupsTotal    *prometheus.CounterVec
	QuotesServedTotal    *prometheus.CounterVec
	HistoryWriteFailures *prometheus.CounterVec
}

var _ application.Metrics = (*Metrics)(nil)

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		SourceFetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_fetch_total",
				Help: "Quote source calls by outcome",
			},
			[]string{"channel", "source", "outcome"},
		),

		SourceFetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "source_fetch_duration_seconds",
				Help:    "Quote source call duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8},
			},
			[]string{"channel", "source"},
		),

		CacheLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_cache_lookups_total",
				Help: "Price cache lookups by result",
			},
			[]string{"channel", "result"},
		),

		QuotesServedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotes_served_total",
				Help: "Quote requests by result",
			},
			[]string{"channel", "result"},
		),

		HistoryWriteFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "history_write_failures_total",
				Help: "Failed history appends",
			},
			[]string{"channel"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSourceNonPositive):
		return "non_positive"
	case errors.Is(err, domain.ErrSourceFormat):
		return "format"
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

func (m *Metrics) SourceFetched(ch domain.Channel, source string, err error, took time.Duration) {
	m.SourceFetchTotal.WithLabelValues(ch.String(), source, Outcome(err)).Inc()
	m.SourceFetchDuration.WithLabelValues(ch.String(), source).Observe(took.Seconds())
}

func (m *Metrics) CacheLookup(ch domain.Channel, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(ch.String(), result).Inc()
}

func (m *Metrics) QuoteServed(ch domain.Channel, ok bool) {
	result := "ok"
	if !ok {
		result = "unavailable"
	}
	m.QuotesServedTotal.WithLabelValues(ch.String(), result).Inc()
}

func (m *Metrics) HistoryWriteFailed(ch domain.Channel) {
	m.HistoryWriteFailures.WithLabelValues(ch.String()).Inc()
}
