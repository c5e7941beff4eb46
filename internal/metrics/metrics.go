// Package metrics provides Prometheus collectors for the sync and enrichment engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arabicbase"

// Enrichment outcomes.
const (
	EnrichApplied    = "applied"
	EnrichFailed     = "failed"
	EnrichSuperseded = "superseded"
	EnrichOrphaned   = "orphaned"
	EnrichDropped    = "dropped"
)

// Concept resolution outcomes.
const (
	ConceptEmpty    = "empty"
	ConceptCached   = "cached"
	ConceptFound    = "found"
	ConceptCreated  = "created"
	ConceptRaced    = "raced"
	ConceptConflict = "conflict"
	ConceptError    = "error"
)

// Metrics holds every collector the engine records to. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	enrichmentJobsTotal     *prometheus.CounterVec
	enrichmentDuration      prometheus.Histogram
	enrichmentQueueDepth    prometheus.Gauge
	conceptResolutionsTotal *prometheus.CounterVec
	votesTotal              *prometheus.CounterVec
	voteSyncFailuresTotal   prometheus.Counter
	persistenceOpsTotal     *prometheus.CounterVec
	persistenceDuration     *prometheus.HistogramVec
	cacheEntries            *prometheus.GaugeVec
	eventsDroppedTotal      prometheus.Counter
	httpRequestsTotal       *prometheus.CounterVec
}

// New creates the engine metrics and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.enrichmentJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_jobs_total",
			Help:      "Enrichment jobs by outcome",
		},
		[]string{"outcome"},
	)
	m.enrichmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Time spent generating insights for one entry",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
	m.enrichmentQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrichment_queue_depth",
			Help:      "Entries waiting for enrichment",
		},
	)
	m.conceptResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concept_resolutions_total",
			Help:      "Concept resolutions by outcome",
		},
		[]string{"outcome"},
	)
	m.votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote transitions applied to the cache",
		},
		[]string{"transition"},
	)
	m.voteSyncFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_sync_failures_total",
			Help:      "Votes whose remote write failed and forced a reload",
		},
	)
	m.persistenceOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_operations_total",
			Help:      "Persistence adapter calls by operation and status",
		},
		[]string{"operation", "status"},
	)
	m.persistenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persistence_duration_seconds",
			Help:      "Persistence adapter call latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)
	m.cacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries held in the cache by slice",
		},
		[]string{"slice"},
	)
	m.eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Change events dropped for slow subscribers",
		},
	)
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by operation and status code",
		},
		[]string{"operation", "code"},
	)
}

// Describe implements the Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.enrichmentJobsTotal.Describe(ch)
	m.enrichmentDuration.Describe(ch)
	m.enrichmentQueueDepth.Describe(ch)
	m.conceptResolutionsTotal.Describe(ch)
	m.votesTotal.Describe(ch)
	m.voteSyncFailuresTotal.Describe(ch)
	m.persistenceOpsTotal.Describe(ch)
	m.persistenceDuration.Describe(ch)
	m.cacheEntries.Describe(ch)
	m.eventsDroppedTotal.Describe(ch)
	m.httpRequestsTotal.Describe(ch)
}

// Collect implements the Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.enrichmentJobsTotal.Collect(ch)
	m.enrichmentDuration.Collect(ch)
	m.enrichmentQueueDepth.Collect(ch)
	m.conceptResolutionsTotal.Collect(ch)
	m.votesTotal.Collect(ch)
	m.voteSyncFailuresTotal.Collect(ch)
	m.persistenceOpsTotal.Collect(ch)
	m.persistenceDuration.Collect(ch)
	m.cacheEntries.Collect(ch)
	m.eventsDroppedTotal.Collect(ch)
	m.httpRequestsTotal.Collect(ch)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEnrichment records one finished enrichment job.
func (m *Metrics) RecordEnrichment(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.enrichmentJobsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.enrichmentDuration.Observe(d.Seconds())
	}
}

// SetEnrichmentQueueDepth records the number of pending enrichment jobs.
func (m *Metrics) SetEnrichmentQueueDepth(n int) {
	if m == nil {
		return
	}
	m.enrichmentQueueDepth.Set(float64(n))
}

// RecordConceptResolution records how a translation was mapped to a concept.
func (m *Metrics) RecordConceptResolution(outcome string) {
	if m == nil {
		return
	}
	m.conceptResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordVote records an applied vote transition.
func (m *Metrics) RecordVote(transition string) {
	if m == nil {
		return
	}
	m.votesTotal.WithLabelValues(transition).Inc()
}

// RecordVoteSyncFailure records a vote whose remote write failed.
func (m *Metrics) RecordVoteSyncFailure() {
	if m == nil {
		return
	}
	m.voteSyncFailuresTotal.Inc()
}

// RecordPersistence records one persistence adapter call.
func (m *Metrics) RecordPersistence(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.persistenceOpsTotal.WithLabelValues(operation, status).Inc()
	m.persistenceDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetCacheEntries records the size of a cache slice.
func (m *Metrics) SetCacheEntries(slice string, n int) {
	if m == nil {
		return
	}
	m.cacheEntries.WithLabelValues(slice).Set(float64(n))
}

// RecordEventDropped records an event a subscriber could not receive.
func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.eventsDroppedTotal.Inc()
}

// RecordHTTPRequest records one API request.
func (m *Metrics) RecordHTTPRequest(operation string, code int) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(operation, httpCode(code)).Inc()
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
