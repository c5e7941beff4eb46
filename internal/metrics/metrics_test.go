package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "second registration of the same collectors must fail")
}

func TestMetrics_RecordEnrichment(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordEnrichment(EnrichApplied, time.Second)
	m.RecordEnrichment(EnrichApplied, time.Second)
	m.RecordEnrichment(EnrichSuperseded, 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.enrichmentJobsTotal.WithLabelValues(EnrichApplied)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.enrichmentJobsTotal.WithLabelValues(EnrichSuperseded)), 0)
}

func TestMetrics_RecordPersistence(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordPersistence("save_entry", nil, time.Millisecond)
	m.RecordPersistence("save_entry", errors.New("boom"), time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.persistenceOpsTotal.WithLabelValues("save_entry", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.persistenceOpsTotal.WithLabelValues("save_entry", "error")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordEnrichment(EnrichFailed, time.Second)
	m.RecordConceptResolution(ConceptCreated)
	m.RecordVote("cast")
	m.RecordVoteSyncFailure()
	m.RecordPersistence("x", nil, 0)
	m.SetCacheEntries("mine", 1)
	m.SetEnrichmentQueueDepth(1)
	m.RecordEventDropped()
	m.RecordHTTPRequest("x", 200)
}

func TestMetrics_Handler(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordVote("cast")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `arabicbase_votes_total{transition="cast"} 1`)
}

func TestHTTPCode(t *testing.T) {
	assert.Equal(t, "2xx", httpCode(204))
	assert.Equal(t, "4xx", httpCode(404))
	assert.Equal(t, "5xx", httpCode(502))
}
