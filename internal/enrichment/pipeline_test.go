package enrichment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []*domain.Entry
	started chan string
	gate    chan struct{}
	err     error
}

func (g *fakeGenerator) GenerateInsights(ctx context.Context, e *domain.Entry) (domain.Enrichment, error) {
	g.mu.Lock()
	g.calls = append(g.calls, e.Clone())
	started, gate, err := g.started, g.gate, g.err
	g.mu.Unlock()

	if started != nil {
		started <- e.ID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Enrichment{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.Enrichment{}, err
	}
	return domain.Enrichment{
		Synonyms:        []string{"hi"},
		ExampleUsage:    "usage of " + e.Term,
		CulturalContext: "context for " + e.Translation,
	}, nil
}

func (g *fakeGenerator) terms() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	for i, e := range g.calls {
		out[i] = e.Term
	}
	return out
}

type fakeSink struct {
	mu      sync.Mutex
	results []Result
	err     error
}

func (s *fakeSink) ApplyEnrichment(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, r)
	return nil
}

func (s *fakeSink) applied() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

type testPipeline struct {
	*Pipeline
	gen      *fakeGenerator
	sink     *fakeSink
	registry *prometheus.Registry
}

func newTestPipeline(t *testing.T, gen *fakeGenerator, cfg Config) *testPipeline {
	t.Helper()

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)

	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100

	sink := &fakeSink{}
	p := New(gen, sink, cfg, m, logger.Discard())
	t.Cleanup(p.Close)

	return &testPipeline{Pipeline: p, gen: gen, sink: sink, registry: registry}
}

func (tp *testPipeline) outcome(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := tp.registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "arabicbase_enrichment_jobs_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func waitIdle(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
}

func entry(id, term string) *domain.Entry {
	e := &domain.Entry{ID: id, Term: term, Translation: "hello", Dialect: "Levantine", Type: domain.EntryTypeWord}
	e.InitTimestamps()
	return e
}

func TestPipeline_AppliesResult(t *testing.T) {
	tp := newTestPipeline(t, &fakeGenerator{}, Config{})
	tp.Start(context.Background())

	gen := tp.Schedule(entry("e1", "مرحبا"))
	require.NotZero(t, gen)
	waitIdle(t, tp.Pipeline)

	results := tp.sink.applied()
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].EntryID)
	assert.Equal(t, gen, results[0].Generation)
	assert.Equal(t, "usage of مرحبا", results[0].Enrichment.ExampleUsage)
	assert.Equal(t, 0, tp.Pending())
	assert.Equal(t, float64(1), tp.outcome(t, metrics.EnrichApplied))
}

func TestPipeline_SnapshotIsIsolatedFromCaller(t *testing.T) {
	tp := newTestPipeline(t, &fakeGenerator{}, Config{})

	e := entry("e1", "before")
	tp.Schedule(e)
	e.Term = "after"

	tp.Start(context.Background())
	waitIdle(t, tp.Pipeline)

	assert.Equal(t, []string{"before"}, tp.gen.terms())
}

func TestPipeline_CoalescesQueuedJobs(t *testing.T) {
	g := &fakeGenerator{started: make(chan string, 10), gate: make(chan struct{})}
	tp := newTestPipeline(t, g, Config{})
	tp.Start(context.Background())

	tp.Schedule(entry("a", "first"))
	require.Equal(t, "a", <-g.started)

	// The single worker is busy with "a", so both schedules for "b" sit in
	// the queue and collapse into one job carrying the newest snapshot.
	tp.Schedule(entry("b", "b-v1"))
	latest := tp.Schedule(entry("b", "b-v2"))

	g.gate <- struct{}{}
	require.Equal(t, "b", <-g.started)
	g.gate <- struct{}{}
	waitIdle(t, tp.Pipeline)

	assert.Equal(t, []string{"first", "b-v2"}, g.terms())
	results := tp.sink.applied()
	require.Len(t, results, 2)
	assert.Equal(t, latest, results[1].Generation)
}

func TestPipeline_DiscardsSupersededResult(t *testing.T) {
	g := &fakeGenerator{started: make(chan string, 10), gate: make(chan struct{})}
	tp := newTestPipeline(t, g, Config{})
	tp.Start(context.Background())

	stale := tp.Schedule(entry("a", "v1"))
	require.Equal(t, "a", <-g.started)

	fresh := tp.Schedule(entry("a", "v2"))
	require.False(t, tp.IsCurrent("a", stale))
	require.True(t, tp.IsCurrent("a", fresh))

	g.gate <- struct{}{}
	require.Equal(t, "a", <-g.started)
	g.gate <- struct{}{}
	waitIdle(t, tp.Pipeline)

	results := tp.sink.applied()
	require.Len(t, results, 1)
	assert.Equal(t, fresh, results[0].Generation)
	assert.Equal(t, "usage of v2", results[0].Enrichment.ExampleUsage)
	assert.Equal(t, float64(1), tp.outcome(t, metrics.EnrichSuperseded))
}

func TestPipeline_FailureAppliesNothing(t *testing.T) {
	g := &fakeGenerator{err: errors.New("upstream returned garbage")}
	tp := newTestPipeline(t, g, Config{})
	tp.Start(context.Background())

	tp.Schedule(entry("a", "term"))
	waitIdle(t, tp.Pipeline)

	assert.Empty(t, tp.sink.applied())
	assert.Equal(t, float64(1), tp.outcome(t, metrics.EnrichFailed))

	// A later trigger retries.
	g.mu.Lock()
	g.err = nil
	g.mu.Unlock()
	tp.Schedule(entry("a", "term"))
	waitIdle(t, tp.Pipeline)

	assert.Len(t, tp.sink.applied(), 1)
}

func TestPipeline_OrphanedWhenEntryGone(t *testing.T) {
	tp := newTestPipeline(t, &fakeGenerator{}, Config{})
	tp.sink.err = errors.NotFoundf("entry %s not in cache", "a")
	tp.Start(context.Background())

	tp.Schedule(entry("a", "term"))
	waitIdle(t, tp.Pipeline)

	assert.Equal(t, float64(1), tp.outcome(t, metrics.EnrichOrphaned))
	assert.Zero(t, tp.outcome(t, metrics.EnrichFailed))
}

func TestPipeline_DropsWhenQueueFull(t *testing.T) {
	tp := newTestPipeline(t, &fakeGenerator{}, Config{QueueSize: 1})

	assert.NotZero(t, tp.Schedule(entry("a", "one")))
	assert.Zero(t, tp.Schedule(entry("b", "two")))
	assert.Equal(t, 1, tp.Pending())
	assert.Equal(t, float64(1), tp.outcome(t, metrics.EnrichDropped))

	tp.Start(context.Background())
	waitIdle(t, tp.Pipeline)

	assert.Equal(t, []string{"one"}, tp.gen.terms())
}

func TestPipeline_DroppedJobKeepsRunningResult(t *testing.T) {
	g := &fakeGenerator{started: make(chan string, 2), gate: make(chan struct{})}
	tp := newTestPipeline(t, g, Config{QueueSize: 1})
	tp.Start(context.Background())

	first := tp.Schedule(entry("a", "one"))
	require.NotZero(t, first)
	require.Equal(t, "a", <-g.started)

	require.NotZero(t, tp.Schedule(entry("b", "two")))
	assert.Zero(t, tp.Schedule(entry("a", "one again")))
	assert.True(t, tp.IsCurrent("a", first))

	close(g.gate)
	waitIdle(t, tp.Pipeline)

	var ids []string
	for _, r := range tp.sink.applied() {
		ids = append(ids, r.EntryID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.Zero(t, tp.outcome(t, metrics.EnrichSuperseded))
	assert.Equal(t, float64(1), tp.outcome(t, metrics.EnrichDropped))
}

func TestPipeline_ForgetCancelsQueuedJob(t *testing.T) {
	tp := newTestPipeline(t, &fakeGenerator{}, Config{})

	tp.Schedule(entry("a", "term"))
	tp.Forget("a")
	assert.Equal(t, 0, tp.Pending())

	tp.Start(context.Background())
	waitIdle(t, tp.Pipeline)

	assert.Empty(t, tp.gen.terms())
	assert.Empty(t, tp.sink.applied())
}

func TestPipeline_ForgetDiscardsRunningJob(t *testing.T) {
	g := &fakeGenerator{started: make(chan string, 1), gate: make(chan struct{})}
	tp := newTestPipeline(t, g, Config{})
	tp.Start(context.Background())

	tp.Schedule(entry("a", "term"))
	<-g.started
	tp.Forget("a")
	g.gate <- struct{}{}
	waitIdle(t, tp.Pipeline)

	assert.Empty(t, tp.sink.applied())
	assert.Equal(t, float64(1), tp.outcome(t, metrics.EnrichSuperseded))
}

func TestPipeline_CloseStopsWorkersAndRejectsWork(t *testing.T) {
	g := &fakeGenerator{started: make(chan string, 1), gate: make(chan struct{})}
	tp := newTestPipeline(t, g, Config{Workers: 3})
	tp.Start(context.Background())

	tp.Schedule(entry("a", "stuck"))
	<-g.started

	tp.Close()
	tp.Close()

	assert.Zero(t, tp.Schedule(entry("b", "late")))
	assert.Equal(t, 0, tp.Pending())
	waitIdle(t, tp.Pipeline)
	assert.Empty(t, tp.sink.applied())
	assert.Zero(t, tp.outcome(t, metrics.EnrichFailed))
}

func TestPipeline_WaitIdleHonorsContext(t *testing.T) {
	tp := newTestPipeline(t, &fakeGenerator{}, Config{})
	tp.Schedule(entry("a", "never started"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tp.WaitIdle(ctx), context.DeadlineExceeded)
}
