// Package enrichment runs AI insight generation for entries in the background.
//
// Jobs are keyed by entry id. Scheduling an id that is still queued replaces
// the queued snapshot instead of adding a second job. Every schedule stamps a
// new generation; a completion is handed to the Sink only while its
// generation is still the newest one for that id, so a slow response for an
// older version of an entry never overwrites a newer one.
package enrichment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
)

// Generator produces insights for an entry. *ai.Client implements it.
type Generator interface {
	GenerateInsights(ctx context.Context, e *domain.Entry) (domain.Enrichment, error)
}

// Result is a successful generation waiting to be applied.
type Result struct {
	EntryID    string
	Generation uint64
	Enrichment domain.Enrichment
}

// ErrSuperseded is returned by a Sink that finds a newer generation was
// scheduled after the result was produced.
var ErrSuperseded = errors.New("enrichment superseded")

// Sink applies a result to the entry it was generated for. It returns an
// error matching errors.ErrNotFound when the entry no longer exists and
// ErrSuperseded when the result is stale.
type Sink interface {
	ApplyEnrichment(ctx context.Context, r Result) error
}

// Config tunes the worker pool.
type Config struct {
	Workers           int
	QueueSize         int
	RequestsPerSecond float64
	Burst             int
	JobTimeout        time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 0.5
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	return c
}

type job struct {
	entry *domain.Entry
	gen   uint64
}

// slot tracks one entry id. It lives while a job for the id is queued or
// running.
type slot struct {
	latest   uint64
	pending  *job
	inflight int
}

// Pipeline is the background enrichment queue.
type Pipeline struct {
	gen     Generator
	sink    Sink
	cfg     Config
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	slots  map[string]*slot
	seq    uint64
	busy   int
	idle   chan struct{}
	closed bool

	queue  chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pipeline. Call Start to run the workers.
func New(gen Generator, sink Sink, cfg Config, m *metrics.Metrics, log *slog.Logger) *Pipeline {
	cfg = cfg.withDefaults()
	idle := make(chan struct{})
	close(idle)
	return &Pipeline{
		gen:     gen,
		sink:    sink,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		metrics: m,
		logger:  logger.Component(log, "enrichment"),
		slots:   make(map[string]*slot),
		idle:    idle,
		queue:   make(chan string, cfg.QueueSize),
	}
}

// SetSink replaces the sink. It must be called before Start.
func (p *Pipeline) SetSink(s Sink) {
	p.sink = s
}

// Start launches the worker pool. Workers stop when ctx is canceled or
// Close is called.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := range p.cfg.Workers {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("enrichment pipeline started",
		slog.Int("workers", p.cfg.Workers),
		slog.Int("queue_size", p.cfg.QueueSize),
		slog.Float64("requests_per_second", p.cfg.RequestsPerSecond))
}

// Close stops the workers and waits for them to exit. Queued jobs are
// abandoned; their entries keep the insights gate closed and will be
// scheduled again by the next trigger.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	abandoned := len(p.slots)
	clear(p.slots)
	p.setBusy(-p.busy)
	p.mu.Unlock()

	p.metrics.SetEnrichmentQueueDepth(0)
	p.logger.Info("enrichment pipeline stopped", slog.Int("abandoned", abandoned))
}

// Schedule queues insight generation for a snapshot of e and returns the
// generation stamped on it. It never blocks. It returns 0 when the job could
// not be queued (queue full or pipeline closed).
func (p *Pipeline) Schedule(e *domain.Entry) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0
	}

	p.seq++
	j := &job{entry: e.Clone(), gen: p.seq}

	s, ok := p.slots[e.ID]
	if !ok {
		s = &slot{}
		p.slots[e.ID] = s
	}

	// The generation only advances for a job that will run, so a dropped
	// job never invalidates one already running for the same id.
	if s.pending != nil {
		s.latest = j.gen
		s.pending = j
		p.logger.Debug("coalesced enrichment job",
			slog.String("entry_id", e.ID),
			slog.Uint64("generation", j.gen))
		return j.gen
	}

	select {
	case p.queue <- e.ID:
		s.latest = j.gen
		s.pending = j
		p.setBusy(1)
		p.metrics.SetEnrichmentQueueDepth(len(p.queue))
		return j.gen
	default:
		p.release(e.ID, s)
		p.metrics.RecordEnrichment(metrics.EnrichDropped, 0)
		p.logger.Warn("enrichment queue full, dropping job",
			slog.String("entry_id", e.ID),
			slog.Int("queue_size", p.cfg.QueueSize))
		return 0
	}
}

// Forget invalidates every queued or running job for id. Used when the
// entry is deleted.
func (p *Pipeline) Forget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.slots[id]
	if !ok {
		return
	}
	p.seq++
	s.latest = p.seq
	s.pending = nil
	p.release(id, s)
}

// IsCurrent reports whether gen is still the newest generation for id.
func (p *Pipeline) IsCurrent(id string, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.slots[id]
	return ok && s.latest == gen
}

// Pending returns the number of entry ids queued or being generated.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// WaitIdle blocks until no job is queued or running, or ctx is done.
func (p *Pipeline) WaitIdle(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setBusy adjusts the busy count and the idle channel. Caller holds mu.
func (p *Pipeline) setBusy(delta int) {
	wasIdle := p.busy == 0
	p.busy += delta
	switch {
	case wasIdle && p.busy > 0:
		p.idle = make(chan struct{})
	case !wasIdle && p.busy == 0:
		close(p.idle)
	}
}

// release drops the slot once nothing references it. Caller holds mu.
func (p *Pipeline) release(id string, s *slot) {
	if s.pending == nil && s.inflight == 0 {
		delete(p.slots, id)
	}
}

func (p *Pipeline) worker(ctx context.Context, n int) {
	defer p.wg.Done()
	log := p.logger.With(slog.Int("worker", n))

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.queue:
			p.metrics.SetEnrichmentQueueDepth(len(p.queue))
			j := p.take(id)
			if j != nil {
				p.run(ctx, log, j)
				p.finish(id)
			}
			p.mu.Lock()
			if p.busy > 0 {
				p.setBusy(-1)
			}
			p.mu.Unlock()
		}
	}
}

// take claims the queued job for id, or nil if it was forgotten.
func (p *Pipeline) take(id string) *job {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.slots[id]
	if !ok || s.pending == nil {
		return nil
	}
	j := s.pending
	s.pending = nil
	s.inflight++
	return j
}

func (p *Pipeline) finish(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.slots[id]; ok {
		s.inflight--
		p.release(id, s)
	}
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, j *job) {
	log = log.With(slog.String("entry_id", j.entry.ID), slog.Uint64("generation", j.gen))

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	result, err := p.gen.GenerateInsights(jobCtx, j.entry)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.RecordEnrichment(metrics.EnrichFailed, time.Since(start))
		log.Warn("enrichment failed, insights stay unavailable", logger.Err(err))
		return
	}

	if !p.IsCurrent(j.entry.ID, j.gen) {
		p.metrics.RecordEnrichment(metrics.EnrichSuperseded, time.Since(start))
		log.Debug("discarding superseded enrichment")
		return
	}

	err = p.sink.ApplyEnrichment(ctx, Result{
		EntryID:    j.entry.ID,
		Generation: j.gen,
		Enrichment: result,
	})
	switch {
	case err == nil:
		p.metrics.RecordEnrichment(metrics.EnrichApplied, time.Since(start))
		log.Debug("enrichment applied", slog.Duration("duration", time.Since(start)))
	case errors.Is(err, errors.ErrNotFound):
		p.metrics.RecordEnrichment(metrics.EnrichOrphaned, time.Since(start))
		log.Debug("entry gone before enrichment landed")
	case errors.Is(err, ErrSuperseded):
		p.metrics.RecordEnrichment(metrics.EnrichSuperseded, time.Since(start))
		log.Debug("sink rejected stale enrichment")
	default:
		p.metrics.RecordEnrichment(metrics.EnrichFailed, time.Since(start))
		log.Warn("failed to apply enrichment", logger.Err(err))
	}
}
