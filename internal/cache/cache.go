// Package cache is the in-memory entry cache that UI surfaces read from and
// mutate through.
//
// All cache state is owned by a single goroutine. Every read and mutation is
// a closure run on that goroutine, so state is never locked; remote calls are
// made by the caller between closures and never while the loop is held.
//
// Entry mutations (add, update, delete, catalog removal) persist first and
// touch the cache only after the remote write succeeded. Votes are the
// opposite: counters move locally first and the remote write follows. A
// failed vote write is repaired by reloading the global catalog rather than
// by rolling back the arithmetic. Keep the two paths distinct.
package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
	"github.com/arabicbase/arabicbase/internal/search"
	"github.com/arabicbase/arabicbase/internal/snapshot"
	"github.com/arabicbase/arabicbase/internal/store"
	"github.com/arabicbase/arabicbase/internal/validation"
	"github.com/arabicbase/arabicbase/internal/votes"
)

// ErrClosed is returned by every operation once the cache has stopped.
var ErrClosed = errors.New("cache closed")

// Enricher schedules background enrichment. *enrichment.Pipeline implements it.
type Enricher interface {
	Schedule(e *domain.Entry) uint64
	Forget(id string)
	IsCurrent(id string, gen uint64) bool
}

// Publisher receives change events. *events.Broker implements it.
type Publisher interface {
	Publish(events.Event)
}

// Index searches the global catalog. *search.SearchIndex implements it.
type Index interface {
	Replace(entries []*domain.Entry) error
	Upsert(e *domain.Entry) error
	Delete(ids ...string) error
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

// Snapshots persists the user slice for warm starts. *snapshot.Store implements it.
type Snapshots interface {
	Save(snap *snapshot.Snapshot) error
	Load(userID string) (*snapshot.Snapshot, error)
}

// Options configures a Cache. Store is required; every other collaborator
// may be nil.
type Options struct {
	Store         store.Store
	Enricher      Enricher
	Publisher     Publisher
	Index         Index
	Snapshots     Snapshots
	Validator     *validation.Validator
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	FreeTierLimit int
	// ProfileTTL bounds how long a fetched tier is trusted before the quota
	// check asks the store again.
	ProfileTTL time.Duration
}

type state struct {
	userID   string
	signedIn bool
	profile  *domain.Profile

	entries  []*domain.Entry
	loaded   bool
	// reserved counts adds between the quota check and the cache insert.
	// Only the adds themselves change it.
	reserved int

	global       []*domain.Entry
	globalLoaded bool

	dialects         []string
	categories       []string
	globalDialects   []string
	globalCategories []string
	conceptNames     []string

	justAdded string
}

// release frees a quota slot held by reserve.
func (st *state) release() {
	st.reserved = max(st.reserved-1, 0)
}

func (st *state) subscriptions(kind domain.CatalogKind) *[]string {
	if kind == domain.CatalogDialect {
		return &st.dialects
	}
	return &st.categories
}

func (st *state) catalog(kind domain.CatalogKind) *[]string {
	if kind == domain.CatalogDialect {
		return &st.globalDialects
	}
	return &st.globalCategories
}

// Cache holds the signed-in user's library and the global catalog.
type Cache struct {
	store     store.Store
	enricher  Enricher
	publisher Publisher
	index     Index
	snapshots Snapshots
	validator *validation.Validator
	votes     *votes.Aggregator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	freeLimit int
	profiles  *gocache.Cache

	ops     chan func(*state)
	stopped chan struct{}
	st      state

	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a cache. Call Start before using it.
func New(opts Options) *Cache {
	c := &Cache{
		store:     opts.Store,
		enricher:  opts.Enricher,
		publisher: opts.Publisher,
		index:     opts.Index,
		snapshots: opts.Snapshots,
		validator: opts.Validator,
		metrics:   opts.Metrics,
		logger:    logger.Component(opts.Logger, "cache"),
		freeLimit: opts.FreeTierLimit,
		ops:       make(chan func(*state)),
		stopped:   make(chan struct{}),
	}
	if c.enricher == nil {
		c.enricher = noopEnricher{}
	}
	if c.publisher == nil {
		c.publisher = noopPublisher{}
	}
	if c.validator == nil {
		c.validator = validation.New()
	}
	if c.freeLimit <= 0 {
		c.freeLimit = domain.DefaultFreeTierLimit
	}
	ttl := opts.ProfileTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c.profiles = gocache.New(ttl, 0)
	c.votes = votes.NewAggregator(opts.Store, opts.Metrics, opts.Logger)
	c.st.userID = opts.Store.UserID()
	return c
}

// Start runs the mutation loop until ctx is canceled or Close is called.
func (c *Cache) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)
		c.wg.Add(1)
		go c.loop(ctx)
	})
}

// Close stops the loop and writes a final snapshot of the user slice.
func (c *Cache) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.wg.Wait()

	// The loop has exited, so state is ours.
	if c.st.signedIn && c.st.loaded {
		return c.saveSnapshot(c.snapshotOf(&c.st))
	}
	return nil
}

func (c *Cache) loop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.stopped)

	for {
		select {
		case op := <-c.ops:
			op(&c.st)
		case <-ctx.Done():
			return
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Cache) do(ctx context.Context, fn func(st *state)) error {
	done := make(chan struct{})
	op := func(st *state) {
		defer close(done)
		fn(st)
	}
	select {
	case c.ops <- op:
		<-done
		return nil
	case <-c.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply runs a mutation that must land because its remote write already
// succeeded. It ignores caller cancellation.
func (c *Cache) apply(ctx context.Context, fn func(st *state)) error {
	return c.do(context.WithoutCancel(ctx), fn)
}

func (c *Cache) requireUser(ctx context.Context) (string, error) {
	var userID string
	var signedIn bool
	if err := c.do(ctx, func(st *state) {
		userID, signedIn = st.userID, st.signedIn
	}); err != nil {
		return "", err
	}
	if !signedIn {
		return "", errors.Unauthorized("sign in required")
	}
	return userID, nil
}

// View is a point-in-time copy of the cache.
type View struct {
	UserID           string                     `json:"user_id"`
	SignedIn         bool                       `json:"signed_in"`
	IsPro            bool                       `json:"is_pro"`
	Entries          []*domain.Entry            `json:"entries"`
	Global           []*domain.Entry            `json:"global"`
	Dialects         []string                   `json:"dialects"`
	Categories       []string                   `json:"categories"`
	GlobalDialects   []string                   `json:"global_dialects"`
	GlobalCategories []string                   `json:"global_categories"`
	ConceptNames     []string                   `json:"concept_names"`
	Votes            map[string]domain.VoteType `json:"votes"`
	JustAdded        string                     `json:"just_added,omitempty"`
}

// View returns a deep copy of the cache.
func (c *Cache) View(ctx context.Context) (*View, error) {
	var v *View
	err := c.do(ctx, func(st *state) {
		v = &View{
			UserID:           st.userID,
			SignedIn:         st.signedIn,
			IsPro:            st.profile != nil && st.profile.IsPro,
			Entries:          cloneAll(st.entries),
			Global:           cloneAll(st.global),
			Dialects:         slices.Clone(st.dialects),
			Categories:       slices.Clone(st.categories),
			GlobalDialects:   slices.Clone(st.globalDialects),
			GlobalCategories: slices.Clone(st.globalCategories),
			ConceptNames:     slices.Clone(st.conceptNames),
			JustAdded:        st.justAdded,
		}
	})
	if err != nil {
		return nil, err
	}
	v.Votes = c.votes.Votes()
	return v, nil
}

// Entries returns a copy of the user's entries, newest first.
func (c *Cache) Entries(ctx context.Context) ([]*domain.Entry, error) {
	var out []*domain.Entry
	err := c.do(ctx, func(st *state) { out = cloneAll(st.entries) })
	return out, err
}

// GlobalEntries returns a copy of the global catalog.
func (c *Cache) GlobalEntries(ctx context.Context) ([]*domain.Entry, error) {
	var out []*domain.Entry
	err := c.do(ctx, func(st *state) { out = cloneAll(st.global) })
	return out, err
}

// Entry returns a cached entry from the user's library or the global catalog.
func (c *Cache) Entry(ctx context.Context, id string) (*domain.Entry, error) {
	var out *domain.Entry
	if err := c.do(ctx, func(st *state) {
		if i := indexOf(st.entries, id); i >= 0 {
			out = st.entries[i].Clone()
		} else if i := indexOf(st.global, id); i >= 0 {
			out = st.global[i].Clone()
		}
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.NotFoundf("entry %s not found", id)
	}
	return out, nil
}

// JustAdded returns the id of the most recently added entry, if any.
func (c *Cache) JustAdded(ctx context.Context) (string, error) {
	var id string
	err := c.do(ctx, func(st *state) { id = st.justAdded })
	return id, err
}

// ClearJustAdded forgets the just-added marker.
func (c *Cache) ClearJustAdded(ctx context.Context) error {
	return c.do(ctx, func(st *state) { st.justAdded = "" })
}

// UserVote returns the signed-in user's vote on an entry.
func (c *Cache) UserVote(entryID string) domain.VoteType {
	return c.votes.Current(entryID)
}

func (c *Cache) recordSizes(st *state) {
	c.metrics.SetCacheEntries(string(store.ScopeMine), len(st.entries))
	c.metrics.SetCacheEntries(string(store.ScopeGlobal), len(st.global))
}

func indexOf(entries []*domain.Entry, id string) int {
	return slices.IndexFunc(entries, func(e *domain.Entry) bool { return e.ID == id })
}

// putFront replaces the entry with e's id, or prepends e when absent.
func putFront(entries []*domain.Entry, e *domain.Entry) []*domain.Entry {
	if i := indexOf(entries, e.ID); i >= 0 {
		entries[i] = e
		return entries
	}
	return append([]*domain.Entry{e}, entries...)
}

func remove(entries []*domain.Entry, id string) []*domain.Entry {
	return slices.DeleteFunc(entries, func(e *domain.Entry) bool { return e.ID == id })
}

func cloneAll(entries []*domain.Entry) []*domain.Entry {
	out := make([]*domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

type noopEnricher struct{}

func (noopEnricher) Schedule(*domain.Entry) uint64 { return 0 }
func (noopEnricher) Forget(string)                 {}
func (noopEnricher) IsCurrent(string, uint64) bool { return false }

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}
