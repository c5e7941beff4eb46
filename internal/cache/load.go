package cache

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/snapshot"
	"github.com/arabicbase/arabicbase/internal/store"
)

// SignIn loads the session user's profile, votes, entries and
// subscriptions, then marks the cache signed in.
func (c *Cache) SignIn(ctx context.Context) error {
	userID := c.store.UserID()
	if userID == "" {
		return errors.Unauthorized("no authenticated user")
	}

	var (
		profile    *domain.Profile
		entries    []*domain.Entry
		dialects   []string
		categories []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = c.store.GetProfile(gctx)
		return err
	})
	g.Go(func() error {
		return c.votes.Load(gctx)
	})
	g.Go(func() error {
		var err error
		entries, err = c.store.GetEntries(gctx, store.ScopeMine)
		return err
	})
	g.Go(func() error {
		var err error
		dialects, err = c.store.GetSubscriptions(gctx, domain.CatalogDialect)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = c.store.GetSubscriptions(gctx, domain.CatalogCategory)
		return err
	})
	if err := g.Wait(); err != nil {
		c.votes.Reset()
		return errors.Persistence(err, "could not load your library")
	}

	c.profiles.SetDefault(userID, profile)

	var snap *snapshot.Snapshot
	if err := c.do(ctx, func(st *state) {
		st.userID = userID
		st.signedIn = true
		st.profile = profile
		st.entries = entries
		st.loaded = true
		st.dialects = dialects
		st.categories = categories
		c.syncCounters(st)
		c.recordSizes(st)
		snap = c.snapshotOf(st)
	}); err != nil {
		return err
	}

	c.logger.Info("signed in",
		slog.String("user_id", userID),
		slog.Int("entries", len(entries)),
		slog.Bool("pro", profile != nil && profile.IsPro))
	c.publisher.Publish(events.NewLoadedEvent(userID, string(store.ScopeMine), len(entries)))
	_ = c.saveSnapshot(snap)
	return nil
}

// SignOut clears every user-scoped slice. The global catalog stays.
func (c *Cache) SignOut(ctx context.Context) error {
	var ids []string
	var userID string
	if err := c.do(ctx, func(st *state) {
		userID = st.userID
		for _, e := range st.entries {
			ids = append(ids, e.ID)
		}
		st.signedIn = false
		st.profile = nil
		st.entries = nil
		st.loaded = false
		st.dialects = nil
		st.categories = nil
		st.justAdded = ""
		c.recordSizes(st)
	}); err != nil {
		return err
	}

	for _, id := range ids {
		c.enricher.Forget(id)
	}
	c.votes.Reset()
	c.profiles.Delete(userID)
	c.logger.Info("signed out", slog.String("user_id", userID))
	return nil
}

// LoadEntries replaces the user's entries with the remote copy.
func (c *Cache) LoadEntries(ctx context.Context) error {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	entries, err := c.store.GetEntries(ctx, store.ScopeMine)
	if err != nil {
		return errors.Persistence(err, "could not load your entries")
	}

	var snap *snapshot.Snapshot
	if err := c.apply(ctx, func(st *state) {
		st.entries = entries
		st.loaded = true
		c.syncCounters(st)
		c.recordSizes(st)
		snap = c.snapshotOf(st)
	}); err != nil {
		return err
	}

	c.logger.Debug("entries loaded",
		slog.Int("count", len(entries)),
		slog.Duration("duration", time.Since(start)))
	c.publisher.Publish(events.NewLoadedEvent(userID, string(store.ScopeMine), len(entries)))
	_ = c.saveSnapshot(snap)
	return nil
}

// LoadGlobalEntries replaces the global catalog with the remote copy and
// refreshes the vote counters on the user's entries from it.
func (c *Cache) LoadGlobalEntries(ctx context.Context) error {
	entries, err := c.store.GetEntries(ctx, store.ScopeGlobal)
	if err != nil {
		return errors.Persistence(err, "could not load community entries")
	}
	docs := cloneAll(entries)

	if err := c.apply(ctx, func(st *state) {
		st.global = entries
		st.globalLoaded = true
		c.syncCounters(st)
		c.recordSizes(st)
	}); err != nil {
		return err
	}

	if c.index != nil {
		if err := c.index.Replace(docs); err != nil {
			c.logger.Warn("search index rebuild failed", logger.Err(err))
		}
	}
	c.publisher.Publish(events.NewLoadedEvent("", string(store.ScopeGlobal), len(entries)))
	return nil
}

// LoadGlobalData loads the global catalog, both global catalog name lists
// and the concept names in parallel.
func (c *Cache) LoadGlobalData(ctx context.Context) error {
	var dialects, categories, concepts []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.LoadGlobalEntries(gctx)
	})
	g.Go(func() error {
		var err error
		dialects, err = c.store.GetCatalog(gctx, domain.CatalogDialect)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = c.store.GetCatalog(gctx, domain.CatalogCategory)
		return err
	})
	g.Go(func() error {
		var err error
		concepts, err = c.store.GetConceptNames(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, errors.ErrPersistence) {
			return err
		}
		return errors.Persistence(err, "could not load community data")
	}

	return c.apply(ctx, func(st *state) {
		st.globalDialects = dialects
		st.globalCategories = categories
		st.conceptNames = concepts
	})
}

// Restore fills the user slice from the local snapshot when no remote load
// has happened yet. It reports whether a snapshot was applied.
func (c *Cache) Restore(ctx context.Context) (bool, error) {
	if c.snapshots == nil {
		return false, nil
	}
	userID := c.store.UserID()
	if userID == "" {
		return false, nil
	}

	snap, err := c.snapshots.Load(userID)
	if errors.Is(err, snapshot.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	applied := false
	if err := c.do(ctx, func(st *state) {
		if st.loaded {
			return
		}
		st.userID = userID
		st.entries = snap.Entries
		st.dialects = snap.Dialects
		st.categories = snap.Categories
		c.recordSizes(st)
		applied = true
	}); err != nil {
		return false, err
	}

	if applied {
		c.logger.Info("restored snapshot",
			slog.Int("entries", len(snap.Entries)),
			slog.Time("saved_at", snap.SavedAt))
	}
	return applied, nil
}

// syncCounters copies vote counters from the global catalog onto the user's
// entries. The global load is authoritative for counters.
func (c *Cache) syncCounters(st *state) {
	if !st.globalLoaded {
		return
	}
	for _, e := range st.entries {
		if i := indexOf(st.global, e.ID); i >= 0 {
			e.Upvotes = st.global[i].Upvotes
			e.Downvotes = st.global[i].Downvotes
		}
	}
}

func (c *Cache) snapshotOf(st *state) *snapshot.Snapshot {
	if c.snapshots == nil || !st.signedIn {
		return nil
	}
	return &snapshot.Snapshot{
		UserID:     st.userID,
		Entries:    cloneAll(st.entries),
		Dialects:   slices.Clone(st.dialects),
		Categories: slices.Clone(st.categories),
		Votes:      c.votes.Votes(),
	}
}

func (c *Cache) saveSnapshot(snap *snapshot.Snapshot) error {
	if snap == nil {
		return nil
	}
	if err := c.snapshots.Save(snap); err != nil {
		c.logger.Warn("snapshot save failed", logger.Err(err))
		return err
	}
	return nil
}
