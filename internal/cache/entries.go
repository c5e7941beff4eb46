package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/enrichment"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/id"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/normalize"
)

// AddEntry persists a new entry for the signed-in user and caches it.
// Enrichment is scheduled when the entry arrives without insights. The
// free-tier quota is checked before anything is written.
func (c *Cache) AddEntry(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.reserve(ctx, userID); err != nil {
		return nil, err
	}
	release := func(st *state) { st.release() }

	entry := e.Clone()
	if entry.ID == "" {
		entry.ID = id.NewEntryID()
	}
	entry.OwnerID = userID
	if entry.CreatedAt.IsZero() {
		entry.InitTimestamps()
	}
	normalizeFields(entry)
	entry.Upvotes, entry.Downvotes = 0, 0
	if !entry.InsightsConsistent() {
		entry.HasAIInsights = false
	}

	if err := c.validator.ValidateEntry(entry); err != nil {
		_ = c.apply(ctx, release)
		return nil, err
	}

	start := time.Now()
	if err := c.store.SaveEntry(ctx, entry); err != nil {
		_ = c.apply(ctx, release)
		c.logger.Warn("failed to save new entry", slog.String("entry_id", entry.ID), logger.Err(err))
		return nil, errors.Persistence(err, "could not save entry")
	}

	var out *domain.Entry
	if err := c.apply(ctx, func(st *state) {
		st.release()
		st.entries = putFront(st.entries, entry)
		if st.globalLoaded {
			st.global = putFront(st.global, entry.Clone())
		}
		st.justAdded = entry.ID
		if !entry.HasAIInsights {
			c.enricher.Schedule(entry)
		}
		c.recordSizes(st)
		out = entry.Clone()
	}); err != nil {
		return nil, err
	}

	c.logger.Info("entry added",
		slog.String("entry_id", out.ID),
		slog.String("dialect", out.Dialect),
		slog.Duration("duration", time.Since(start)))
	c.upsertIndex(out)
	c.publisher.Publish(events.NewEntryEvent(events.EntryCreated, out))
	return out, nil
}

// normalizeFields cleans tags and files the entry under the same catalog
// names that subscriptions and cascade deletes use.
func normalizeFields(e *domain.Entry) {
	e.Tags = normalize.Tags(e.Tags)
	e.Dialect = normalize.CatalogName(e.Dialect)
	e.Category = normalize.CatalogName(e.Category)
}

// reserve checks the free-tier quota and holds one slot for an add in
// flight, so concurrent adds cannot overshoot the limit.
func (c *Cache) reserve(ctx context.Context, userID string) error {
	profile := c.currentProfile(ctx, userID)

	var quotaErr error
	if err := c.do(ctx, func(st *state) {
		if profile == nil {
			profile = st.profile
		}
		if !profile.CanAddEntry(len(st.entries)+st.reserved, c.freeLimit) {
			quotaErr = errors.QuotaExceededf("free tier is limited to %d entries; upgrade to add more", c.freeLimit)
			return
		}
		st.reserved++
	}); err != nil {
		return err
	}
	if quotaErr != nil {
		c.logger.Info("entry quota reached", slog.String("user_id", userID), slog.Int("limit", c.freeLimit))
	}
	return quotaErr
}

// currentProfile returns the user's tier, asking the store again once the
// cached copy expires. It returns nil when the tier is unknown.
func (c *Cache) currentProfile(ctx context.Context, userID string) *domain.Profile {
	if p, ok := c.profiles.Get(userID); ok {
		if profile, ok := p.(*domain.Profile); ok && profile != nil {
			return profile
		}
	}

	profile, err := c.store.GetProfile(ctx)
	if err != nil {
		c.logger.Warn("profile refresh failed, using cached tier", logger.Err(err))
		return nil
	}
	c.profiles.SetDefault(userID, profile)
	_ = c.do(ctx, func(st *state) {
		if st.userID == userID {
			st.profile = profile
		}
	})
	return profile
}

// UpdateEntry persists changes to one of the user's entries. Enrichment is
// rescheduled when insights are missing or the content they describe changed.
func (c *Cache) UpdateEntry(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var prev *domain.Entry
	if err := c.do(ctx, func(st *state) {
		if i := indexOf(st.entries, e.ID); i >= 0 {
			prev = st.entries[i].Clone()
		}
	}); err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, errors.NotFoundf("entry %s is not in your library", e.ID)
	}

	entry := e.Clone()
	entry.OwnerID = userID
	entry.CreatedAt = prev.CreatedAt
	entry.UpdatedAt = prev.UpdatedAt
	entry.Upvotes, entry.Downvotes = prev.Upvotes, prev.Downvotes
	normalizeFields(entry)
	if !entry.InsightsConsistent() {
		entry.HasAIInsights = false
	}
	entry.Touch()

	if err := c.validator.ValidateEntry(entry); err != nil {
		return nil, err
	}
	reenrich := entry.NeedsEnrichment(prev)

	if err := c.store.SaveEntry(ctx, entry); err != nil {
		c.logger.Warn("failed to save entry", slog.String("entry_id", entry.ID), logger.Err(err))
		return nil, errors.Persistence(err, "could not save entry")
	}

	var out *domain.Entry
	if err := c.apply(ctx, func(st *state) {
		i := indexOf(st.entries, entry.ID)
		if i < 0 {
			// Deleted while the write was in flight.
			return
		}
		entry.Upvotes = st.entries[i].Upvotes
		entry.Downvotes = st.entries[i].Downvotes
		st.entries[i] = entry
		if g := indexOf(st.global, entry.ID); g >= 0 {
			st.global[g] = entry.Clone()
		}
		if reenrich {
			c.enricher.Schedule(entry)
		}
		out = entry.Clone()
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.NotFoundf("entry %s was deleted", e.ID)
	}

	c.logger.Debug("entry updated",
		slog.String("entry_id", out.ID),
		slog.Bool("reenrich", reenrich))
	c.upsertIndex(out)
	c.publisher.Publish(events.NewEntryEvent(events.EntryUpdated, out))
	return out, nil
}

// EnrichEntry schedules enrichment for one of the user's entries on demand.
// It reports false when the entry already has insights or the job could
// not be queued.
func (c *Cache) EnrichEntry(ctx context.Context, entryID string) (bool, error) {
	if _, err := c.requireUser(ctx); err != nil {
		return false, err
	}

	var found, scheduled bool
	if err := c.do(ctx, func(st *state) {
		i := indexOf(st.entries, entryID)
		if i < 0 {
			return
		}
		found = true
		if st.entries[i].HasAIInsights {
			return
		}
		scheduled = c.enricher.Schedule(st.entries[i]) != 0
	}); err != nil {
		return false, err
	}
	if !found {
		return false, errors.NotFoundf("entry %s is not in your library", entryID)
	}
	return scheduled, nil
}

// ApplyEnrichment lands a pipeline result. It implements enrichment.Sink.
//
// The result is dropped with enrichment.ErrSuperseded when a newer job was
// scheduled for the entry, and with a not-found error when the entry left
// the cache.
func (c *Cache) ApplyEnrichment(ctx context.Context, r enrichment.Result) error {
	var cur *domain.Entry
	var stale bool
	if err := c.do(ctx, func(st *state) {
		if !c.enricher.IsCurrent(r.EntryID, r.Generation) {
			stale = true
			return
		}
		if i := indexOf(st.entries, r.EntryID); i >= 0 {
			cur = st.entries[i].Clone()
		}
	}); err != nil {
		return err
	}
	if stale {
		return enrichment.ErrSuperseded
	}
	if cur == nil {
		return errors.NotFoundf("entry %s is no longer cached", r.EntryID)
	}

	cur.ApplyEnrichment(r.Enrichment)
	if err := c.store.SaveEntry(ctx, cur); err != nil {
		return errors.Enrichment(err, "could not save insights")
	}

	var out *domain.Entry
	if err := c.apply(ctx, func(st *state) {
		if !c.enricher.IsCurrent(r.EntryID, r.Generation) {
			stale = true
			return
		}
		i := indexOf(st.entries, r.EntryID)
		if i < 0 {
			return
		}
		cur.Upvotes = st.entries[i].Upvotes
		cur.Downvotes = st.entries[i].Downvotes
		st.entries[i] = cur
		if g := indexOf(st.global, cur.ID); g >= 0 {
			st.global[g] = cur.Clone()
		}
		out = cur.Clone()
	}); err != nil {
		return err
	}
	switch {
	case stale:
		return enrichment.ErrSuperseded
	case out == nil:
		return errors.NotFoundf("entry %s was deleted", r.EntryID)
	}

	c.upsertIndex(out)
	c.publisher.Publish(events.NewEntryEvent(events.EntryEnriched, out))
	return nil
}

// DeleteEntry removes one of the user's entries. Pending enrichment for it
// is invalidated first.
func (c *Cache) DeleteEntry(ctx context.Context, entryID string) error {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return err
	}

	c.enricher.Forget(entryID)
	if err := c.store.DeleteEntry(ctx, entryID); err != nil {
		c.logger.Warn("failed to delete entry", slog.String("entry_id", entryID), logger.Err(err))
		return errors.Persistence(err, "could not delete entry")
	}

	if err := c.apply(ctx, func(st *state) {
		st.entries = remove(st.entries, entryID)
		st.global = remove(st.global, entryID)
		if st.justAdded == entryID {
			st.justAdded = ""
		}
		c.recordSizes(st)
	}); err != nil {
		return err
	}

	c.deleteFromIndex(entryID)
	c.publisher.Publish(events.NewEntryDeletedEvent(userID, entryID))
	return nil
}

// IsInLibrary reports whether the user already holds an entry with the same
// term, translation and dialect.
func (c *Cache) IsInLibrary(ctx context.Context, e *domain.Entry) (bool, error) {
	var found bool
	err := c.do(ctx, func(st *state) {
		for _, mine := range st.entries {
			if mine.SameVocabulary(e) {
				found = true
				return
			}
		}
	})
	return found, err
}

// ForkEntry copies an entry from the global catalog into the user's library
// under a fresh id.
func (c *Cache) ForkEntry(ctx context.Context, src *domain.Entry) (*domain.Entry, error) {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	dup, err := c.IsInLibrary(ctx, src)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, errors.AlreadyExists("this entry is already in your library")
	}

	forked, err := c.AddEntry(ctx, src.Fork(id.NewEntryID(), userID))
	if err != nil {
		return nil, err
	}
	c.logger.Info("entry forked",
		slog.String("source_id", src.ID),
		slog.String("entry_id", forked.ID))
	return forked, nil
}

func (c *Cache) upsertIndex(e *domain.Entry) {
	if c.index == nil {
		return
	}
	if err := c.index.Upsert(e); err != nil {
		c.logger.Warn("search index update failed", slog.String("entry_id", e.ID), logger.Err(err))
	}
}

func (c *Cache) deleteFromIndex(ids ...string) {
	if c.index == nil || len(ids) == 0 {
		return
	}
	if err := c.index.Delete(ids...); err != nil {
		c.logger.Warn("search index delete failed", logger.Err(err))
	}
}
