package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/votes"
)

// VoteResult describes the effect of a click.
type VoteResult struct {
	votes.Transition
	// Entry carries the counters after the optimistic update.
	Entry *domain.Entry `json:"entry"`
	// Synced is false when the remote write failed and the cache was
	// refreshed from the global catalog instead.
	Synced bool `json:"synced"`
}

// Vote applies a click to an entry's vote state. Counters move in the cache
// immediately; the remote write follows. A failed write does not return an
// error: the local vote falls back to its previous state and the global
// catalog is reloaded so counters match the store again.
func (c *Cache) Vote(ctx context.Context, entryID string, clicked domain.VoteType) (*VoteResult, error) {
	userID, err := c.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !clicked.Valid() {
		return nil, errors.Validation(fmt.Sprintf("invalid vote type %q", clicked))
	}

	var t votes.Transition
	var entry *domain.Entry
	var clickErr error
	if err := c.do(ctx, func(st *state) {
		g := indexOf(st.global, entryID)
		m := indexOf(st.entries, entryID)
		if g < 0 && m < 0 {
			clickErr = errors.NotFoundf("entry %s not found", entryID)
			return
		}
		t, clickErr = c.votes.Click(entryID, clicked)
		if clickErr != nil {
			return
		}
		if g >= 0 {
			t.Apply(st.global[g])
			entry = st.global[g].Clone()
		}
		if m >= 0 {
			t.Apply(st.entries[m])
			if entry == nil {
				entry = st.entries[m].Clone()
			}
		}
	}); err != nil {
		return nil, err
	}
	if clickErr != nil {
		return nil, clickErr
	}

	c.upsertIndex(entry)
	c.publisher.Publish(events.NewVoteEvent(userID, entry, t.To))

	res := &VoteResult{Transition: t, Entry: entry, Synced: true}
	if err := c.votes.Sync(ctx, t); err != nil {
		res.Synced = false
		c.votes.Discard(t)
		c.recoverVotes(ctx, userID, entryID)
	}
	return res, nil
}

// recoverVotes reloads the authoritative vote rows and counters after a
// failed vote write.
func (c *Cache) recoverVotes(ctx context.Context, userID, entryID string) {
	ctx = context.WithoutCancel(ctx)
	if err := c.votes.Load(ctx); err != nil {
		c.logger.Warn("vote reload failed", logger.Err(err))
	}
	if err := c.LoadGlobalEntries(ctx); err != nil {
		c.logger.Warn("global reload after vote failure failed",
			slog.String("entry_id", entryID),
			logger.Err(err))
		return
	}

	if e, err := c.Entry(ctx, entryID); err == nil {
		c.publisher.Publish(events.NewVoteEvent(userID, e, c.votes.Current(entryID)))
	}
}
