// Package votes maintains the single vote a user holds on each entry.
//
// A user is in one of three states per entry: no vote, up, or down.
// Clicking the current direction retracts the vote; clicking the other
// direction switches it in one step. Counters are adjusted locally before the
// remote write is issued.
package votes

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
)

// Kind names a transition for metrics and events.
type Kind string

const (
	KindCast    Kind = "cast"
	KindRetract Kind = "retract"
	KindSwitch  Kind = "switch"
)

// Transition is the effect of one click on an entry's vote state.
type Transition struct {
	EntryID   string          `json:"entry_id"`
	From      domain.VoteType `json:"from"`
	To        domain.VoteType `json:"to"`
	UpDelta   int             `json:"up_delta"`
	DownDelta int             `json:"down_delta"`
}

// Next computes the transition caused by clicking clicked while holding current.
func Next(entryID string, current, clicked domain.VoteType) (Transition, error) {
	if !clicked.Valid() {
		return Transition{}, errors.Validation(fmt.Sprintf("invalid vote type %q", clicked))
	}

	t := Transition{EntryID: entryID, From: current, To: clicked}
	if current == clicked {
		t.To = domain.VoteNone
	}

	t.UpDelta, t.DownDelta = counterDelta(t.From, -1)
	up, down := counterDelta(t.To, 1)
	t.UpDelta += up
	t.DownDelta += down
	return t, nil
}

func counterDelta(v domain.VoteType, n int) (up, down int) {
	switch v {
	case domain.VoteUp:
		return n, 0
	case domain.VoteDown:
		return 0, n
	default:
		return 0, 0
	}
}

// Kind classifies the transition.
func (t Transition) Kind() Kind {
	switch {
	case t.To == domain.VoteNone:
		return KindRetract
	case t.From == domain.VoteNone:
		return KindCast
	default:
		return KindSwitch
	}
}

// Removed reports whether the transition deletes the vote row.
func (t Transition) Removed() bool {
	return t.To == domain.VoteNone
}

// Apply adjusts the entry's denormalized counters.
func (t Transition) Apply(e *domain.Entry) {
	e.ApplyVoteDelta(t.UpDelta, t.DownDelta)
}

// Remote is the vote table of the persistence adapter.
type Remote interface {
	VoteEntry(ctx context.Context, entryID string, t domain.VoteType) error
	RemoveVote(ctx context.Context, entryID string) error
	GetUserVotes(ctx context.Context) (map[string]domain.VoteType, error)
}

// Aggregator holds the signed-in user's votes and reconciles them with the
// remote vote table. It is safe for concurrent use.
type Aggregator struct {
	remote  Remote
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu    sync.RWMutex
	votes map[string]domain.VoteType
}

// NewAggregator creates an aggregator with no votes loaded.
func NewAggregator(remote Remote, m *metrics.Metrics, log *slog.Logger) *Aggregator {
	return &Aggregator{
		remote:  remote,
		metrics: m,
		logger:  logger.Component(log, "votes"),
		votes:   make(map[string]domain.VoteType),
	}
}

// Current returns the user's vote on an entry.
func (a *Aggregator) Current(entryID string) domain.VoteType {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.votes[entryID]
}

// Votes returns a copy of every vote the user holds.
func (a *Aggregator) Votes() map[string]domain.VoteType {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.votes)
}

// Click records a click locally and returns the transition to apply to the
// entry's counters. No remote call is made.
func (a *Aggregator) Click(entryID string, clicked domain.VoteType) (Transition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, err := Next(entryID, a.votes[entryID], clicked)
	if err != nil {
		return Transition{}, err
	}
	if t.Removed() {
		delete(a.votes, entryID)
	} else {
		a.votes[entryID] = t.To
	}
	a.metrics.RecordVote(string(t.Kind()))
	return t, nil
}

// Sync writes a transition to the remote vote table: an upsert for a cast
// or switch, a delete for a retract.
func (a *Aggregator) Sync(ctx context.Context, t Transition) error {
	var err error
	if t.Removed() {
		err = a.remote.RemoveVote(ctx, t.EntryID)
	} else {
		err = a.remote.VoteEntry(ctx, t.EntryID, t.To)
	}
	if err != nil {
		a.metrics.RecordVoteSyncFailure()
		a.logger.Warn("vote sync failed",
			slog.String("entry_id", t.EntryID),
			slog.String("transition", string(t.Kind())),
			logger.Err(err))
		return errors.VoteSync(err, "could not record vote")
	}
	return nil
}

// Discard drops the local state for an entry after a failed sync, falling
// back to the last state the remote acknowledged.
func (a *Aggregator) Discard(t Transition) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.votes[t.EntryID] != t.To {
		// A later click already replaced this transition.
		return
	}
	if t.From == domain.VoteNone {
		delete(a.votes, t.EntryID)
	} else {
		a.votes[t.EntryID] = t.From
	}
}

// Load replaces local state with the remote vote table.
func (a *Aggregator) Load(ctx context.Context) error {
	remote, err := a.remote.GetUserVotes(ctx)
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}

	a.mu.Lock()
	a.votes = make(map[string]domain.VoteType, len(remote))
	for id, v := range remote {
		if v.Valid() {
			a.votes[id] = v
		}
	}
	n := len(a.votes)
	a.mu.Unlock()

	a.logger.Debug("votes loaded", slog.Int("count", n))
	return nil
}

// Reset forgets every vote, used on sign-out.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.votes)
}
