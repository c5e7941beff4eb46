// Package events broadcasts entry, vote, and catalog changes to subscribers.
package events

import (
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
)

// Type names an event.
type Type string

const (
	EntryCreated   Type = "entry.created"
	EntryUpdated   Type = "entry.updated"
	EntryDeleted   Type = "entry.deleted"
	EntryEnriched  Type = "entry.enriched"
	VoteChanged    Type = "vote.changed"
	CatalogChanged Type = "catalog.changed"
	EntriesLoaded  Type = "entries.reloaded"

	// Heartbeat keeps idle streams open.
	Heartbeat Type = "heartbeat"
)

// Event is a single change notification.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      Type      `json:"type"`

	// UserID limits delivery to one user's subscribers. Empty means everyone.
	UserID string `json:"-"`
}

// EntryData is the payload of entry.created, entry.updated and entry.enriched.
type EntryData struct {
	Entry *domain.Entry `json:"entry"`
}

// EntryDeletedData is the payload of entry.deleted.
type EntryDeletedData struct {
	EntryID string `json:"entry_id"`
}

// VoteData is the payload of vote.changed.
type VoteData struct {
	EntryID   string          `json:"entry_id"`
	Vote      domain.VoteType `json:"vote"`
	Upvotes   int             `json:"upvotes"`
	Downvotes int             `json:"downvotes"`
}

// CatalogData is the payload of catalog.changed.
type CatalogData struct {
	Kind    domain.CatalogKind `json:"kind"`
	Name    string             `json:"name"`
	Removed bool               `json:"removed"`
	// Cascaded is the number of entries deleted along with the subscription.
	Cascaded int `json:"cascaded,omitempty"`
}

// LoadedData is the payload of entries.reloaded.
type LoadedData struct {
	Scope string `json:"scope"`
	Count int    `json:"count"`
}

func newEvent(t Type, userID string, data any) Event {
	return Event{Type: t, UserID: userID, Data: data, Timestamp: time.Now()}
}

// NewEntryEvent creates an entry.created, entry.updated or entry.enriched event.
func NewEntryEvent(t Type, e *domain.Entry) Event {
	return newEvent(t, e.OwnerID, EntryData{Entry: e.Clone()})
}

// NewEntryDeletedEvent creates an entry.deleted event.
func NewEntryDeletedEvent(userID, entryID string) Event {
	return newEvent(EntryDeleted, userID, EntryDeletedData{EntryID: entryID})
}

// NewVoteEvent creates a vote.changed event.
func NewVoteEvent(userID string, e *domain.Entry, v domain.VoteType) Event {
	return newEvent(VoteChanged, userID, VoteData{
		EntryID:   e.ID,
		Vote:      v,
		Upvotes:   e.Upvotes,
		Downvotes: e.Downvotes,
	})
}

// NewCatalogEvent creates a catalog.changed event.
func NewCatalogEvent(userID string, data CatalogData) Event {
	return newEvent(CatalogChanged, userID, data)
}

// NewLoadedEvent creates an entries.reloaded event.
func NewLoadedEvent(userID, scope string, count int) Event {
	return newEvent(EntriesLoaded, userID, LoadedData{Scope: scope, Count: count})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return newEvent(Heartbeat, "", nil)
}
