// Package store defines the persistence contract the entry cache talks to.
package store

import (
	"context"

	"github.com/arabicbase/arabicbase/internal/domain"
)

// Scope selects which slice of entries GetEntries returns.
type Scope string

const (
	// ScopeMine is every entry owned by the session user.
	ScopeMine Scope = "mine"
	// ScopeGlobal is the community catalog: every entry in the store.
	ScopeGlobal Scope = "global"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeMine || s == ScopeGlobal
}

// Store is a persistence session bound to one authenticated user. Every
// user-scoped call (subscriptions, votes, profile, "mine") applies to that
// user. Implementations hold no business logic beyond concept resolution on
// save.
type Store interface {
	// UserID is the user this session acts as.
	UserID() string

	// Entries
	GetEntries(ctx context.Context, scope Scope) ([]*domain.Entry, error)
	// SaveEntry upserts by id and resolves the concept for the entry's
	// translation. On success e.ConceptID holds the resolved id.
	SaveEntry(ctx context.Context, e *domain.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	// DeleteEntriesByCatalog deletes the session user's entries filed under
	// the named dialect or category and returns how many were removed.
	DeleteEntriesByCatalog(ctx context.Context, kind domain.CatalogKind, name string) (int, error)

	// Catalogs: per-user subscriptions plus the global read.
	GetSubscriptions(ctx context.Context, kind domain.CatalogKind) ([]string, error)
	Subscribe(ctx context.Context, kind domain.CatalogKind, name string) error
	Unsubscribe(ctx context.Context, kind domain.CatalogKind, name string) error
	GetCatalog(ctx context.Context, kind domain.CatalogKind) ([]string, error)

	// Concepts
	GetConceptNames(ctx context.Context) ([]string, error)

	// Votes
	VoteEntry(ctx context.Context, entryID string, t domain.VoteType) error
	RemoveVote(ctx context.Context, entryID string) error
	GetUserVotes(ctx context.Context) (map[string]domain.VoteType, error)

	// Profile returns the session user's tier. A user without a stored
	// profile gets a free-tier profile, not an error.
	GetProfile(ctx context.Context) (*domain.Profile, error)
}
